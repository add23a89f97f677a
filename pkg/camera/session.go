package camera

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// Session modes.
const (
	StateUninitialized = "uninitialized"
	StatePreview       = "preview"
	StateStill         = "still"
	StateClosed        = "closed"
)

// Namer yields the target path for a capture taken at t.
type Namer interface {
	NextPath(t time.Time) string
}

// Options tune the capture timing.
type Options struct {
	// SettleDelay is the pause after a resolution switch so auto exposure
	// and focus stabilize before the still is taken.
	SettleDelay time.Duration
	// FrameTimeout bounds the wait for a single frame from the device.
	FrameTimeout time.Duration
}

// CaptureResult describes a written photo.
type CaptureResult struct {
	Path string
	Size int64
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	State       string
	PreviewOn   bool
	Broken      bool
	Captures    int
	LastPhoto   string
	PreviewSize Size
	StillSize   Size
}

// Session owns the camera device and its two configuration profiles, and
// serializes every device transition behind one mutex. The mode is tracked by
// an explicit state machine rather than loose booleans, so the device
// configuration and the session state can not drift apart.
type Session struct {
	mu  sync.Mutex
	dev Device

	preview Profile
	still   Profile
	names   Namer

	machine   *fsm.FSM
	previewOn bool
	streaming bool
	broken    bool

	settle       time.Duration
	frameTimeout time.Duration

	captures  int
	lastPhoto string
}

// NewSession builds a session around an opened device. The device is left
// untouched until StartPreview or Capture is called.
func NewSession(dev Device, preview, still Profile, names Namer, opts Options) *Session {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = time.Second
	}
	if opts.FrameTimeout == 0 {
		opts.FrameTimeout = 3 * time.Second
	}

	s := &Session{
		dev:          dev,
		preview:      preview,
		still:        still,
		names:        names,
		settle:       opts.SettleDelay,
		frameTimeout: opts.FrameTimeout,
	}

	s.machine = fsm.NewFSM(
		StateUninitialized,
		fsm.Events{
			{Name: "configure_preview", Src: []string{StateUninitialized, StateStill}, Dst: StatePreview},
			{Name: "configure_still", Src: []string{StateUninitialized, StatePreview}, Dst: StateStill},
			{Name: "close", Src: []string{StateUninitialized, StatePreview, StateStill}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				logger.Debugf("session mode %s -> %s", e.Src, e.Dst)
			},
		},
	)

	return s
}

// StartPreview applies the preview profile and starts streaming. Calling it
// while the preview is already active is a no-op.
func (s *Session) StartPreview() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if s.previewOn {
		logger.Info("preview already active")
		return nil
	}

	if s.machine.Current() != StatePreview {
		if s.streaming {
			if err := s.dev.Stop(); err != nil {
				return fmt.Errorf("stop device before preview: %w", err)
			}
			s.streaming = false
		}
		if err := s.dev.Configure(s.preview); err != nil {
			return fmt.Errorf("configure preview profile: %w", err)
		}
		if err := s.machine.Event("configure_preview"); err != nil {
			return err
		}
	}
	if !s.streaming {
		if err := s.dev.Start(); err != nil {
			return fmt.Errorf("start preview: %w", err)
		}
		s.streaming = true
	}
	s.previewOn = true
	logger.Infof("preview started in %s", s.preview)

	return nil
}

// StopPreview halts streaming. Calling it while the preview is inactive is a
// no-op. The session stays in preview mode.
func (s *Session) StopPreview() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if !s.previewOn {
		logger.Info("preview not active")
		return nil
	}

	if err := s.dev.Stop(); err != nil {
		return fmt.Errorf("stop preview: %w", err)
	}
	s.streaming = false
	s.previewOn = false
	logger.Info("preview stopped")

	return nil
}

// Capture takes one full-resolution photo and returns its path and size.
//
// When the session is in preview mode the device is switched to the still
// profile for the shot and switched back afterwards, so the preview state
// observed by the caller is the same before and after the call. Any failure
// mid-switch triggers a rollback to the pre-capture mode; when the rollback
// itself fails the session is marked unusable.
func (s *Session) Capture() (CaptureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return CaptureResult{}, err
	}

	target := s.names.NextPath(time.Now())
	logger.Infof("capturing photo: %s", target)

	switched := s.machine.Current() != StateStill
	wasOn := s.previewOn

	if switched {
		logger.Info("switching to high-resolution mode")
		if s.streaming {
			if err := s.dev.Stop(); err != nil {
				return CaptureResult{}, fmt.Errorf("stop device for still switch: %w", err)
			}
			s.streaming = false
			s.previewOn = false
		}
		if err := s.dev.Configure(s.still); err != nil {
			s.recover(wasOn)
			return CaptureResult{}, fmt.Errorf("configure still profile: %w", err)
		}
		if err := s.machine.Event("configure_still"); err != nil {
			s.recover(wasOn)
			return CaptureResult{}, err
		}
		if err := s.dev.Start(); err != nil {
			s.recover(wasOn)
			return CaptureResult{}, fmt.Errorf("start still stream: %w", err)
		}
		s.streaming = true
		// let auto exposure and focus stabilize at the new resolution
		time.Sleep(s.settle)
	} else if !s.streaming {
		if err := s.dev.Start(); err != nil {
			return CaptureResult{}, fmt.Errorf("start still stream: %w", err)
		}
		s.streaming = true
		time.Sleep(s.settle)
	}

	frame, err := s.dev.Frame(s.frameTimeout)
	if err != nil {
		if switched && wasOn {
			s.recover(wasOn)
		}
		return CaptureResult{}, fmt.Errorf("grab still frame: %w", err)
	}

	writeErr := os.WriteFile(target, frame, 0660)

	if switched && wasOn {
		logger.Info("returning to preview mode")
		s.recover(wasOn)
	}

	if writeErr != nil {
		return CaptureResult{}, fmt.Errorf("write photo: %w", writeErr)
	}
	info, err := os.Stat(target)
	if err != nil {
		return CaptureResult{}, ErrNoPhoto
	}

	s.captures++
	s.lastPhoto = target
	logger.Infof("photo saved: %s (%d bytes)", target, info.Size())

	return CaptureResult{Path: target, Size: info.Size()}, nil
}

// recover returns the device to the preview profile after a still excursion
// and restarts streaming when the preview had been on. Failure to restore
// marks the session broken rather than leaving the device in a configuration
// that is neither profile.
func (s *Session) recover(resume bool) {
	if s.streaming {
		if err := s.dev.Stop(); err != nil {
			logger.Errorf("stop device during recovery: %s", err)
			s.broken = true
			return
		}
		s.streaming = false
	}
	if s.machine.Current() != StatePreview {
		if err := s.dev.Configure(s.preview); err != nil {
			logger.Errorf("restore preview profile: %s", err)
			s.broken = true
			return
		}
		if err := s.machine.Event("configure_preview"); err != nil {
			logger.Errorf("restore preview mode: %s", err)
			s.broken = true
			return
		}
	}
	if resume {
		if err := s.dev.Start(); err != nil {
			logger.Errorf("resume preview: %s", err)
			s.broken = true
			return
		}
		s.streaming = true
		s.previewOn = true
	}
}

// Properties returns device introspection data. Failures are logged and
// yield an empty map, never an error that stops the caller.
func (s *Session) Properties() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	props, err := s.dev.Properties()
	if err != nil {
		logger.Warnf("get device properties: %s", err)
		return map[string]string{}
	}

	return props
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		State:       s.machine.Current(),
		PreviewOn:   s.previewOn,
		Broken:      s.broken,
		Captures:    s.captures,
		LastPhoto:   s.lastPhoto,
		PreviewSize: s.preview.Main,
		StillSize:   s.still.Main,
	}
}

// Shutdown stops streaming and releases the device. It is idempotent and
// waits for any in-flight capture to finish before touching the device.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Is(StateClosed) {
		return nil
	}

	var firstErr error
	if s.streaming {
		if err := s.dev.Stop(); err != nil {
			firstErr = err
			logger.Warnf("stop device on shutdown: %s", err)
		}
		s.streaming = false
		s.previewOn = false
	}
	if err := s.dev.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.machine.Event("close"); err != nil && firstErr == nil {
		firstErr = err
	}
	logger.Info("camera session closed")

	return firstErr
}

func (s *Session) usable() error {
	if s.machine.Is(StateClosed) {
		return ErrClosed
	}
	if s.broken {
		return ErrBroken
	}
	return nil
}
