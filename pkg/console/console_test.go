package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"hq-shutter-pi/pkg/camera"
	"hq-shutter-pi/pkg/process"
	"hq-shutter-pi/pkg/storage"
)

// fakeSession counts calls and fabricates capture results.
type fakeSession struct {
	mu        sync.Mutex
	previews  int
	captures  int
	shutdowns int

	captureErr error
}

func (s *fakeSession) StartPreview() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews++
	return nil
}

func (s *fakeSession) Capture() (camera.CaptureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captureErr != nil {
		return camera.CaptureResult{}, s.captureErr
	}
	s.captures++
	return camera.CaptureResult{
		Path: fmt.Sprintf("photos/photo_%d.jpg", s.captures),
		Size: 1024,
	}, nil
}

func (s *fakeSession) Status() camera.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return camera.Status{
		State:       camera.StatePreview,
		PreviewOn:   true,
		PreviewSize: camera.Size{Width: 1640, Height: 1232},
		StillSize:   camera.Size{Width: 4056, Height: 3040},
	}
}

func (s *fakeSession) Properties() map[string]string {
	return map[string]string{"card": "fake camera"}
}

func (s *fakeSession) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdowns++
	return nil
}

func (s *fakeSession) captureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}

func (s *fakeSession) shutdownCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdowns
}

func newTestDispatcher(t *testing.T, session Session, in io.Reader, presses <-chan time.Time) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "photos"))
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	return New(session, process.Passthrough{}, store, presses, 17, in, out), out
}

func TestCaptureCommandThenQuit(t *testing.T) {
	session := &fakeSession{}
	d, out := newTestDispatcher(t, session, strings.NewReader("c\nq\n"), nil)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if session.captureCount() != 1 {
		t.Errorf("captures = %d, want 1", session.captureCount())
	}
	if session.shutdownCount() != 1 {
		t.Errorf("shutdowns = %d, want 1", session.shutdownCount())
	}
	if !strings.Contains(out.String(), "photo saved: photos/photo_1.jpg") {
		t.Errorf("output missing capture report:\n%s", out.String())
	}

	count, err := d.store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("recorded captures = %d, want 1", count)
	}
}

func TestInvalidCommandKeepsLoopAlive(t *testing.T) {
	session := &fakeSession{}
	d, out := newTestDispatcher(t, session, strings.NewReader("x\nc\nq\n"), nil)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), "invalid command") {
		t.Errorf("no diagnostic for unknown input:\n%s", out.String())
	}
	if session.captureCount() != 1 {
		t.Errorf("captures = %d, want 1 (loop should survive bad input)", session.captureCount())
	}
}

func TestStatusCommand(t *testing.T) {
	session := &fakeSession{}
	d, out := newTestDispatcher(t, session, strings.NewReader("s\nq\n"), nil)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"mode: preview", "preview active: true", "preview size: 1640x1232", "still size: 4056x3040", "button pin: 17"} {
		if !strings.Contains(text, want) {
			t.Errorf("status output missing %q:\n%s", want, text)
		}
	}
}

func TestCaptureErrorReported(t *testing.T) {
	session := &fakeSession{captureErr: errors.New("sensor on fire")}
	d, out := newTestDispatcher(t, session, strings.NewReader("c\nq\n"), nil)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "capture failed: sensor on fire") {
		t.Errorf("capture error not surfaced:\n%s", out.String())
	}
	if session.shutdownCount() != 1 {
		t.Errorf("shutdowns = %d, want 1", session.shutdownCount())
	}
}

func TestButtonPressTriggersCapture(t *testing.T) {
	session := &fakeSession{}
	presses := make(chan time.Time, 1)
	// stdin stays open; quit comes via context
	in, inW := io.Pipe()
	defer inW.Close()
	d, _ := newTestDispatcher(t, session, in, presses)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	presses <- time.Now()
	deadline := time.After(time.Second)
	for session.captureCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("button press never captured")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.shutdownCount() != 1 {
		t.Errorf("shutdowns = %d, want 1", session.shutdownCount())
	}
}

func TestEOFQuits(t *testing.T) {
	session := &fakeSession{}
	d, _ := newTestDispatcher(t, session, strings.NewReader(""), nil)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.shutdownCount() != 1 {
		t.Errorf("shutdowns = %d, want 1", session.shutdownCount())
	}
}
