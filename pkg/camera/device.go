package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
)

// Device is the camera device service the session drives. Configure requires
// a stopped device; Start begins streaming with the last applied profile.
type Device interface {
	Configure(p Profile) error
	Start() error
	Stop() error
	Frame(timeout time.Duration) ([]byte, error)
	Properties() (map[string]string, error)
	Close() error
}

// V4L2Device drives a /dev/videoN node through go4vl. V4L2 cannot change the
// pixel format of a streaming device, so each Start opens the node with the
// applied profile and Stop releases it again.
type V4L2Device struct {
	devName string

	lock    sync.Mutex
	profile Profile
	dev     *device.Device
	cancel  context.CancelFunc
	frames  <-chan []byte
}

// OpenV4L2 verifies the device node can be opened and returns a wrapper bound
// to it. The probe uses a small format so it works on any camera.
func OpenV4L2(devName string) (*V4L2Device, error) {
	probe, err := device.Open(
		devName,
		device.WithBufferSize(1),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtJPEG,
			Width:       320,
			Height:      240,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open camera device %s: %w", devName, err)
	}
	if err := probe.Close(); err != nil {
		return nil, fmt.Errorf("close probe device %s: %w", devName, err)
	}

	return &V4L2Device{devName: devName}, nil
}

func (d *V4L2Device) Configure(p Profile) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.dev != nil {
		return errors.New("device must be stopped before configure")
	}
	d.profile = p
	logger.Infof("camera configured for %s", p)

	return nil
}

func (d *V4L2Device) Start() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.dev != nil {
		return errors.New("device already started")
	}
	if d.profile.Main.Width == 0 {
		return errors.New("device not configured")
	}

	bufs := d.profile.BufferCount
	if bufs == 0 {
		bufs = 1
	}
	dev, err := device.Open(
		d.devName,
		device.WithBufferSize(bufs),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtJPEG,
			Width:       uint32(d.profile.Main.Width),
			Height:      uint32(d.profile.Main.Height),
		}),
	)
	if err != nil {
		return fmt.Errorf("open %s in %s: %w", d.devName, d.profile.Main, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := dev.Start(ctx); err != nil {
		cancel()
		_ = dev.Close()
		return fmt.Errorf("start %s in %s: %w", d.devName, d.profile.Main, err)
	}
	d.dev = dev
	d.cancel = cancel
	d.frames = dev.GetOutput()

	return nil
}

func (d *V4L2Device) Stop() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.stopLocked()
}

func (d *V4L2Device) stopLocked() error {
	if d.cancel != nil {
		// cancel first so the stream goroutine reaches ctx.Done and calls the
		// driver Stop before we close the fd
		d.cancel()
		time.Sleep(100 * time.Millisecond)
		d.cancel = nil
	}
	if d.dev != nil {
		err := d.dev.Close()
		d.dev = nil
		d.frames = nil
		return err
	}

	return nil
}

func (d *V4L2Device) Frame(timeout time.Duration) ([]byte, error) {
	d.lock.Lock()
	frames := d.frames
	d.lock.Unlock()
	if frames == nil {
		return nil, errors.New("stream not started")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-frames:
		if !ok {
			return nil, errors.New("stream closed")
		}
		cp := make([]byte, len(frame))
		copy(cp, frame)
		return cp, nil
	case <-timer.C:
		return nil, fmt.Errorf("no frame within %s", timeout)
	}
}

func (d *V4L2Device) Properties() (map[string]string, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	dev := d.dev
	if dev == nil {
		tmp, err := device.Open(
			d.devName,
			device.WithBufferSize(1),
			device.WithPixFormat(v4l2.PixFormat{
				PixelFormat: v4l2.PixelFmtJPEG,
				Width:       320,
				Height:      240,
			}),
		)
		if err != nil {
			return nil, err
		}
		defer tmp.Close()
		dev = tmp
	}

	caps := dev.Capability()
	res := map[string]string{
		"driver": caps.Driver,
		"card":   caps.Card,
		"bus":    caps.BusInfo,
	}
	if format, err := v4l2.GetPixFormat(dev.Fd()); err == nil {
		res["format"] = fmt.Sprintf("%dx%d", format.Width, format.Height)
	}

	return res, nil
}

func (d *V4L2Device) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.stopLocked()
}
