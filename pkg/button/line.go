package button

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// Line is the abstract GPIO edge-detection service. It allows plugging in the
// real Raspberry Pi implementation or a mock for development on PC.
type Line interface {
	// Open claims the pin as a pulled-up input with falling-edge detection.
	Open(pin int) error
	// EdgeDetected reports and clears a pending falling edge.
	EdgeDetected() bool
	Close() error
}

// NewLine creates a GPIO line based on the chosen mode. If mock is true a
// MockLine is returned (dev/test off the Pi).
func NewLine(mock bool) Line {
	if mock {
		logger.Info("using mock GPIO line (development mode)")
		return &MockLine{}
	}
	return &RPIOLine{}
}

// RPIOLine is the real implementation using go-rpio. Requires /dev/gpiomem
// access or root on a Raspberry Pi.
type RPIOLine struct {
	pin    rpio.Pin
	opened bool
}

func (l *RPIOLine) Open(pin int) error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}
	l.pin = rpio.Pin(pin)
	l.pin.Input()
	l.pin.PullUp()
	l.pin.Detect(rpio.FallEdge)
	l.opened = true

	return nil
}

func (l *RPIOLine) EdgeDetected() bool {
	return l.pin.EdgeDetected()
}

func (l *RPIOLine) Close() error {
	if !l.opened {
		return nil
	}
	l.pin.Detect(rpio.NoEdge)
	l.opened = false

	return rpio.Close()
}

// MockLine is a Line that fires an edge whenever Press is called.
type MockLine struct {
	mu      sync.Mutex
	pending bool
}

func (l *MockLine) Open(pin int) error {
	logger.Infof("mock GPIO line on pin %d", pin)
	return nil
}

// Press simulates one raw falling edge.
func (l *MockLine) Press() {
	l.mu.Lock()
	l.pending = true
	l.mu.Unlock()
}

func (l *MockLine) EdgeDetected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.pending
	l.pending = false
	return p
}

func (l *MockLine) Close() error {
	return nil
}
