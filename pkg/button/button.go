// Package button turns a hardware GPIO shutter button into debounced press
// events on a channel. A single physical press yields exactly one event even
// when the contact bounce delivers several raw edges.
package button

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hq-shutter-pi/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

const defaultPollInterval = 10 * time.Millisecond

// debouncer collapses raw edges within a fixed window into one logical event.
type debouncer struct {
	window time.Duration
	last   time.Time
}

func (d *debouncer) allow(t time.Time) bool {
	if !d.last.IsZero() && t.Sub(d.last) < d.window {
		return false
	}
	d.last = t
	return true
}

// Watcher polls a GPIO line for falling edges and delivers debounced press
// timestamps into the presses channel. Sends are non-blocking: a press that
// arrives while the consumer is still busy with the previous one is dropped.
type Watcher struct {
	line    Line
	pin     int
	poll    time.Duration
	deb     debouncer
	presses chan<- time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher wires a line to a press channel. debounce is the suppression
// window for contact bounce.
func NewWatcher(line Line, pin int, debounce time.Duration, presses chan<- time.Time) *Watcher {
	return &Watcher{
		line:    line,
		pin:     pin,
		poll:    defaultPollInterval,
		deb:     debouncer{window: debounce},
		presses: presses,
	}
}

// Start claims the pin and launches the polling goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.line.Open(w.pin); err != nil {
		return fmt.Errorf("setup button on pin %d: %w", w.pin, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.watch(ctx)
	logger.Infof("shutter button ready on pin %d", w.pin)

	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !w.line.EdgeDetected() {
				continue
			}
			if !w.deb.allow(now) {
				continue
			}
			logger.Info("button pressed")
			select {
			case w.presses <- now:
			default:
				// consumer busy, drop rather than queue a burst
			}
		}
	}
}

// Stop halts polling and releases the pin. Safe to call when Start failed.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
		w.cancel = nil
	}

	return w.line.Close()
}
