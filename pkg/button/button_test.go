package button

import (
	"context"
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := debouncer{window: 300 * time.Millisecond}
	base := time.Now()

	if !d.allow(base) {
		t.Fatal("first edge rejected")
	}
	// contact bounce: raw edges well inside the window
	for _, dt := range []time.Duration{5, 50, 120, 299} {
		if d.allow(base.Add(dt * time.Millisecond)) {
			t.Errorf("edge at +%dms passed the debounce window", dt)
		}
	}
	if !d.allow(base.Add(301 * time.Millisecond)) {
		t.Error("edge after the window rejected")
	}
}

func TestDebouncerSeparatePresses(t *testing.T) {
	d := debouncer{window: 300 * time.Millisecond}
	base := time.Now()

	allowed := 0
	for i := 0; i < 3; i++ {
		if d.allow(base.Add(time.Duration(i) * 400 * time.Millisecond)) {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed = %d presses, want 3", allowed)
	}
}

func TestWatcherDeliversPress(t *testing.T) {
	line := &MockLine{}
	presses := make(chan time.Time, 1)
	w := NewWatcher(line, 17, time.Millisecond, presses)
	w.poll = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	line.Press()

	select {
	case <-presses:
	case <-time.After(time.Second):
		t.Fatal("press never delivered")
	}
}

func TestWatcherDebouncesRawEdges(t *testing.T) {
	line := &MockLine{}
	presses := make(chan time.Time, 8)
	w := NewWatcher(line, 17, time.Second, presses)
	w.poll = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// one physical press, several raw edges
	for i := 0; i < 5; i++ {
		line.Press()
		time.Sleep(3 * time.Millisecond)
	}

	select {
	case <-presses:
	case <-time.After(time.Second):
		t.Fatal("press never delivered")
	}
	select {
	case <-presses:
		t.Fatal("bounce produced a second logical press")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcherStopIsClean(t *testing.T) {
	line := &MockLine{}
	presses := make(chan time.Time, 1)
	w := NewWatcher(line, 17, time.Millisecond, presses)
	w.poll = time.Millisecond

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// no deliveries after stop
	line.Press()
	select {
	case <-presses:
		t.Fatal("press delivered after Stop")
	case <-time.After(20 * time.Millisecond):
	}
}
