// Package console is the interactive surface of the controller: a
// line-oriented command loop on stdin plus the hardware button feed. Both
// ingress paths are funneled into one command queue with a single consumer,
// so capture requests execute in a strict total order regardless of origin.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"hq-shutter-pi/pkg/camera"
	"hq-shutter-pi/pkg/process"
	"hq-shutter-pi/pkg/storage"
	"hq-shutter-pi/pkg/utils"
	"hq-shutter-pi/pkg/utils/ps"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

// Session is the slice of the camera session the dispatcher drives.
type Session interface {
	StartPreview() error
	Capture() (camera.CaptureResult, error)
	Status() camera.Status
	Properties() map[string]string
	Shutdown() error
}

type command int

const (
	cmdCapture command = iota
	cmdStatus
	cmdQuit
)

// Dispatcher owns the command queue and its single consumer.
type Dispatcher struct {
	session Session
	proc    process.Processor
	store   *storage.Store
	presses <-chan time.Time
	pin     int

	in   io.Reader
	out  io.Writer
	cmds chan command
}

// New builds a dispatcher reading commands from in and writing status text to
// out. presses is the debounced hardware button feed (may be nil when the
// button is unavailable).
func New(session Session, proc process.Processor, store *storage.Store, presses <-chan time.Time, pin int, in io.Reader, out io.Writer) *Dispatcher {
	return &Dispatcher{
		session: session,
		proc:    proc,
		store:   store,
		presses: presses,
		pin:     pin,
		in:      in,
		out:     out,
		cmds:    make(chan command, 4),
	}
}

// Run prints the device info and help banner, starts the preview, and serves
// commands until `q`, EOF, or ctx cancellation. The session is shut down on
// every exit path.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer func() {
		if err := d.session.Shutdown(); err != nil {
			logger.Warnf("session shutdown: %s", err)
		}
	}()

	d.printProperties()

	if err := d.session.StartPreview(); err != nil {
		logger.Errorf("start preview: %s", err)
	}

	d.printBanner()

	go d.readInput(ctx)
	if d.presses != nil {
		go d.forwardPresses(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(d.out, "\nshutting down...")
			return nil
		case cmd := <-d.cmds:
			switch cmd {
			case cmdCapture:
				d.capture()
			case cmdStatus:
				d.printStatus()
			case cmdQuit:
				fmt.Fprintln(d.out, "quitting...")
				return nil
			}
		}
	}
}

// readInput maps stdin lines onto queued commands. It returns after `q` or
// EOF; malformed input is reported and the loop continues.
func (d *Dispatcher) readInput(ctx context.Context) {
	scanner := bufio.NewScanner(d.in)
	for {
		fmt.Fprint(d.out, "command (c/s/q): ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Warnf("read input: %s", err)
			}
			d.send(ctx, cmdQuit)
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "c":
			d.send(ctx, cmdCapture)
		case "s":
			d.send(ctx, cmdStatus)
		case "q":
			d.send(ctx, cmdQuit)
			return
		case "":
		default:
			fmt.Fprintln(d.out, "invalid command: use 'c' to capture, 's' for status, 'q' to quit")
		}
	}
}

// forwardPresses turns button events into capture commands on the same
// queue. A press arriving while the queue is full is dropped; the capture it
// would trigger is already pending.
func (d *Dispatcher) forwardPresses(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-d.presses:
			if !ok {
				return
			}
			select {
			case d.cmds <- cmdCapture:
			default:
			}
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, cmd command) {
	select {
	case d.cmds <- cmd:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) capture() {
	res, err := d.session.Capture()
	if err != nil {
		fmt.Fprintf(d.out, "capture failed: %s\n", err)
		return
	}
	if err := d.store.Record(res.Path); err != nil {
		logger.Warnf("record capture: %s", err)
	}
	fmt.Fprintf(d.out, "photo saved: %s (%s)\n", res.Path, humanize.Bytes(uint64(res.Size)))

	processed, err := d.proc.Apply(res.Path)
	if err != nil {
		fmt.Fprintf(d.out, "post-processing failed: %s\n", err)
		return
	}
	if processed != res.Path {
		fmt.Fprintf(d.out, "processed photo: %s\n", processed)
	}
}

func (d *Dispatcher) printProperties() {
	props := d.session.Properties()
	if len(props) == 0 {
		return
	}
	fmt.Fprintln(d.out, "camera information:")
	for k, v := range props {
		fmt.Fprintf(d.out, "  %s: %s\n", k, v)
	}
}

func (d *Dispatcher) printBanner() {
	fmt.Fprintln(d.out, "camera controls:")
	fmt.Fprintln(d.out, "  c + enter  capture a photo")
	fmt.Fprintln(d.out, "  s + enter  show status")
	fmt.Fprintln(d.out, "  q + enter  quit")
	if d.presses != nil {
		fmt.Fprintf(d.out, "  or press the hardware button on GPIO %d\n", d.pin)
	}
}

func (d *Dispatcher) printStatus() {
	st := d.session.Status()
	fmt.Fprintln(d.out, "camera status:")
	fmt.Fprintf(d.out, "  mode: %s\n", st.State)
	fmt.Fprintf(d.out, "  preview active: %t\n", st.PreviewOn)
	if st.Broken {
		fmt.Fprintln(d.out, "  session unusable, restart required")
	}
	fmt.Fprintf(d.out, "  preview size: %s\n", st.PreviewSize)
	fmt.Fprintf(d.out, "  still size: %s\n", st.StillSize)
	fmt.Fprintf(d.out, "  photos dir: %s\n", d.store.Dir())
	fmt.Fprintf(d.out, "  button pin: %d\n", d.pin)

	if count, err := d.store.Count(); err == nil {
		fmt.Fprintf(d.out, "  captures: %d\n", count)
	}
	if latest, err := d.store.Latest(); err == nil && latest != "" {
		fmt.Fprintf(d.out, "  latest photo: %s\n", latest)
	}
	if size, err := ps.DirDiskUsage(d.store.Dir()); err == nil {
		fmt.Fprintf(d.out, "  photos size: %s\n", humanize.Bytes(uint64(size)))
	}
	if usage, err := ps.DiskUsage(d.store.Dir()); err == nil {
		fmt.Fprintf(d.out, "  disk: %s free of %s (%.1f%% used)\n",
			humanize.Bytes(usage.Free), humanize.Bytes(usage.Total), usage.UsedPercent)
	}
	if memory, err := ps.MemoryStatus(); err == nil {
		fmt.Fprintf(d.out, "  memory: %s used of %s (%.1f%%)\n",
			humanize.Bytes(memory.Used), humanize.Bytes(memory.Total), memory.UsedPercent)
	}
}
