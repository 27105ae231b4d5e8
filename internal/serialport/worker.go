package serialport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const (
	DefaultBaudRate     = 9600
	DefaultReadTimeout  = 500 * time.Millisecond
	DefaultPollInterval = 50 * time.Millisecond
)

var (
	ErrOpenFailed     = errors.New("port open failed")
	ErrReadFailed     = errors.New("read failed")
	ErrAlreadyStarted = errors.New("worker already started")
)

// State is the lifecycle position of a Worker.
type State int32

const (
	Idle State = iota
	Opening
	Reading
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Reading:
		return "reading"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Port is the part of an open serial device the worker needs.
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

// Opener opens the device at path. A read on the returned port must give up
// after readTimeout and report (0, nil).
type Opener func(path string, baudRate int, readTimeout time.Duration) (Port, error)

// OpenSerial opens a real serial device as 8N1.
func OpenSerial(path string, baudRate int, readTimeout time.Duration) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return p, nil
}

// Config describes the port a Worker reads from. Zero fields take defaults.
type Config struct {
	Path         string
	BaudRate     int
	ReadTimeout  time.Duration
	PollInterval time.Duration
	Open         Opener
	Logger       *logrus.Entry
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Open == nil {
		c.Open = OpenSerial
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}

// Event is either a decoded line (Err == nil) or the error that ended the
// worker.
type Event struct {
	Time time.Time
	Line Line
	Err  error
}

// Worker reads lines from one serial port on a background goroutine and
// publishes them as events. A Worker runs at most once.
type Worker struct {
	cfg Config
	log *logrus.Entry

	mu     sync.Mutex // guards the Idle transitions and cancel
	state  atomic.Int32
	cancel context.CancelFunc

	events chan Event
	done   chan struct{} // closed once the goroutine has exited and the port is closed
}

func New(cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		cfg:    cfg,
		log:    cfg.Logger.WithField("port", cfg.Path),
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
}

func (w *Worker) Path() string {
	return w.cfg.Path
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// Running reports whether the worker has started and not yet exited.
func (w *Worker) Running() bool {
	s := w.State()
	return s == Opening || s == Reading
}

// Events is closed after the worker stops.
func (w *Worker) Events() <-chan Event {
	return w.events
}

func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Start opens the port and begins reading in a new goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.State() != Idle {
		return ErrAlreadyStarted
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.setState(Opening)

	go w.run(ctx)
	return nil
}

// Stop asks the worker to exit and waits up to timeout for it to do so.
// It reports whether the worker has exited.
func (w *Worker) Stop(timeout time.Duration) bool {
	w.mu.Lock()
	if w.State() == Idle {
		w.setState(Stopped)
		w.mu.Unlock()
		close(w.events)
		close(w.done)
		return true
	}
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return true
	case <-timer.C:
		w.log.WithField("timeout", timeout).Warn("worker did not stop in time")
		return false
	}
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
	w.log.WithField("state", s).Debug("serial worker state")
}

func (w *Worker) run(ctx context.Context) {
	defer func() {
		w.setState(Stopped)
		close(w.events)
		close(w.done)
	}()

	port, err := w.cfg.Open(w.cfg.Path, w.cfg.BaudRate, w.cfg.ReadTimeout)
	if err != nil {
		w.log.WithError(err).Warn("serial open failed")
		w.emit(ctx, Event{
			Time: time.Now(),
			Err:  fmt.Errorf("%w: %s: %w", ErrOpenFailed, w.cfg.Path, err),
		})
		return
	}
	defer func() {
		// Close errors are of no use to anyone at this point.
		if err := port.Close(); err != nil {
			w.log.WithError(err).Debug("serial close failed")
		}
	}()

	w.setState(Reading)
	w.read(ctx, port)
}

func (w *Worker) read(ctx context.Context, port Port) {
	buf := make([]byte, 1024)
	var partial []byte

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := port.Read(buf)
		if n > 0 {
			partial = append(partial, buf[:n]...)
			for {
				idx := bytes.IndexByte(partial, '\n')
				if idx < 0 {
					break
				}
				if !w.emitLine(ctx, partial[:idx]) {
					return
				}
				partial = partial[idx+1:]
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.WithError(err).Warn("serial read failed")
			w.emit(ctx, Event{
				Time: time.Now(),
				Err:  fmt.Errorf("%w: %w", ErrReadFailed, err),
			})
			return
		}

		if n == 0 {
			// Timed out with nothing new: hand over whatever is pending, like
			// a readline that hits its timeout.
			if len(partial) > 0 {
				if !w.emitLine(ctx, partial) {
					return
				}
				partial = nil
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.cfg.PollInterval):
			}
		}
	}
}

func (w *Worker) emitLine(ctx context.Context, raw []byte) bool {
	return w.emit(ctx, Event{Time: time.Now(), Line: Decode(raw)})
}

// emit prefers delivery over cancellation so a final error is not lost when
// Stop races with it.
func (w *Worker) emit(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	default:
	}
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
