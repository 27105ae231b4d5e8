package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"serial-monitor-examples/internal/serialport"
)

const DefaultStopTimeout = time.Second

var (
	ErrNoPort        = errors.New("no valid port selected")
	ErrStillStopping = errors.New("previous worker has not exited yet")
)

// PortLister enumerates the serial ports present on the host.
type PortLister func() ([]serialport.PortDescriptor, error)

// ControllerConfig wires a Controller. Zero fields take defaults.
type ControllerConfig struct {
	ListPorts   PortLister
	Worker      serialport.Config // Path is filled in per connection
	StopTimeout time.Duration
	// Dispatch runs fn on the UI thread. Worker events are delivered
	// through it.
	Dispatch func(fn func())
	Now      func() time.Time
	Logger   *logrus.Entry
}

// Controller owns the port list, the single active worker and the log book
// behind the monitor window. Apart from Log, its methods must be called from
// the UI thread.
type Controller struct {
	listPorts   PortLister
	workerCfg   serialport.Config
	stopTimeout time.Duration
	dispatch    func(func())
	log         *logrus.Entry

	book     *Log
	ports    []serialport.PortDescriptor
	worker   *serialport.Worker
	onChange func()
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.ListPorts == nil {
		cfg.ListPorts = serialport.ListPorts
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(fn func()) { fn() }
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Worker.Logger == nil {
		cfg.Worker.Logger = cfg.Logger
	}
	return &Controller{
		listPorts:   cfg.ListPorts,
		workerCfg:   cfg.Worker,
		stopTimeout: cfg.StopTimeout,
		dispatch:    cfg.Dispatch,
		log:         cfg.Logger,
		book:        NewLog(cfg.Now),
	}
}

func (c *Controller) Log() *Log {
	return c.book
}

// SetOnChange registers fn to run (on the UI thread) whenever the log or the
// connection state changes.
func (c *Controller) SetOnChange(fn func()) {
	c.onChange = fn
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Ports returns the list built by the last RefreshPorts.
func (c *Controller) Ports() []serialport.PortDescriptor {
	return c.ports
}

// RefreshPorts rebuilds the port list. It never returns an empty list: when
// no device is found the placeholder takes its place.
func (c *Controller) RefreshPorts() []serialport.PortDescriptor {
	ports, err := c.listPorts()
	if err != nil {
		c.log.WithError(err).Warn("port enumeration failed")
		c.book.Appendf("ERROR: %v", err)
		c.changed()
		ports = nil
	}
	if len(ports) == 0 {
		ports = []serialport.PortDescriptor{serialport.Placeholder}
	}
	c.ports = ports
	return ports
}

// Connected reports whether a worker exists that has not exited.
func (c *Controller) Connected() bool {
	return c.worker != nil && c.worker.State() != serialport.Stopped
}

// Toggle stops the active worker, or starts one reading from path.
func (c *Controller) Toggle(path string) error {
	if c.Connected() {
		return c.stop()
	}
	c.worker = nil

	if path == "" {
		c.book.Append("Select a valid port.")
		c.changed()
		return ErrNoPort
	}

	cfg := c.workerCfg
	cfg.Path = path
	w := serialport.New(cfg)
	if err := w.Start(context.Background()); err != nil {
		return err
	}
	c.worker = w
	c.book.Appendf("Connected on %s", path)
	c.changed()

	go c.relay(w)
	return nil
}

func (c *Controller) stop() error {
	c.book.Append("Stopping worker...")
	c.changed()
	if !c.worker.Stop(c.stopTimeout) {
		c.book.Appendf("Worker on %s did not stop within %s", c.worker.Path(), c.stopTimeout)
		c.changed()
		return ErrStillStopping
	}
	c.worker = nil
	c.changed()
	return nil
}

// Close stops any active worker. The window calls it before quitting.
func (c *Controller) Close() {
	if !c.Connected() {
		return
	}
	if err := c.stop(); err != nil {
		c.log.WithError(err).Warn("closing with worker still running")
	}
}

// relay forwards worker events to the UI thread until the worker exits.
func (c *Controller) relay(w *serialport.Worker) {
	for ev := range w.Events() {
		c.dispatch(func() {
			if ev.Err != nil {
				c.book.Appendf("ERROR: %v", ev.Err)
			} else {
				c.book.Appendf("RX: %s", ev.Line.Text)
			}
			c.changed()
		})
	}
	c.dispatch(c.changed)
}
