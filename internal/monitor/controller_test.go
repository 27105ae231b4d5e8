package monitor

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serial-monitor-examples/internal/serialport"
)

type scriptedPort struct {
	data   chan string
	errs   chan error
	closed atomic.Bool
}

func newScriptedPort() *scriptedPort {
	return &scriptedPort{
		data: make(chan string, 16),
		errs: make(chan error, 1),
	}
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	select {
	case s := <-p.data:
		return copy(b, s), nil
	case err := <-p.errs:
		return 0, err
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (p *scriptedPort) Close() error {
	p.closed.Store(true)
	return nil
}

type testRig struct {
	ctrl  *Controller
	port  *scriptedPort
	opens atomic.Int32
}

func newTestRig(t *testing.T, ports []serialport.PortDescriptor, openErr error, opts ...func(*ControllerConfig)) *testRig {
	t.Helper()
	rig := &testRig{port: newScriptedPort()}
	cfg := ControllerConfig{
		ListPorts: func() ([]serialport.PortDescriptor, error) {
			return ports, nil
		},
		Worker: serialport.Config{
			PollInterval: time.Millisecond,
			Open: func(string, int, time.Duration) (serialport.Port, error) {
				rig.opens.Add(1)
				if openErr != nil {
					return nil, openErr
				}
				return rig.port, nil
			},
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	rig.ctrl = NewController(cfg)
	t.Cleanup(rig.ctrl.Close)
	return rig
}

func messages(l *Log) []string {
	var out []string
	for _, e := range l.Entries() {
		out = append(out, e.Message)
	}
	return out
}

func countPrefix(l *Log, prefix string) int {
	n := 0
	for _, m := range messages(l) {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func TestRefreshPortsWithoutDevices(t *testing.T) {
	rig := newTestRig(t, nil, nil)

	ports := rig.ctrl.RefreshPorts()
	require.Len(t, ports, 1)
	assert.Equal(t, serialport.Placeholder, ports[0])
	assert.Empty(t, ports[0].Path)

	err := rig.ctrl.Toggle(ports[0].Path)
	assert.ErrorIs(t, err, ErrNoPort)
	assert.False(t, rig.ctrl.Connected())
	assert.Zero(t, rig.opens.Load())
	assert.Equal(t, []string{"Select a valid port."}, messages(rig.ctrl.Log()))
}

func TestRefreshPortsListError(t *testing.T) {
	ctrl := NewController(ControllerConfig{
		ListPorts: func() ([]serialport.PortDescriptor, error) {
			return nil, errors.New("enumeration unsupported")
		},
	})

	ports := ctrl.RefreshPorts()
	assert.Equal(t, []serialport.PortDescriptor{serialport.Placeholder}, ports)
	assert.Equal(t, []string{"ERROR: enumeration unsupported"}, messages(ctrl.Log()))
}

func TestRefreshPortsReplacesList(t *testing.T) {
	found := []serialport.PortDescriptor{{Path: "/dev/ttyUSB0", Description: "FT232R"}}
	rig := newTestRig(t, found, nil)

	assert.Equal(t, found, rig.ctrl.RefreshPorts())
	assert.Equal(t, found, rig.ctrl.Ports())
}

func TestToggleConnectsAndDisconnects(t *testing.T) {
	rig := newTestRig(t, []serialport.PortDescriptor{{Path: "/dev/ttyUSB0", Description: "FT232R"}}, nil)
	ports := rig.ctrl.RefreshPorts()

	require.NoError(t, rig.ctrl.Toggle(ports[0].Path))
	assert.True(t, rig.ctrl.Connected())

	rig.port.data <- "hello\n"
	assert.Eventually(t, func() bool {
		return countPrefix(rig.ctrl.Log(), "RX: hello") == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, rig.ctrl.Toggle(ports[0].Path))
	assert.False(t, rig.ctrl.Connected())
	assert.True(t, rig.port.closed.Load())

	msgs := messages(rig.ctrl.Log())
	assert.Equal(t, "Connected on /dev/ttyUSB0", msgs[0])
	assert.Equal(t, "Stopping worker...", msgs[len(msgs)-1])
}

func TestOpenFailureReportsOnce(t *testing.T) {
	rig := newTestRig(t, nil, errors.New("busy"))

	require.NoError(t, rig.ctrl.Toggle("/dev/ttyUSB9"))
	assert.Eventually(t, func() bool {
		return !rig.ctrl.Connected()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return countPrefix(rig.ctrl.Log(), "ERROR: port open failed") > 0
	}, 2*time.Second, 5*time.Millisecond)

	// Give a stray second report time to show up.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, countPrefix(rig.ctrl.Log(), "ERROR: port open failed"))
}

func TestReadFailureAllowsReconnect(t *testing.T) {
	rig := newTestRig(t, nil, nil)

	require.NoError(t, rig.ctrl.Toggle("/dev/ttyACM0"))
	rig.port.errs <- errors.New("device unplugged")
	assert.Eventually(t, func() bool {
		return !rig.ctrl.Connected()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return countPrefix(rig.ctrl.Log(), "ERROR: read failed") == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, rig.ctrl.Toggle("/dev/ttyACM0"))
	assert.True(t, rig.ctrl.Connected())
	assert.Eventually(t, func() bool {
		return rig.opens.Load() == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCloseStopsWorker(t *testing.T) {
	rig := newTestRig(t, nil, nil)

	require.NoError(t, rig.ctrl.Toggle("/dev/ttyACM0"))
	rig.ctrl.Close()
	assert.False(t, rig.ctrl.Connected())
	assert.True(t, rig.port.closed.Load())
}

func TestOnChangeFiresFromRelay(t *testing.T) {
	rig := newTestRig(t, nil, nil)
	var calls atomic.Int32
	rig.ctrl.SetOnChange(func() { calls.Add(1) })

	require.NoError(t, rig.ctrl.Toggle("/dev/ttyACM0"))
	before := calls.Load()
	rig.port.data <- "x\n"
	assert.Eventually(t, func() bool {
		return calls.Load() > before
	}, 2*time.Second, 5*time.Millisecond)
}

// stuckPort blocks every Read until release is closed.
type stuckPort struct {
	release chan struct{}
	entered chan struct{}
	once    sync.Once
	closed  atomic.Bool
}

func (p *stuckPort) Read([]byte) (int, error) {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return 0, nil
}

func (p *stuckPort) Close() error {
	p.closed.Store(true)
	return nil
}

func TestToggleWaitsForPreviousWorker(t *testing.T) {
	port := &stuckPort{release: make(chan struct{}), entered: make(chan struct{})}
	var opens atomic.Int32
	ctrl := NewController(ControllerConfig{
		StopTimeout: 20 * time.Millisecond,
		Worker: serialport.Config{
			PollInterval: time.Millisecond,
			Open: func(string, int, time.Duration) (serialport.Port, error) {
				opens.Add(1)
				return port, nil
			},
		},
	})
	t.Cleanup(ctrl.Close)

	require.NoError(t, ctrl.Toggle("/dev/ttyUSB0"))
	select {
	case <-port.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never reached Read")
	}

	assert.ErrorIs(t, ctrl.Toggle("/dev/ttyUSB0"), ErrStillStopping)
	assert.True(t, ctrl.Connected())
	assert.ErrorIs(t, ctrl.Toggle("/dev/ttyUSB0"), ErrStillStopping)
	assert.True(t, ctrl.Connected())
	assert.EqualValues(t, 1, opens.Load())
	assert.False(t, port.closed.Load())

	close(port.release)
	assert.Eventually(t, func() bool {
		return !ctrl.Connected()
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, port.closed.Load())

	require.NoError(t, ctrl.Toggle("/dev/ttyUSB0"))
	assert.True(t, ctrl.Connected())
	assert.Eventually(t, func() bool {
		return opens.Load() == 2
	}, 2*time.Second, 5*time.Millisecond)
}
