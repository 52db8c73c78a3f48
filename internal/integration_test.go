package internal

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/x708-power/internal/battery"
	"github.com/sweeney/x708-power/internal/gpio"
	"github.com/sweeney/x708-power/internal/power"
)

// rig wires fakes for GPIO, I2C, and OS actions into a real
// controller, monitor, and classifier — the full daemon minus the
// hardware and the cobra entrypoint.
type rig struct {
	lines *gpio.FakeLines
	bus   *battery.FakeBus
	sys   *power.FakeSystem
	ctrl  *power.Controller

	tick chan time.Time
	sig  chan os.Signal
	done chan struct{}
}

func newRig(t *testing.T) *rig {
	t.Helper()

	r := &rig{
		lines: gpio.NewFakeLines(),
		bus: battery.NewFakeBus(map[uint8]uint16{
			0x02: battery.EncodeWord(0xC800),   // voltage register: 4.0 V
			0x04: battery.EncodeWord(80 * 256), // capacity register: 80 %
		}),
		sys:  &power.FakeSystem{},
		tick: make(chan time.Time),
		sig:  make(chan os.Signal, 1),
		done: make(chan struct{}),
	}

	r.ctrl = power.NewController(battery.NewGauge(r.bus), r.lines, r.sys)
	r.ctrl.Sleep = func(time.Duration) {} // skip the 3s hold in tests

	monitor := power.NewPowerLossMonitor(r.lines, gpio.PinPowerLost, r.ctrl.OnPowerLossChange)
	require.NoError(t, monitor.Start())
	t.Cleanup(monitor.Close)

	button := power.NewButtonPressClassifier(r.lines, gpio.PinButton, 250*time.Millisecond, r.ctrl.OnButtonPress)
	require.NoError(t, button.Start())
	t.Cleanup(button.Close)

	return r
}

func (r *rig) start() {
	go func() {
		r.ctrl.Run(r.tick, r.sig)
		close(r.done)
	}()
}

func (r *rig) waitExit(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("controller loop did not exit")
	}
}

// pumpUntil sends poll ticks until cond holds or the deadline expires.
func (r *rig) pumpUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached while pumping poll ticks")
		}
		select {
		case r.tick <- time.Now():
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestIntegrationLowBatteryShutdown(t *testing.T) {
	r := newRig(t)
	r.start()

	// Mains power fails while the battery is still healthy.
	r.lines.InjectEdge(gpio.PinPowerLost, true)
	r.tick <- time.Now()
	require.Equal(t, 0, r.sys.ShutdownCount())

	// The battery drains below both thresholds.
	r.bus.SetWord(0x02, battery.EncodeWord(0x9600)) // 3.0 V
	r.bus.SetWord(0x04, battery.EncodeWord(10*256)) // 10 %

	r.pumpUntil(t, func() bool { return r.sys.ShutdownCount() == 1 })

	// The power-off line was pulsed high then low exactly once.
	writes := r.lines.PinWrites(gpio.PinPowerOffHold)
	require.Len(t, writes, 2)
	assert.True(t, writes[0].Level)
	assert.False(t, writes[1].Level)

	// Further polls must not re-run the sequence.
	r.tick <- time.Now()
	r.tick <- time.Now()
	assert.Equal(t, 1, r.sys.ShutdownCount())
	assert.Len(t, r.lines.PinWrites(gpio.PinPowerOffHold), 2)

	// The OS eventually delivers SIGTERM as part of shutdown.
	r.sig <- syscall.SIGTERM
	r.waitExit(t)
	assert.Equal(t, power.Terminated, r.ctrl.State())
}

func TestIntegrationPowerRestoredNoShutdown(t *testing.T) {
	r := newRig(t)
	r.start()

	// Power lost, then restored before the battery drains.
	r.lines.InjectEdge(gpio.PinPowerLost, true)
	r.lines.InjectEdge(gpio.PinPowerLost, false)

	// Battery now reads low, but mains power is back.
	r.bus.SetWord(0x02, battery.EncodeWord(0x9600)) // 3.0 V
	r.bus.SetWord(0x04, battery.EncodeWord(10*256)) // 10 %

	for i := 0; i < 3; i++ {
		r.tick <- time.Now()
	}
	assert.Equal(t, 0, r.sys.ShutdownCount())

	r.sig <- syscall.SIGINT
	r.waitExit(t)
	assert.Empty(t, r.lines.PinWrites(gpio.PinPowerOffHold))
}

func TestIntegrationLongPressShutsDown(t *testing.T) {
	r := newRig(t)
	r.start()

	// Button held past the classify timeout.
	r.lines.InjectEdge(gpio.PinButton, true)

	r.waitExit(t)
	assert.Equal(t, 1, r.sys.ShutdownCount())
	assert.Equal(t, 0, r.sys.RebootCount())
	assert.Equal(t, power.Terminated, r.ctrl.State())
	// A long press asks the OS to shut down; the power-off line is the
	// board's own business once the OS halts.
	assert.Empty(t, r.lines.PinWrites(gpio.PinPowerOffHold))
}

func TestIntegrationShortPressReboots(t *testing.T) {
	r := newRig(t)
	r.start()

	r.lines.InjectEdge(gpio.PinButton, true)
	time.Sleep(25 * time.Millisecond)
	r.lines.InjectEdge(gpio.PinButton, false)

	r.waitExit(t)
	assert.Equal(t, 1, r.sys.RebootCount())
	assert.Equal(t, 0, r.sys.ShutdownCount())
}

// A daemon booted with mains already lost and the battery depleted
// must power off from the startup evaluation, before any poll tick.
func TestIntegrationStartupOnDepletedBattery(t *testing.T) {
	lines := gpio.NewFakeLines()
	lines.SetLevel(gpio.PinPowerLost, true)

	bus := battery.NewFakeBus(map[uint8]uint16{
		0x02: battery.EncodeWord(0x9600),   // voltage register: 3.0 V
		0x04: battery.EncodeWord(10 * 256), // capacity register: 10 %
	})
	sys := &power.FakeSystem{}

	ctrl := power.NewController(battery.NewGauge(bus), lines, sys)
	ctrl.Sleep = func(time.Duration) {}

	// The monitor's initial read queues the power-lost report before
	// the controller loop ever runs.
	monitor := power.NewPowerLossMonitor(lines, gpio.PinPowerLost, ctrl.OnPowerLossChange)
	require.NoError(t, monitor.Start())
	t.Cleanup(monitor.Close)

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		ctrl.Run(tick, sig)
		close(done)
	}()

	ctrl.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("controller loop did not exit")
	}

	assert.Equal(t, 1, sys.ShutdownCount(), "power-off must not wait for the first poll tick")
	writes := lines.PinWrites(gpio.PinPowerOffHold)
	require.Len(t, writes, 2)
	assert.True(t, writes[0].Level)
	assert.False(t, writes[1].Level)
}

func TestIntegrationSignalExitsCleanly(t *testing.T) {
	r := newRig(t)
	r.start()

	r.sig <- syscall.SIGTERM
	r.waitExit(t)

	assert.Equal(t, 0, r.sys.ShutdownCount())
	assert.Equal(t, 0, r.sys.RebootCount())
	assert.Empty(t, r.lines.PinWrites(gpio.PinPowerOffHold))
	assert.Equal(t, power.Terminated, r.ctrl.State())
}
