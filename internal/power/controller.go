package power

import (
	"math"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/x708-power/internal/battery"
	"github.com/sweeney/x708-power/internal/gpio"
)

// Thresholds for the shutdown decision. The board ships with fixed
// values; they are deliberately not configurable.
const (
	// MinVoltage is the battery voltage below which the host must
	// shut down while on battery power.
	MinVoltage = 3.2

	// MinCapacity is the battery percentage below which the host must
	// shut down while on battery power.
	MinCapacity = 15.0

	// ClassifyTimeout is how long a button press may last and still
	// count as short.
	ClassifyTimeout = 2 * time.Second

	// PowerOffHold is how long the power-off line is held high so the
	// board's MCU registers the emulated button press.
	PowerOffHold = 3 * time.Second

	// PollInterval is the battery evaluation period.
	PollInterval = 5 * time.Second
)

// State is the controller's lifecycle state.
type State int

const (
	// Running means the evaluation loop is active.
	Running State = iota

	// ShuttingDown means the low-battery power-off sequence has been
	// issued and the controller is waiting for the OS to take over.
	ShuttingDown

	// Terminated is terminal: the loop has exited or is about to.
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Gauge supplies paired battery readings.
type Gauge interface {
	ReadMetrics() (battery.Reading, error)
}

// Controller owns the shutdown decision. All mutable state is touched
// only from the Run loop; hardware callbacks deliver into it through
// bounded channels, so no mutex guards the fields below.
type Controller struct {
	gauge Gauge
	out   gpio.Output
	sys   System

	// Now and Sleep are seams for tests; NewController sets both to
	// the real clock.
	Now   func() time.Time
	Sleep func(time.Duration)

	powerCh chan bool
	pressCh chan PressOutcome
	done    chan struct{}
	stop    sync.Once

	state              State
	powerLost          bool
	inModeSince        time.Time
	lastLoggedCapacity float64
}

// NewController creates a controller in the Running state with no
// power-loss condition and no battery reading yet.
func NewController(gauge Gauge, out gpio.Output, sys System) *Controller {
	c := &Controller{
		gauge:              gauge,
		out:                out,
		sys:                sys,
		Now:                time.Now,
		Sleep:              time.Sleep,
		powerCh:            make(chan bool, 4),
		pressCh:            make(chan PressOutcome, 4),
		done:               make(chan struct{}),
		lastLoggedCapacity: -1,
	}
	c.inModeSince = c.Now()
	return c
}

// OnPowerLossChange delivers a power-state change into the run loop.
// Safe to call from hardware callback goroutines; blocks only if the
// bounded channel is full and the daemon is not terminating.
func (c *Controller) OnPowerLossChange(lost bool) {
	select {
	case c.powerCh <- lost:
	case <-c.done:
	}
}

// OnButtonPress delivers a press outcome into the run loop. Outcomes
// are ephemeral: if the loop is wedged in the power-off hold and the
// buffer is full, the press is dropped rather than queued forever.
func (c *Controller) OnButtonPress(outcome PressOutcome) {
	select {
	case c.pressCh <- outcome:
	default:
		logrus.Warnf("dropping button %s, controller busy", outcome)
	}
}

// Stop sets the termination signal. The first trigger wins; later
// calls (a second OS signal, a concurrent button press) are no-ops.
// The signal is never reset.
func (c *Controller) Stop() {
	c.stop.Do(func() {
		close(c.done)
	})
}

// Done exposes the termination signal.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns the controller's lifecycle state. Only meaningful from
// the Run goroutine, or after Run has returned.
func (c *Controller) State() State {
	return c.state
}

// Run drives the evaluation loop: one evaluation immediately, then one
// per tick, interleaved with hardware events. It returns as soon as
// the termination signal fires — an in-flight wait is cut short, but
// an in-flight power-off hold always runs to completion first.
//
// Events queued before Run starts, such as the power-loss monitor's
// initial report, are applied before the first evaluation: a daemon
// booted with mains already lost must not wait a poll interval to act.
func (c *Controller) Run(tick <-chan time.Time, sig <-chan os.Signal) {
	c.drainPending()
	c.evaluate()

	for {
		select {
		case <-c.done:
			c.state = Terminated
			logrus.Info("Terminating")
			return
		case s := <-sig:
			logrus.Infof("Received %v, terminating", s)
			c.Stop()
		case lost := <-c.powerCh:
			c.applyPowerLoss(lost)
		case outcome := <-c.pressCh:
			c.applyPress(outcome)
		case <-tick:
			c.drainPending()
			c.evaluate()
		}
	}
}

// drainPending applies any hardware events already queued, so an
// evaluation always sees the freshest power state instead of racing
// the channels it shares a select with.
func (c *Controller) drainPending() {
	for {
		select {
		case lost := <-c.powerCh:
			c.applyPowerLoss(lost)
		case outcome := <-c.pressCh:
			c.applyPress(outcome)
		default:
			return
		}
	}
}

// applyPowerLoss records the new mains state. No shutdown decision is
// made here; only the periodic evaluation decides.
func (c *Controller) applyPowerLoss(lost bool) {
	c.powerLost = lost
	c.inModeSince = c.Now()
}

// applyPress acts on a classified button press. Ignored unless the
// controller is still Running.
func (c *Controller) applyPress(outcome PressOutcome) {
	if c.state != Running {
		return
	}
	switch outcome {
	case ShortPress:
		logrus.Info("Rebooting (short button press)")
		c.state = Terminated
		c.sys.Reboot()
		c.Stop()
	case LongPress:
		logrus.Warn("Shutting down (long button press)")
		c.state = Terminated
		c.sys.Shutdown()
		c.Stop()
	}
}

// evaluate runs one poll tick: refresh battery metrics, rate-limit the
// status log, and decide whether the host must power off.
func (c *Controller) evaluate() {
	if c.state != Running {
		return
	}

	reading, err := c.gauge.ReadMetrics()
	if err != nil {
		// Previous readings stay valid; the next poll self-heals.
		logrus.WithError(err).Error("Battery read failed, skipping evaluation")
		return
	}

	c.logStatus(reading)

	if c.powerLost && c.isLowBattery(reading) {
		logrus.Info("Initiating shutdown")
		logrus.Infof("Shutdown initiated after %s on battery",
			FormatDuration(c.Now().Sub(c.inModeSince)))
		c.state = ShuttingDown
		c.holdPowerOff()
		logrus.Warn("Shutting down (battery depleted)")
		c.sys.Shutdown()
	}
}

// logStatus logs the battery pair whenever capacity has moved at least
// one percentage point since the last logged value.
func (c *Controller) logStatus(r battery.Reading) {
	if math.Abs(r.Capacity-c.lastLoggedCapacity) >= 1 {
		c.lastLoggedCapacity = r.Capacity
		logrus.Infof("Battery: %d%% %.1fV", int(r.Capacity), r.Voltage)
	}
}

// isLowBattery reports whether either threshold is breached. Each
// breach gets its own warning.
func (c *Controller) isLowBattery(r battery.Reading) bool {
	low := false
	if r.Capacity < MinCapacity {
		logrus.Warnf("Battery capacity is under %d%%", int(MinCapacity))
		low = true
	}
	if r.Voltage < MinVoltage {
		logrus.Warnf("Battery voltage is under %.1fV", MinVoltage)
		low = true
	}
	return low
}

// holdPowerOff asserts the power-off line for the full hold duration,
// emulating a physical press of the board's power button. The hold is
// not interruptible: the MCU only registers a press that stays high
// for the whole window.
func (c *Controller) holdPowerOff() {
	if err := c.out.Setup(gpio.PinPowerOffHold, true); err != nil {
		logrus.WithError(err).Error("Assert power-off line")
		return
	}
	c.Sleep(PowerOffHold)
	if err := c.out.Write(gpio.PinPowerOffHold, false); err != nil {
		logrus.WithError(err).Error("Release power-off line")
	}
}
