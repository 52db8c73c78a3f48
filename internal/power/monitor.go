package power

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/x708-power/internal/gpio"
)

// PowerLossMonitor watches the mains-power-lost input pin and reports
// state changes. A high level means mains power is lost.
//
// The callback runs on the edge source's goroutine; consumers marshal
// it into their own loop (the controller does this with a channel).
type PowerLossMonitor struct {
	lines    gpio.Watcher
	pin      int
	onChange func(lost bool)
	watching bool
}

// NewPowerLossMonitor creates a monitor for pin that invokes onChange
// with the power-lost state on every transition.
func NewPowerLossMonitor(lines gpio.Watcher, pin int, onChange func(lost bool)) *PowerLossMonitor {
	return &PowerLossMonitor{lines: lines, pin: pin, onChange: onChange}
}

// Start registers for both-edge notifications and reports the state
// found on the pin right away: a power-loss condition may already be
// active when the daemon comes up, so we do not wait for an edge.
func (m *PowerLossMonitor) Start() error {
	if err := m.lines.Watch(m.pin, m.edge); err != nil {
		return errors.Wrap(err, "watch power-lost pin")
	}
	m.watching = true

	lost, err := m.lines.Read(m.pin)
	if err != nil {
		m.Close()
		return errors.Wrap(err, "read power-lost pin")
	}
	m.report(lost)
	return nil
}

// edge runs on the edge source's goroutine. The pin is re-read rather
// than trusting the edge polarity, so a missed edge cannot leave the
// state inverted.
func (m *PowerLossMonitor) edge(bool) {
	lost, err := m.lines.Read(m.pin)
	if err != nil {
		logrus.WithError(err).Error("read power-lost pin")
		return
	}
	m.report(lost)
}

func (m *PowerLossMonitor) report(lost bool) {
	if lost {
		logrus.Warn("Power lost")
	} else {
		logrus.Info("Power OK")
	}
	m.onChange(lost)
}

// Close unregisters the edge callback. Closing twice is a no-op.
func (m *PowerLossMonitor) Close() {
	if m.watching {
		m.lines.Unwatch(m.pin)
		m.watching = false
	}
}
