package power

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/sweeney/x708-power/internal/gpio"
)

// PressOutcome classifies one completed button press.
type PressOutcome int

const (
	// ShortPress means the button was released before the classify
	// timeout. The daemon treats it as a reboot request.
	ShortPress PressOutcome = iota + 1

	// LongPress means the classify timeout elapsed with the button
	// still held. The daemon treats it as a shutdown request.
	LongPress
)

func (o PressOutcome) String() string {
	switch o {
	case ShortPress:
		return "short press"
	case LongPress:
		return "long press"
	default:
		return "unknown press"
	}
}

// ButtonPressClassifier turns raw press/release edge pairs on the
// button pin into short/long press outcomes.
//
// The board only reports edges, not press duration, so duration is
// recovered with a race: a rising edge starts a timer against the next
// falling edge. Release first emits ShortPress; timer first emits
// LongPress at the timeout mark, without waiting for the eventual
// release. Exactly one outcome is emitted per press cycle.
type ButtonPressClassifier struct {
	lines    gpio.Watcher
	pin      int
	timeout  time.Duration
	onPress  func(PressOutcome)
	watching bool

	mu      sync.Mutex
	release chan struct{} // non-nil while a classification race is active
}

// NewButtonPressClassifier creates a classifier for pin that invokes
// onPress once per completed press. The callback runs on the
// classifier's own goroutine.
func NewButtonPressClassifier(lines gpio.Watcher, pin int, timeout time.Duration, onPress func(PressOutcome)) *ButtonPressClassifier {
	return &ButtonPressClassifier{lines: lines, pin: pin, timeout: timeout, onPress: onPress}
}

// Start registers for both-edge notifications on the button pin.
func (c *ButtonPressClassifier) Start() error {
	if err := c.lines.Watch(c.pin, c.edge); err != nil {
		return errors.Wrap(err, "watch button pin")
	}
	c.watching = true
	return nil
}

// edge runs on the edge source's goroutine.
func (c *ButtonPressClassifier) edge(level bool) {
	if level {
		c.pressed()
	} else {
		c.released()
	}
}

// pressed starts a classification race unless one is already active.
// A second rising edge mid-race is ignored: racing twice for one
// press would emit two outcomes.
func (c *ButtonPressClassifier) pressed() {
	c.mu.Lock()
	if c.release != nil {
		c.mu.Unlock()
		return
	}
	release := make(chan struct{}, 1)
	c.release = release
	c.mu.Unlock()

	go c.classify(release)
}

// released resolves the active race, if any. A falling edge with no
// race active (for example the eventual release after a LongPress was
// already classified at the timeout) is a no-op: it must not start a
// new cycle or emit a second outcome.
func (c *ButtonPressClassifier) released() {
	c.mu.Lock()
	release := c.release
	c.mu.Unlock()
	if release == nil {
		return
	}
	select {
	case release <- struct{}{}:
	default:
	}
}

// classify races the release edge against the timeout. Tie-break: if
// the release was already observed when the timer fires, the release
// wins — the timer branch re-checks the release channel before
// settling on LongPress.
func (c *ButtonPressClassifier) classify(release chan struct{}) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	outcome := ShortPress
	select {
	case <-release:
	case <-timer.C:
		select {
		case <-release:
		default:
			outcome = LongPress
		}
	}

	c.mu.Lock()
	c.release = nil
	c.mu.Unlock()

	c.onPress(outcome)
}

// Close unregisters the edge callback. Closing twice is a no-op. An
// in-flight race still resolves and emits its outcome.
func (c *ButtonPressClassifier) Close() {
	if c.watching {
		c.lines.Unwatch(c.pin)
		c.watching = false
	}
}
