package power

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/x708-power/internal/gpio"
)

// classifyTimeout keeps the race tests fast; the classification logic
// is independent of the configured duration.
const classifyTimeout = 100 * time.Millisecond

func newTestClassifier(t *testing.T) (*ButtonPressClassifier, *gpio.FakeLines, chan PressOutcome) {
	t.Helper()
	lines := gpio.NewFakeLines()
	outcomes := make(chan PressOutcome, 4)
	c := NewButtonPressClassifier(lines, gpio.PinButton, classifyTimeout, func(o PressOutcome) {
		outcomes <- o
	})
	require.NoError(t, c.Start())
	t.Cleanup(c.Close)
	return c, lines, outcomes
}

func waitOutcome(t *testing.T, outcomes chan PressOutcome) PressOutcome {
	t.Helper()
	select {
	case o := <-outcomes:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a press outcome")
		return 0
	}
}

func assertNoOutcome(t *testing.T, outcomes chan PressOutcome) {
	t.Helper()
	select {
	case o := <-outcomes:
		t.Fatalf("unexpected outcome %v", o)
	case <-time.After(2 * classifyTimeout):
	}
}

func TestReleaseBeforeTimeoutIsShortPress(t *testing.T) {
	_, lines, outcomes := newTestClassifier(t)

	lines.InjectEdge(gpio.PinButton, true)
	time.Sleep(classifyTimeout / 4)
	lines.InjectEdge(gpio.PinButton, false)

	assert.Equal(t, ShortPress, waitOutcome(t, outcomes))
	assertNoOutcome(t, outcomes)
}

func TestTimeoutWithoutReleaseIsLongPress(t *testing.T) {
	_, lines, outcomes := newTestClassifier(t)

	start := time.Now()
	lines.InjectEdge(gpio.PinButton, true)

	o := waitOutcome(t, outcomes)
	elapsed := time.Since(start)

	assert.Equal(t, LongPress, o)
	// The long press is classified at the timeout mark, not at the
	// eventual release.
	assert.GreaterOrEqual(t, elapsed, classifyTimeout)
	assert.Less(t, elapsed, 10*classifyTimeout)
}

func TestReleaseAfterTimeoutEmitsNothing(t *testing.T) {
	_, lines, outcomes := newTestClassifier(t)

	lines.InjectEdge(gpio.PinButton, true)
	require.Equal(t, LongPress, waitOutcome(t, outcomes))

	// The eventual release must not start a new cycle or emit a
	// second classification.
	lines.InjectEdge(gpio.PinButton, false)
	assertNoOutcome(t, outcomes)
}

func TestStrayReleaseIsNoOp(t *testing.T) {
	_, lines, outcomes := newTestClassifier(t)

	lines.InjectEdge(gpio.PinButton, false)
	assertNoOutcome(t, outcomes)
}

func TestSecondPressDuringRaceIsIgnored(t *testing.T) {
	_, lines, outcomes := newTestClassifier(t)

	lines.InjectEdge(gpio.PinButton, true)
	lines.InjectEdge(gpio.PinButton, true) // mid-race rising edge
	lines.InjectEdge(gpio.PinButton, false)

	assert.Equal(t, ShortPress, waitOutcome(t, outcomes))
	assertNoOutcome(t, outcomes)
}

func TestConsecutivePressCycles(t *testing.T) {
	_, lines, outcomes := newTestClassifier(t)

	lines.InjectEdge(gpio.PinButton, true)
	lines.InjectEdge(gpio.PinButton, false)
	require.Equal(t, ShortPress, waitOutcome(t, outcomes))

	lines.InjectEdge(gpio.PinButton, true)
	require.Equal(t, LongPress, waitOutcome(t, outcomes))
	lines.InjectEdge(gpio.PinButton, false)

	lines.InjectEdge(gpio.PinButton, true)
	lines.InjectEdge(gpio.PinButton, false)
	assert.Equal(t, ShortPress, waitOutcome(t, outcomes))
	assertNoOutcome(t, outcomes)
}

func TestClassifierCloseIsIdempotent(t *testing.T) {
	c, lines, _ := newTestClassifier(t)

	c.Close()
	c.Close()
	assert.False(t, lines.Watched(gpio.PinButton))
}
