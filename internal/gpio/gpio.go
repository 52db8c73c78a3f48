// Package gpio provides access to the UPS board's GPIO lines with
// hardware abstraction. The real implementation uses the Linux GPIO
// character device. The fake implementation allows testing without
// hardware.
package gpio

// EdgeFunc is invoked on every level change of a watched input pin.
// It runs on the edge source's own goroutine, not the caller's.
type EdgeFunc func(level bool)

// Watcher delivers edge notifications and level reads for input pins.
type Watcher interface {
	// Watch requests pin as an input and registers fn for both edges.
	Watch(pin int, fn EdgeFunc) error

	// Unwatch releases a watched pin. Unwatching a pin that is not
	// watched (or was already unwatched) is a no-op.
	Unwatch(pin int)

	// Read returns the current level of a watched pin.
	Read(pin int) (bool, error)
}

// Output drives output pins.
type Output interface {
	// Setup requests pin as an output at the given initial level.
	// Setting up a pin that is already an output rewrites its level.
	Setup(pin int, level bool) error

	// Write sets the level of a pin previously passed to Setup.
	Write(pin int, level bool) error
}

// Lines combines input watching and output driving on one GPIO chip.
type Lines interface {
	Watcher
	Output

	// Close releases all requested lines and the chip.
	Close() error
}

// Pin assignment for the X708 board (BCM numbering).
const (
	PinPowerLost    = 6  // input: high = mains power lost
	PinButton       = 5  // input: power button press signal from the MCU
	PinBootOK       = 12 // output: held high while the OS is up
	PinPowerOffHold = 13 // output: pulsed high to emulate a power-button press
)
