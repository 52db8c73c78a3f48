//go:build !linux

package gpio

import "errors"

// RealLines is not available on non-Linux platforms.
type RealLines struct{}

// NewRealLines returns an error on non-Linux platforms.
func NewRealLines() (*RealLines, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Watch is not implemented on non-Linux platforms.
func (r *RealLines) Watch(pin int, fn EdgeFunc) error {
	return errors.New("gpio: not supported")
}

// Unwatch is not implemented on non-Linux platforms.
func (r *RealLines) Unwatch(pin int) {}

// Read is not implemented on non-Linux platforms.
func (r *RealLines) Read(pin int) (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Setup is not implemented on non-Linux platforms.
func (r *RealLines) Setup(pin int, level bool) error {
	return errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (r *RealLines) Write(pin int, level bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealLines) Close() error {
	return nil
}
