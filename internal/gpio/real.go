//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealLines drives GPIO on actual hardware using the Linux GPIO
// character device.
type RealLines struct {
	chip *gpiocdev.Chip

	mu      sync.Mutex
	inputs  map[int]*gpiocdev.Line
	outputs map[int]*gpiocdev.Line
}

// NewRealLines opens the GPIO chip for actual Raspberry Pi hardware.
// Individual lines are requested lazily by Watch and Setup.
func NewRealLines() (*RealLines, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	return &RealLines{
		chip:    chip,
		inputs:  make(map[int]*gpiocdev.Line),
		outputs: make(map[int]*gpiocdev.Line),
	}, nil
}

// Watch requests pin as an input and registers fn for both edges.
// The handler runs on the gpiocdev event goroutine.
func (r *RealLines) Watch(pin int, fn EdgeFunc) error {
	line, err := r.chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			fn(evt.Type == gpiocdev.LineEventRisingEdge)
		}))
	if err != nil {
		return fmt.Errorf("request input pin %d: %w", pin, err)
	}

	r.mu.Lock()
	r.inputs[pin] = line
	r.mu.Unlock()
	return nil
}

// Unwatch releases a watched pin. Safe to call more than once.
func (r *RealLines) Unwatch(pin int) {
	r.mu.Lock()
	line := r.inputs[pin]
	delete(r.inputs, pin)
	r.mu.Unlock()

	if line != nil {
		line.Close()
	}
}

// Read returns the current level of a watched pin.
func (r *RealLines) Read(pin int) (bool, error) {
	r.mu.Lock()
	line := r.inputs[pin]
	r.mu.Unlock()

	if line == nil {
		return false, fmt.Errorf("pin %d is not watched", pin)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", pin, err)
	}
	return v != 0, nil
}

// Setup requests pin as an output at the given initial level.
func (r *RealLines) Setup(pin int, level bool) error {
	r.mu.Lock()
	line := r.outputs[pin]
	r.mu.Unlock()

	if line != nil {
		return r.Write(pin, level)
	}

	line, err := r.chip.RequestLine(pin, gpiocdev.AsOutput(levelValue(level)))
	if err != nil {
		return fmt.Errorf("request output pin %d: %w", pin, err)
	}

	r.mu.Lock()
	r.outputs[pin] = line
	r.mu.Unlock()
	return nil
}

// Write sets the level of a pin previously passed to Setup.
func (r *RealLines) Write(pin int, level bool) error {
	r.mu.Lock()
	line := r.outputs[pin]
	r.mu.Unlock()

	if line == nil {
		return fmt.Errorf("pin %d is not an output", pin)
	}
	if err := line.SetValue(levelValue(level)); err != nil {
		return fmt.Errorf("write pin %d: %w", pin, err)
	}
	return nil
}

// Close releases every requested line and the chip.
func (r *RealLines) Close() error {
	r.mu.Lock()
	lines := make([]*gpiocdev.Line, 0, len(r.inputs)+len(r.outputs))
	for pin, line := range r.inputs {
		lines = append(lines, line)
		delete(r.inputs, pin)
	}
	for pin, line := range r.outputs {
		lines = append(lines, line)
		delete(r.outputs, pin)
	}
	r.mu.Unlock()

	var errs []error
	for _, line := range lines {
		if err := line.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func levelValue(level bool) int {
	if level {
		return 1
	}
	return 0
}
