// Package battery reads the X708's MAX17040-style fuel gauge over I2C
// and decodes its raw word registers into voltage and capacity.
package battery

import (
	"github.com/pkg/errors"
)

// Fuel gauge I2C address and word register offsets.
const (
	DeviceAddr uint16 = 0x36

	regVoltage  uint8 = 0x02
	regCapacity uint8 = 0x04
)

// ErrBus classifies I2C read failures. Callers skip the current poll
// and pick up fresh readings on the next cycle; no retry is needed.
var ErrBus = errors.New("i2c bus error")

// WordReader reads a 16-bit register from the fuel gauge. The value is
// returned in SMBus order (low byte first); byte-order correction is
// the gauge's responsibility, not the bus's.
type WordReader interface {
	ReadWordRegister(reg uint8) (uint16, error)
}

// Reading is one paired voltage/capacity sample. Values are replaced
// wholesale per successful read, never half-updated.
type Reading struct {
	Voltage  float64 // volts
	Capacity float64 // percent, 0-100
}

// DecodeVoltage converts a raw voltage register word into volts.
func DecodeVoltage(raw uint16) float64 {
	return float64(swapBytes(raw)) * 1.25 / 1000 / 16
}

// DecodeCapacity converts a raw capacity register word into percent.
func DecodeCapacity(raw uint16) float64 {
	return float64(swapBytes(raw)) / 256
}

// swapBytes reinterprets the little-endian SMBus word as big-endian,
// which is the order the gauge actually sends on the wire.
func swapBytes(raw uint16) uint16 {
	return raw<<8 | raw>>8
}

// Gauge reads paired voltage/capacity samples from the fuel gauge and
// keeps the last successful reading. It is owned by the controller's
// evaluation loop and is not safe for concurrent use.
type Gauge struct {
	bus  WordReader
	last Reading
	ok   bool
}

// NewGauge wraps a word-register reader for the fuel gauge.
func NewGauge(bus WordReader) *Gauge {
	return &Gauge{bus: bus}
}

// ReadMetrics reads voltage and capacity as a pair. On any failure the
// previously held reading is left untouched: both values update
// together or not at all.
func (g *Gauge) ReadMetrics() (Reading, error) {
	vraw, err := g.bus.ReadWordRegister(regVoltage)
	if err != nil {
		return Reading{}, errors.Wrapf(ErrBus, "voltage register: %v", err)
	}
	craw, err := g.bus.ReadWordRegister(regCapacity)
	if err != nil {
		return Reading{}, errors.Wrapf(ErrBus, "capacity register: %v", err)
	}

	g.last = Reading{
		Voltage:  DecodeVoltage(vraw),
		Capacity: DecodeCapacity(craw),
	}
	g.ok = true
	return g.last, nil
}

// Reading returns the last successful sample and whether one exists.
// Values are only meaningful after at least one successful ReadMetrics.
func (g *Gauge) Reading() (Reading, bool) {
	return g.last, g.ok
}
