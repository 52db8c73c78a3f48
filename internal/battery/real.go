package battery

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2CReader reads fuel gauge registers over a Linux I2C bus via
// periph.io. The bus handle is a process-wide singleton: open it once
// at startup and Close it on every exit path.
type I2CReader struct {
	bus i2c.BusCloser
	dev i2c.Dev
}

// NewI2CReader opens the named I2C bus ("1" for /dev/i2c-1 on a
// Raspberry Pi) and addresses the fuel gauge on it.
func NewI2CReader(busName string, addr uint16) (*I2CReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "init periph host")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrapf(err, "open i2c bus %q", busName)
	}
	return &I2CReader{
		bus: bus,
		dev: i2c.Dev{Bus: bus, Addr: addr},
	}, nil
}

// ReadWordRegister reads a 16-bit register and returns it in SMBus
// order (low byte first), matching what smbus read_word_data delivers.
func (r *I2CReader) ReadWordRegister(reg uint8) (uint16, error) {
	var buf [2]byte
	if err := r.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, errors.Wrapf(err, "read register %#02x", reg)
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

// Close releases the I2C bus handle.
func (r *I2CReader) Close() error {
	return r.bus.Close()
}
