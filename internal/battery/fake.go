package battery

import (
	"sync"

	"github.com/pkg/errors"
)

// FakeBus is a WordReader test double with scripted register values.
// Safe for concurrent use: tests mutate registers through SetWord and
// SetErr while a controller goroutine polls.
type FakeBus struct {
	mu sync.Mutex

	// Words maps register offset to the SMBus-order word to return.
	Words map[uint8]uint16

	// Errs maps register offset to an error to return instead.
	Errs map[uint8]error

	// Reads records the register offsets accessed, in order.
	Reads []uint8
}

// NewFakeBus creates a FakeBus with the given register words.
func NewFakeBus(words map[uint8]uint16) *FakeBus {
	if words == nil {
		words = make(map[uint8]uint16)
	}
	return &FakeBus{Words: words, Errs: make(map[uint8]error)}
}

// ReadWordRegister returns the scripted word or error for reg.
func (f *FakeBus) ReadWordRegister(reg uint8) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads = append(f.Reads, reg)
	if err := f.Errs[reg]; err != nil {
		return 0, err
	}
	word, ok := f.Words[reg]
	if !ok {
		return 0, errors.Errorf("no value scripted for register %#02x", reg)
	}
	return word, nil
}

// SetWord scripts the word returned for reg and clears any scripted
// error on it.
func (f *FakeBus) SetWord(reg uint8, word uint16) {
	f.mu.Lock()
	f.Words[reg] = word
	delete(f.Errs, reg)
	f.mu.Unlock()
}

// SetErr scripts an error for reg.
func (f *FakeBus) SetErr(reg uint8, err error) {
	f.mu.Lock()
	f.Errs[reg] = err
	f.mu.Unlock()
}

// EncodeWord converts a wire-order (big-endian) word into the SMBus
// order a WordReader returns. Tests use it to script realistic values.
func EncodeWord(wire uint16) uint16 {
	return swapBytes(wire)
}
