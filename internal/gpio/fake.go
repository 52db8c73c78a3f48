package gpio

import (
	"fmt"
	"sync"
	"time"
)

// FakeLines is a test double that scripts input levels and records
// output writes. Edges are injected with InjectEdge and delivered
// synchronously to the registered watcher.
type FakeLines struct {
	mu       sync.Mutex
	watchers map[int]EdgeFunc
	levels   map[int]bool
	outputs  map[int]bool
	writes   []FakeWrite

	// Closed tracks if Close was called.
	Closed bool

	// WatchErr, if set, will be returned by Watch.
	WatchErr error

	// SetupErr, if set, will be returned by Setup.
	SetupErr error

	// ReadErr, if set, will be returned by Read.
	ReadErr error
}

// FakeWrite records one output level change (Setup or Write).
type FakeWrite struct {
	Pin   int
	Level bool
	At    time.Time
}

// NewFakeLines creates a FakeLines with all inputs low.
func NewFakeLines() *FakeLines {
	return &FakeLines{
		watchers: make(map[int]EdgeFunc),
		levels:   make(map[int]bool),
		outputs:  make(map[int]bool),
	}
}

// Watch registers fn for edges on pin.
func (f *FakeLines) Watch(pin int, fn EdgeFunc) error {
	if f.WatchErr != nil {
		return f.WatchErr
	}
	f.mu.Lock()
	f.watchers[pin] = fn
	f.mu.Unlock()
	return nil
}

// Unwatch removes the watcher for pin, if any.
func (f *FakeLines) Unwatch(pin int) {
	f.mu.Lock()
	delete(f.watchers, pin)
	f.mu.Unlock()
}

// Read returns the scripted level of pin.
func (f *FakeLines) Read(pin int) (bool, error) {
	if f.ReadErr != nil {
		return false, f.ReadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin], nil
}

// Setup records pin as an output at the given level.
func (f *FakeLines) Setup(pin int, level bool) error {
	if f.SetupErr != nil {
		return f.SetupErr
	}
	f.record(pin, level)
	return nil
}

// Write records a level change on an output pin.
func (f *FakeLines) Write(pin int, level bool) error {
	f.mu.Lock()
	_, ok := f.outputs[pin]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d is not an output", pin)
	}
	f.record(pin, level)
	return nil
}

// Close marks the fake as closed.
func (f *FakeLines) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// SetLevel scripts the level returned by Read for pin without
// delivering an edge.
func (f *FakeLines) SetLevel(pin int, level bool) {
	f.mu.Lock()
	f.levels[pin] = level
	f.mu.Unlock()
}

// InjectEdge scripts the level for pin and delivers an edge to the
// watcher, if one is registered. Delivery happens on the calling
// goroutine, mirroring the real chip's event-goroutine delivery.
func (f *FakeLines) InjectEdge(pin int, level bool) {
	f.mu.Lock()
	f.levels[pin] = level
	fn := f.watchers[pin]
	f.mu.Unlock()

	if fn != nil {
		fn(level)
	}
}

// Watched reports whether pin currently has a watcher.
func (f *FakeLines) Watched(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watchers[pin]
	return ok
}

// Writes returns all recorded output level changes, in order.
func (f *FakeLines) Writes() []FakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

// PinWrites returns the recorded level changes for one pin, in order.
func (f *FakeLines) PinWrites(pin int) []FakeWrite {
	var out []FakeWrite
	for _, w := range f.Writes() {
		if w.Pin == pin {
			out = append(out, w)
		}
	}
	return out
}

// OutputLevel returns the current level of an output pin and whether
// the pin has been set up as an output at all.
func (f *FakeLines) OutputLevel(pin int) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	level, ok := f.outputs[pin]
	return level, ok
}

func (f *FakeLines) record(pin int, level bool) {
	f.mu.Lock()
	f.outputs[pin] = level
	f.writes = append(f.writes, FakeWrite{Pin: pin, Level: level, At: time.Now()})
	f.mu.Unlock()
}
