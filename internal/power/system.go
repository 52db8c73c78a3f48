package power

import (
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// System invokes OS-level power actions.
type System interface {
	// Shutdown asks the OS to power off now.
	Shutdown()

	// Reboot asks the OS to restart now.
	Reboot()
}

// ExecSystem shells out to the system's shutdown and reboot commands.
// Calls are fire-and-forget: exit codes are not inspected, the OS owns
// the rest of the sequence.
type ExecSystem struct{}

// Shutdown runs "shutdown now".
func (ExecSystem) Shutdown() {
	if err := exec.Command("shutdown", "now").Run(); err != nil {
		logrus.WithError(err).Error("shutdown command failed")
	}
}

// Reboot runs "reboot".
func (ExecSystem) Reboot() {
	if err := exec.Command("reboot").Run(); err != nil {
		logrus.WithError(err).Error("reboot command failed")
	}
}

// FakeSystem records power actions for tests. Safe for concurrent use.
type FakeSystem struct {
	mu        sync.Mutex
	shutdowns int
	reboots   int
}

// Shutdown counts a shutdown request.
func (f *FakeSystem) Shutdown() {
	f.mu.Lock()
	f.shutdowns++
	f.mu.Unlock()
}

// Reboot counts a reboot request.
func (f *FakeSystem) Reboot() {
	f.mu.Lock()
	f.reboots++
	f.mu.Unlock()
}

// ShutdownCount returns the number of shutdown requests so far.
func (f *FakeSystem) ShutdownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}

// RebootCount returns the number of reboot requests so far.
func (f *FakeSystem) RebootCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reboots
}
