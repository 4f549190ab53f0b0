// Package kernel holds the halt/shutdown glue spec.md §6 and §7 name:
// Panic for configuration-fatal and contract-violation conditions, and
// Shutdown for the normal power-off path. Neither can rely on Go's
// panic/recover — there is no runtime stack unwinder installed this
// early — so both follow the teacher's halt-loop idiom
// (src/go/mazarin/exceptions.go's handleException / SErrorHandler: log,
// then spin forever).
//
// The actual ACPI power-off and halt-loop primitives are go:linkname'd
// assembly, and — as in the teacher, which keeps enable_irqs/disable_irqs
// and every other hardware primitive inside package main
// (src/go/mazarin/exceptions.go) rather than in a library package a host
// `go test` links — this package never references them directly. It only
// holds the hooks cmd/kernel installs at boot; a plain `go test` that
// never calls SetHaltHook/SetPowerOffHook exercises Panic/Shutdown against
// nil hooks, which no-op instead of forcing the linker to resolve
// hardware symbols that don't exist on the host.
package kernel

import (
	"sync"

	"github.com/hermitgo/kernel/internal/klog"
)

var (
	hookMu     sync.Mutex
	haltFn     func()
	powerOffFn func()
)

// SetHaltHook installs the function Panic and Shutdown call after
// logging (and, for Shutdown, after the power-off hook). Production boot
// calls this once, early, with the real halt-loop primitive; tests
// install a recording stub so they can observe a panic/shutdown without
// the test binary spinning forever.
func SetHaltHook(f func()) {
	hookMu.Lock()
	haltFn = f
	hookMu.Unlock()
}

// SetPowerOffHook installs the function Shutdown calls before falling
// back to the halt loop. Production boot calls this once, early, with the
// real ACPI power-off primitive; tests that don't exercise Shutdown can
// leave it unset.
func SetPowerOffHook(f func()) {
	hookMu.Lock()
	powerOffFn = f
	hookMu.Unlock()
}

func callHook(f func()) {
	if f != nil {
		f()
	}
}

// Panic prints msg to the kernel message ring and halts. It is the
// terminal response to configuration-fatal conditions (missing
// FSGSBASE, insufficient memory for the heap, frequency undetectable)
// and to contract violations (deallocating an unmapped virtual address,
// broken invariants) per spec.md §7. It never returns on real hardware;
// with no halt hook installed, or a test's recording hook, it returns so
// test code can observe that it was called without the process halting.
func Panic(msg string) {
	klog.Line("PANIC: " + msg)
	klog.Line("system halted")
	hookMu.Lock()
	fn := haltFn
	hookMu.Unlock()
	callHook(fn)
}

// Shutdown calls the ACPI power-off path; if that returns (the platform
// declined or doesn't support it), it falls back to looping on HLT,
// exactly as spec.md §6 describes.
func Shutdown() {
	hookMu.Lock()
	poweroff, halt := powerOffFn, haltFn
	hookMu.Unlock()
	callHook(poweroff)
	callHook(halt)
}
