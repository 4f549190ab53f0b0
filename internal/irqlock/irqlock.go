// Package irqlock implements the IRQ-save spinlock spec.md calls
// SpinlockIrqSave: all access to a semaphore's (count, queue) and to the
// physical/virtual allocators' free lists is serialized through a lock
// that also disables interrupts on the holding core, so a timer ISR can
// never reenter the same critical section.
//
// The interrupt-disable/restore half is behind the IRQController
// interface rather than linked directly, the same CPUIDSource/
// MSRAccessor-style split internal/cpu and internal/gdt use for their own
// hardware primitives: production installs HardwareController (a thin
// go:linkname shim, the same way the teacher links its own IRQ mask/
// unmask pair — src/go/mazarin/exceptions.go's enable_irqs/disable_irqs —
// but, like the teacher, keeps that shim out of any package a host
// `go test` links); a plain `go test` run uses the default no-op
// controller instead. The mutual-exclusion half is an ordinary mutex: on
// a single core, disabling interrupts is already sufficient for
// exclusion, but the mutex additionally serializes cross-core acquisition
// of the same lock (the GDT, the heap, and each semaphore are each
// guarded by exactly one SpinlockIrqSave shared by all cores per spec.md
// §5).
package irqlock

import "sync"

// IRQController masks and restores interrupts on the current core.
type IRQController interface {
	// Disable masks interrupts and reports whether they were enabled
	// beforehand.
	Disable() bool
	// Restore unmasks interrupts if wasEnabled is true.
	Restore(wasEnabled bool)
}

// noopController is the default IRQController, correct for any host
// build that never has real maskable interrupts to begin with: it
// disables nothing and reports that interrupts were already disabled, so
// Unlock's Restore call is always a no-op too.
type noopController struct{}

func (noopController) Disable() bool { return false }
func (noopController) Restore(bool)  {}

var (
	controllerMu sync.Mutex
	controller   IRQController = noopController{}
)

// SetController installs c as the IRQController every SpinlockIRQSave
// uses from this point on. Production boot calls this exactly once,
// before the first lock anywhere in the kernel can be taken, with the
// real hardware controller; a plain `go test` run leaves the default
// no-op controller installed.
func SetController(c IRQController) {
	controllerMu.Lock()
	controller = c
	controllerMu.Unlock()
}

func currentController() IRQController {
	controllerMu.Lock()
	defer controllerMu.Unlock()
	return controller
}

// SpinlockIRQSave is a mutex that also disables interrupts on the holding
// core for the duration of the critical section.
type SpinlockIRQSave struct {
	mu        sync.Mutex
	wasEnable bool
}

// New returns an unlocked SpinlockIRQSave.
func New() *SpinlockIRQSave {
	return &SpinlockIRQSave{}
}

// Lock disables interrupts on the current core and acquires the
// underlying mutex. The interrupt state saved is per-acquisition, so
// nested nonreentrant use on the same core is a programming error (as in
// the original, this lock is not reentrant).
func (s *SpinlockIRQSave) Lock() {
	wasEnabled := currentController().Disable()
	s.mu.Lock()
	s.wasEnable = wasEnabled
}

// Unlock releases the mutex and restores the interrupt state observed by
// the matching Lock call.
func (s *SpinlockIRQSave) Unlock() {
	wasEnabled := s.wasEnable
	s.mu.Unlock()
	currentController().Restore(wasEnabled)
}
