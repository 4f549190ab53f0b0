// Package config holds the kernel's compile-time sizing constants:
// spec.md §9 calls these "from configuration" rather than fixing their
// values, the way the teacher's KERNEL_HEAP_SIZE/PAGE_SIZE constants in
// src/go/mazarin/heap.go are build-time knobs rather than detected
// values.
package config

const (
	// KernelStackSize is the stack every core's idle task runs on, and
	// the size internal/gdt.AddCurrentCore reserves for the boot TSS's
	// rsp[0] and its four IST stacks.
	KernelStackSize = 32 * 1024

	// DefaultStackSize is the stack size for ordinary (non-idle) tasks.
	DefaultStackSize = 512 * 1024

	// ISTEntries is the number of Interrupt Stack Table slots allocated
	// per core (spec.md §4.G: IST1 through IST4).
	ISTEntries = 4

	// GDTEntries is the fixed size of the statically sized GDT (spec.md
	// §4.G): large enough to hold 3 fixed entries plus a 2-slot TSS
	// descriptor per core for up to (8192-3)/2 cores.
	GDTEntries = 8192

	// StackGuardOffset is subtracted from every computed stack top
	// before it's written into rsp[0]/ist[n], leaving room for the trap
	// frame alignment word spec.md §9 describes.
	StackGuardOffset = 0x10
)
