// Package boothdr describes the boot header the loader places in memory
// before handing control to the kernel (spec.md §6 "Boot header"). Fields
// are read with acquire ordering and are never written by the kernel.
package boothdr

import (
	"sync/atomic"
	"unsafe"
)

// Header mirrors the fixed, loader-owned memory layout. Only the fields
// this kernel's execution-and-memory substrate consumes are modeled;
// network/ACPI-table pointers and other loader fields are out of scope
// per spec.md §1.
type Header struct {
	// CurrentStackAddress is the virtual address of the initial stack for
	// the booting core.
	CurrentStackAddress uint64
	// CPUFreq is the hypervisor-supplied frequency hint in MHz, 0 if
	// absent.
	CPUFreq uint32
	// ImageSize is the size in bytes of the loaded kernel image.
	ImageSize uint64
}

// View reads Header fields out of a fixed memory address with acquire
// ordering, matching the original's ptr::read_volatile accesses. The
// loader guarantees the header is fully written before the kernel runs,
// so acquire ordering (rather than a full lock) is sufficient here.
type View struct {
	base uintptr
}

// NewView wraps the boot header located at addr. addr is supplied by the
// loader (e.g. via a linker symbol or a fixed physical address) and is
// opaque to this package.
func NewView(addr uintptr) *View {
	return &View{base: addr}
}

func (v *View) field(offset uintptr) uintptr {
	return v.base + offset
}

// CurrentStackAddress returns the virtual address of the initial boot
// stack, read with acquire ordering.
func (v *View) CurrentStackAddress() uint64 {
	p := (*uint64)(unsafe.Pointer(v.field(0)))
	return atomic.LoadUint64(p)
}

// CPUFreq returns the hypervisor-supplied frequency hint in MHz, or 0 if
// the loader did not provide one.
func (v *View) CPUFreq() uint32 {
	p := (*uint32)(unsafe.Pointer(v.field(8)))
	return atomic.LoadUint32(p)
}

// ImageSize returns the size in bytes of the loaded kernel image.
func (v *View) ImageSize() uint64 {
	p := (*uint64)(unsafe.Pointer(v.field(16)))
	return atomic.LoadUint64(p)
}

// Static is a plain-value stand-in for View, for host-side code that has
// no real boot header to point at.
type Static struct {
	StackAddr uint64
	Freq      uint32
	Size      uint64
}

func (s Static) CurrentStackAddress() uint64 { return s.StackAddr }
func (s Static) CPUFreq() uint32             { return s.Freq }
func (s Static) ImageSize() uint64           { return s.Size }

// Reader is the minimal read surface of a boot header, satisfied by both
// *View and Static.
type Reader interface {
	CurrentStackAddress() uint64
	CPUFreq() uint32
	ImageSize() uint64
}
