// Package virt implements spec.md §4.B, the virtual memory allocator: a
// free-list over the kernel's virtual range above the image, independent
// of physical allocation (mapping is the only operation that couples
// them, performed by internal/mm).
package virt

import (
	"errors"
	"sort"

	"github.com/hermitgo/kernel/internal/irqlock"
)

const pageSize = 4096

// ErrOutOfMemory is returned when no free range can satisfy a request.
var ErrOutOfMemory = errors.New("virt: out of memory")

type extent struct {
	Base, Size uint64
}

func (e extent) end() uint64 { return e.Base + e.Size }

// Allocator tracks free virtual address ranges in [start, start+size).
type Allocator struct {
	mu   irqlock.SpinlockIRQSave
	free []extent
	top  uint64 // current high-water mark, used by KernelHeapEnd
}

// New creates a virtual allocator covering [start, start+size).
func New(start, size uint64) *Allocator {
	return &Allocator{
		free: []extent{{Base: start, Size: size}},
		top:  start,
	}
}

func alignUp(v, align uint64) uint64 { return (v + align - 1) &^ (align - 1) }

// Allocate rounds size up to a base page multiple and returns the base of
// a free range of that size.
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	size = alignUp(size, pageSize)
	if size == 0 {
		size = pageSize
	}
	return a.AllocateAligned(size, pageSize)
}

// AllocateAligned finds the lowest-address free range that can host an
// aligned sub-range of size bytes.
func (a *Allocator) AllocateAligned(size, alignment uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, e := range a.free {
		base := alignUp(e.Base, alignment)
		if base+size > e.end() || base < e.Base {
			continue
		}

		var replacement []extent
		if base > e.Base {
			replacement = append(replacement, extent{Base: e.Base, Size: base - e.Base})
		}
		if base+size < e.end() {
			replacement = append(replacement, extent{Base: base + size, Size: e.end() - (base + size)})
		}

		next := make([]extent, 0, len(a.free)-1+len(replacement))
		next = append(next, a.free[:i]...)
		next = append(next, replacement...)
		next = append(next, a.free[i+1:]...)
		a.free = next

		if end := base + size; end > a.top {
			a.top = end
		}
		return base, nil
	}

	return 0, ErrOutOfMemory
}

// Deallocate returns [base, base+size) to the free list, coalescing with
// adjacent free ranges.
func (a *Allocator) Deallocate(base, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.free = append(a.free, extent{Base: base, Size: size})
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].Base < a.free[j].Base })

	merged := a.free[:1]
	for _, e := range a.free[1:] {
		last := &merged[len(merged)-1]
		if last.end() == e.Base {
			last.Size += e.Size
		} else {
			merged = append(merged, e)
		}
	}
	a.free = merged
}

// KernelHeapEnd returns the current top of the reserved virtual region:
// the highest address ever handed out by an allocation. Used only by the
// newlib-style configuration (spec.md §4.B), where a separate user heap
// is mapped starting immediately after the kernel heap.
func (a *Allocator) KernelHeapEnd() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.top
}

// Free returns the total number of bytes currently free, for diagnostics
// and tests.
func (a *Allocator) Free() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total uint64
	for _, e := range a.free {
		total += e.Size
	}
	return total
}
