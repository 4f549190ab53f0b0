// Package phys implements spec.md §4.A, the physical memory allocator: a
// free-list of aligned byte extents over [0, total), ordered by base
// address, with adjacent extents merged on release.
package phys

import (
	"errors"
	"sort"

	"github.com/hermitgo/kernel/internal/irqlock"
)

// PageSize is the rounding granularity for Allocate (spec.md §4.A:
// "allocate rounds size up to 4 KiB").
const PageSize = 4096

// ErrOutOfMemory is returned when no free extent can satisfy a request.
var ErrOutOfMemory = errors.New("phys: out of memory")

// extent is a half-open byte range [Base, Base+Size).
type extent struct {
	Base, Size uint64
}

func (e extent) end() uint64 { return e.Base + e.Size }

// Allocator tracks free physical frames over [0, total) and serves
// aligned allocations. The zero value is not usable; construct with New.
type Allocator struct {
	mu    irqlock.SpinlockIRQSave
	total uint64
	free  []extent // sorted by Base, no two entries touching or overlapping
}

// New creates an allocator for the interval [0, total), with the given
// reserved prefix (e.g. the kernel image) already excluded from the free
// list.
func New(total uint64, reservedPrefix uint64) *Allocator {
	a := &Allocator{total: total}
	if reservedPrefix < total {
		a.free = []extent{{Base: reservedPrefix, Size: total - reservedPrefix}}
	}
	return a
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// Allocate rounds size up to a 4 KiB page multiple and returns the base
// of a free extent of that size, 4 KiB aligned.
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	size = alignUp(size, PageSize)
	if size == 0 {
		size = PageSize
	}
	return a.AllocateAligned(size, PageSize)
}

// AllocateAligned finds the lowest-address free extent that can host an
// aligned sub-extent of size bytes, splits the surrounding fragments back
// into the free list, and returns the sub-extent's base.
func (a *Allocator) AllocateAligned(size, alignment uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, e := range a.free {
		base := alignUp(e.Base, alignment)
		if base+size > e.end() || base < e.Base {
			continue
		}

		// Remove e, re-inserting the leading and trailing fragments.
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
		return base, nil
	}

	return 0, ErrOutOfMemory
}

// Deallocate returns [base, base+size) to the free list, coalescing with
// any adjacent free extents.
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
