// Package heap implements spec.md §4.E: a general-purpose, best-fit
// segment-list allocator over the virtual region internal/mm.Init maps
// for it. The segment layout and algorithm (doubly-linked headers,
// best-fit search with a minimum-split threshold, bidirectional
// coalescing on free) are grounded on the teacher's
// src/go/mazarin/heap.go kmalloc/kfree; header I/O is abstracted behind
// a Memory interface the way internal/mm/pagetable abstracts page-table
// I/O, so the allocator logic is host-testable without real memory.
package heap

import (
	"errors"

	"github.com/hermitgo/kernel/internal/irqlock"
)

// ErrOutOfMemory is returned when no free segment is large enough to
// satisfy a request.
var ErrOutOfMemory = errors.New("heap: out of memory")

// Alignment matches the teacher's HEAP_ALIGNMENT.
const Alignment = 16

// HeaderSize is the on-heap size of a segment header: next, prev
// (addresses, 0 meaning nil), an allocated flag, and the segment's total
// size including this header, each stored as a uint64.
const HeaderSize = 32

// Memory reads and writes segment headers at a given address. The
// production implementation (Raw) touches real memory directly; tests
// use a map-backed simulation (SimMemory).
type Memory interface {
	ReadSegment(addr uint64) (next, prev uint64, allocated bool, size uint64)
	WriteSegment(addr uint64, next, prev uint64, allocated bool, size uint64)
}

// Allocator is a best-fit, address-ordered segment-list heap.
type Allocator struct {
	mem  Memory
	mu   irqlock.SpinlockIRQSave
	head uint64
}

// New returns a production Allocator over real memory starting at addr,
// spanning size bytes, entirely described by a single free segment.
func New(addr, size uint64) *Allocator {
	return NewWithMemory(Raw{}, addr, size)
}

// NewWithMemory returns an Allocator backed by mem, for tests that need
// to inspect or simulate heap memory without touching real addresses.
func NewWithMemory(mem Memory, addr, size uint64) *Allocator {
	mem.WriteSegment(addr, 0, 0, false, size)
	return &Allocator{mem: mem, head: addr}
}

func alignUp(v, a uint64) uint64 { return (v + a - 1) &^ (a - 1) }

// Allocate returns a pointer to a free region of at least size bytes, or
// ErrOutOfMemory if no free segment is large enough. The pointer refers
// to the data area immediately after the segment's header.
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := alignUp(size+HeaderSize, Alignment)

	var best uint64
	bestDiff := ^uint64(0)

	for curr := a.head; curr != 0; {
		next, _, allocated, segSize := a.mem.ReadSegment(curr)
		if !allocated && segSize >= total {
			diff := segSize - total
			if diff < bestDiff {
				best, bestDiff = curr, diff
			}
		}
		curr = next
	}
	if best == 0 {
		return 0, ErrOutOfMemory
	}

	next, prev, _, segSize := a.mem.ReadSegment(best)

	const minSplitSize = 2 * HeaderSize
	if bestDiff > minSplitSize {
		newSeg := best + total
		newSegSize := segSize - total
		a.mem.WriteSegment(newSeg, next, best, false, newSegSize)
		if next != 0 {
			nn, _, na, ns := a.mem.ReadSegment(next)
			a.mem.WriteSegment(next, nn, newSeg, na, ns)
		}
		a.mem.WriteSegment(best, newSeg, prev, true, total)
	} else {
		a.mem.WriteSegment(best, next, prev, true, segSize)
	}

	return best + HeaderSize, nil
}

// Free releases memory previously returned by Allocate, coalescing with
// adjacent free neighbors in both directions. ptr == 0 is a no-op.
func (a *Allocator) Free(ptr uint64) {
	if ptr == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	seg := ptr - HeaderSize
	next, prev, _, size := a.mem.ReadSegment(seg)
	a.mem.WriteSegment(seg, next, prev, false, size)

	// Coalesce backward: while the previous segment is free, merge seg
	// into it and continue from there.
	for prev != 0 {
		_, prevPrev, prevAllocated, prevSize := a.mem.ReadSegment(prev)
		if prevAllocated {
			break
		}
		size = prevSize + size
		seg = prev
		prev = prevPrev
		a.mem.WriteSegment(seg, next, prev, false, size)
		if next != 0 {
			nn, _, na, ns := a.mem.ReadSegment(next)
			a.mem.WriteSegment(next, nn, seg, na, ns)
		}
	}

	// Coalesce forward: while the next segment is free, absorb it.
	for next != 0 {
		nextNext, _, nextAllocated, nextSize := a.mem.ReadSegment(next)
		if nextAllocated {
			break
		}
		size = size + nextSize
		next = nextNext
		a.mem.WriteSegment(seg, next, prev, false, size)
		if next != 0 {
			nn, _, na, ns := a.mem.ReadSegment(next)
			a.mem.WriteSegment(next, nn, seg, na, ns)
		}
	}
}
