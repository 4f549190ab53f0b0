// Package mm is the façade spec.md §4.D describes: it composes the
// physical allocator (internal/mm/phys), the virtual allocator
// (internal/mm/virt), and the page-table mapper (internal/mm/pagetable)
// into Allocate/AllocateIOMem/Deallocate, and runs the boot-time Init
// sequence that brings up the kernel heap.
package mm

import (
	"errors"

	"github.com/hermitgo/kernel/internal/heap"
	"github.com/hermitgo/kernel/internal/kernel"
	"github.com/hermitgo/kernel/internal/klog"
	"github.com/hermitgo/kernel/internal/mm/pagetable"
	"github.com/hermitgo/kernel/internal/mm/phys"
	"github.com/hermitgo/kernel/internal/mm/virt"
)

// ErrInsufficientMemory is the recoverable-shaped return for Init's
// worst-case check; callers are expected to treat it as configuration
// fatal per spec.md §7 (Init itself also calls kernel.Panic before
// returning it, matching the original's halt loop).
var ErrInsufficientMemory = errors.New("mm: not enough memory to host kernel heap")

var (
	basePage  = pagetable.Base.Bytes
	largePage = pagetable.Large.Bytes
	hugePage  = pagetable.Huge.Bytes

	entriesPerTable = basePage / 8 // 512 entries of 8 bytes each
)

func alignDown(v, a uint64) uint64 { return v &^ (a - 1) }
func alignUp(v, a uint64) uint64   { return (v + a - 1) &^ (a - 1) }

// MM is the façade instance; exactly one exists per kernel per spec.md
// §9's "single owner" design note, threaded explicitly rather than kept
// in a package-level global so tests can construct independent
// instances.
type MM struct {
	phys *phys.Allocator
	virt *virt.Allocator
	pt   *pagetable.Mapper
	heap *heap.Allocator

	kernelStart, kernelEnd uint64
	heapStart, heapEnd     uint64
}

// InitConfig names everything Init needs that is normally supplied by
// the boot header and CPU feature detection (spec.md §4.D steps 1-8).
type InitConfig struct {
	ImageStart        uint64
	ImageSize         uint64
	TotalMemory       uint64
	Supports1GiBPages bool
	Mem               pagetable.MemoryAccessor

	// HeapMem backs the heap segment headers Init hands to E. Production
	// callers leave it nil to get heap.Raw (real memory); tests supply a
	// simulated heap.Memory so Init never touches real addresses.
	HeapMem heap.Memory
}

// Init performs the boot-time MM bring-up described in spec.md §4.D:
// round the kernel image to large-page bounds, initialize A/B/C, reserve
// worst-case page-table frames, choose and map the heap's first chunk,
// hand it to the heap allocator, then map the remainder.
func Init(cfg InitConfig) (*MM, error) {
	kernelStart := alignDown(cfg.ImageStart, largePage)
	kernelEnd := alignUp(cfg.ImageStart+cfg.ImageSize, largePage)

	physAlloc := phys.New(cfg.TotalMemory, kernelEnd)
	virtAlloc := virt.New(kernelEnd, cfg.TotalMemory-kernelEnd)

	rootFrame, err := physAlloc.Allocate(basePage)
	if err != nil {
		return nil, err
	}
	cfg.Mem.ZeroTable(rootFrame)
	mapper := pagetable.New(cfg.Mem, physAlloc, rootFrame)

	m := &MM{phys: physAlloc, virt: virtAlloc, pt: mapper, kernelStart: kernelStart, kernelEnd: kernelEnd}

	// Step 3: reserve physical frames for the worst-case 3-level
	// (PT/PD/PDPT) page-table cost of mapping all of memory with base
	// pages.
	totalPages := cfg.TotalMemory / basePage
	npage3 := totalPages/entriesPerTable + 1
	npage2 := npage3/entriesPerTable + 1
	npage1 := npage2/entriesPerTable + 1
	reserved := (npage3+npage2+npage1)*basePage + largePage

	// Step 4.
	if cfg.TotalMemory < kernelEnd+reserved+largePage {
		kernel.Panic("mm: not enough memory available for the kernel heap")
		return nil, ErrInsufficientMemory
	}

	// Step 5: choose heap base and total size.
	virtSize := alignDown(cfg.TotalMemory-kernelEnd-reserved, largePage)

	var virtAddr uint64
	if cfg.Supports1GiBPages && virtSize > hugePage {
		virtAddr, err = virtAlloc.AllocateAligned(alignUp(virtSize, hugePage), hugePage)
	} else {
		virtAddr, err = virtAlloc.AllocateAligned(virtSize, largePage)
	}
	if err != nil {
		return nil, err
	}

	// Step 6: map the first chunk, largest granule first.
	var mapped uint64
	if cfg.Supports1GiBPages && virtSize > hugePage {
		mapped = m.mapHeapChunk(pagetable.Huge, virtAddr, hugePage)
	}
	if mapped == 0 {
		mapped = m.mapHeapChunk(pagetable.Large, virtAddr, largePage)
	}

	heapMem := cfg.HeapMem
	if heapMem == nil {
		heapMem = heap.Raw{}
	}

	m.heapStart = virtAddr
	m.heap = heap.NewWithMemory(heapMem, virtAddr, virtSize)

	// Step 7: map the remainder, stepping down 1 GiB -> 2 MiB.
	mapAddr := virtAddr + mapped
	mapSize := virtSize - mapped

	if cfg.Supports1GiBPages && mapSize > hugePage && mapAddr%hugePage == 0 {
		c := m.mapHeapChunk(pagetable.Huge, mapAddr, mapSize)
		mapSize -= c
		mapAddr += c
	}
	if mapSize > largePage {
		c := m.mapHeapChunk(pagetable.Large, mapAddr, mapSize)
		mapSize -= c
		mapAddr += c
	}

	// Step 8.
	m.heapEnd = mapAddr
	return m, nil
}

// mapHeapChunk maps as many size-granule pages as fit under totalSize,
// starting at virtAddr, backed by freshly allocated physical frames.
// Returns the number of bytes actually mapped.
func (m *MM) mapHeapChunk(size pagetable.Size, virtAddr, totalSize uint64) uint64 {
	flags := pagetable.Normal().Writable().ExecuteDisable()

	var i uint64
	limit := alignDown(totalSize, size.Bytes)
	for i < limit {
		p, err := m.phys.AllocateAligned(size.Bytes, size.Bytes)
		if err != nil {
			klog.Line("mm: unable to allocate a " + size.Name + " page frame")
			return i
		}
		m.pt.Map(size, virtAddr+i, p, 1, flags)
		i += size.Bytes
	}
	return i
}

// Allocate reserves size bytes (rounded up to a base page multiple) of
// physical and virtual address space and maps them normal+writable
// (+no-execute if requested), returning the virtual base.
func (m *MM) Allocate(size uint64, executeDisable bool) (uint64, error) {
	size = alignUp(size, basePage)
	if size == 0 {
		size = basePage
	}

	physAddr, err := m.phys.Allocate(size)
	if err != nil {
		return 0, err
	}
	virtAddr, err := m.virt.Allocate(size)
	if err != nil {
		m.phys.Deallocate(physAddr, size)
		return 0, err
	}

	flags := pagetable.Normal().Writable()
	if executeDisable {
		flags = flags.ExecuteDisable()
	}

	count := int(size / basePage)
	m.pt.Map(pagetable.Base, virtAddr, physAddr, count, flags)
	return virtAddr, nil
}

// AllocateIOMem reserves and maps device MMIO. Today it is identical to
// Allocate with execute_disable=true; it is a separate entry point
// reserved for future cacheability-flag specialization (spec.md §4.D).
func (m *MM) AllocateIOMem(size uint64) (uint64, error) {
	return m.Allocate(size, true)
}

// Deallocate looks up the leaf page-table entry at virtAddr and releases
// the physical extent it names along with the virtual extent. A missing
// entry is a contract violation (a mis-paired deallocation is a kernel
// bug, spec.md §7) and halts rather than returning an error.
func (m *MM) Deallocate(virtAddr, size uint64) {
	size = alignUp(size, basePage)
	if size == 0 {
		size = basePage
	}

	physAddr, _, ok := m.pt.GetPageTableEntry(pagetable.Base, virtAddr)
	if !ok {
		kernel.Panic("mm: no page table entry for virtual address being deallocated")
		return
	}

	m.virt.Deallocate(virtAddr, size)
	m.phys.Deallocate(physAddr, size)
}

// KernelStartAddress returns the large-page-aligned start of the kernel
// image.
func (m *MM) KernelStartAddress() uint64 { return m.kernelStart }

// KernelEndAddress returns the large-page-aligned end of the kernel
// image.
func (m *MM) KernelEndAddress() uint64 { return m.kernelEnd }

// HeapStartAddress returns the virtual base of the kernel heap.
func (m *MM) HeapStartAddress() uint64 { return m.heapStart }

// HeapEndAddress returns the virtual end of the kernel heap.
func (m *MM) HeapEndAddress() uint64 { return m.heapEnd }

// Heap returns the general-purpose allocator initialized from the slab
// Init mapped (spec.md §4.E), for use by kernel subsystems that need
// kmalloc-style allocation.
func (m *MM) Heap() *heap.Allocator { return m.heap }

// Mapper exposes the underlying page-table mapper, e.g. for looking up
// the entry behind an address Allocate returned.
func (m *MM) Mapper() *pagetable.Mapper { return m.pt }

// Phys exposes the underlying physical allocator, for callers that need
// raw physical frames outside the Allocate/Deallocate virtual-address
// contract.
func (m *MM) Phys() *phys.Allocator { return m.phys }
