// Package gdt implements the flat Global Descriptor Table and per-core
// Task State Segments spec.md §4.G describes: one kernel code and one
// kernel data descriptor shared by every core, plus a TSS descriptor and
// backing TSS (including its Interrupt Stack Table) allocated per core as
// it comes online.
//
// Grounded on original_source/src/arch/x86_64/kernel/gdt.rs: the same
// fixed-size static GDT, the same rsp[0]/ist[0..4] TSS layout, and the
// same add_current_core/set_current_kernel_stack split between one-time
// per-core setup and the per-task-switch stack update the scheduler
// drives.
package gdt

import (
	"errors"
	"fmt"

	"github.com/hermitgo/kernel/internal/bitfield"
	"github.com/hermitgo/kernel/internal/config"
	"github.com/hermitgo/kernel/internal/irqlock"
	"github.com/hermitgo/kernel/internal/klog"
)

// Fixed GDT indices, matching gdt.rs's GDT_NULL/GDT_KERNEL_CODE/
// GDT_KERNEL_DATA/GDT_FIRST_TSS layout.
const (
	indexNull = 0
	indexCode = 1
	indexData = 2
	indexTSS0 = 3 // first of 2 slots consumed by core 0's TSS descriptor

	entrySize = 8 // bytes per flat GDT slot

	tssRSP0Offset  = 4
	tssIST1Offset  = 36
	tssSize        = 104
	tssDescSlots   = 2 // a TSS descriptor occupies two consecutive 8-byte GDT slots
)

var (
	// ErrTooManyCores is returned by AddCurrentCore once the static GDT
	// has no room left for another TSS descriptor.
	ErrTooManyCores = errors.New("gdt: no descriptor slots left for another core")
	// ErrUnknownCore is returned by SetCurrentKernelStack for a core
	// that never called AddCurrentCore.
	ErrUnknownCore = errors.New("gdt: core has no TSS registered")
)

// Memory is the byte-addressed accessor gdt uses for both the flat GDT
// array and the TSS structures it points into. Byte addressing (rather
// than the index-based accessors internal/pagetable and internal/heap
// use) is required because the TSS's rsp[0] field sits at offset 4,
// which is not 8-byte aligned.
type Memory interface {
	ReadUint64(addr uint64) uint64
	WriteUint64(addr uint64, value uint64)
	Zero(addr uint64, n uint64)
}

// Allocator is the subset of internal/mm.MM's surface gdt needs to back
// the GDT array and per-core TSS/IST stacks. It is expressed as an
// interface, rather than a direct dependency on *mm.MM, so that the
// memory substrate and the GDT/TSS manager stay decoupled the way
// spec.md's module table keeps them in separate packages.
type Allocator interface {
	Allocate(size uint64, executeDisable bool) (uint64, error)
}

// Segments is the production hook for loading the GDTR and reloading
// segment/task registers, backed in production by go:linkname'd
// assembly and in tests by a no-op/recording double.
type Segments interface {
	LoadGDT(base uint64, limit uint16)
	ReloadDataSegments(codeSelector, dataSelector uint16)
	LoadTaskRegister(selector uint16)
}

// TSSInfo records the per-core TSS state AddCurrentCore allocated, so
// SetCurrentKernelStack can find it again without re-deriving addresses.
type TSSInfo struct {
	Addr uint64
	ISTs [config.ISTEntries]uint64
}

// GDT is the kernel's single flat descriptor table plus its per-core TSS
// bookkeeping. One instance is shared by every core.
type GDT struct {
	mem   Memory
	alloc Allocator
	segs  Segments

	mu    irqlock.SpinlockIRQSave
	base  uint64
	limit uint16

	nextTSSSlot int // next free 2-slot TSS descriptor index, starts at indexTSS0
	cores       map[int]*TSSInfo
}

// New returns a GDT that will allocate its table and TSS structures
// through alloc, read/write them through mem, and drive the real
// hardware registers through segs.
func New(mem Memory, alloc Allocator, segs Segments) *GDT {
	return &GDT{
		mem:         mem,
		alloc:       alloc,
		segs:        segs,
		nextTSSSlot: indexTSS0,
		cores:       make(map[int]*TSSInfo),
	}
}

// Init allocates the flat GDT array and writes its three fixed entries:
// null, kernel code, kernel data. It must be called exactly once, before
// any call to AddCurrentCore.
func (g *GDT) Init() error {
	size := uint64(config.GDTEntries) * entrySize
	base, err := g.alloc.Allocate(size, true)
	if err != nil {
		return fmt.Errorf("gdt: allocating descriptor table: %w", err)
	}
	g.mem.Zero(base, size)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.base = base
	g.limit = uint16(size - 1)

	g.writeEntry(indexCode, codeDescriptor())
	g.writeEntry(indexData, dataDescriptor())

	klog.Puts("gdt: initialized ")
	klog.PutUint(uint64(config.GDTEntries))
	klog.Puts(" entries at 0x")
	klog.PutHex64(base)
	klog.Puts("\n")
	return nil
}

// GDTR returns the base address and limit to load into the GDTR
// register.
func (g *GDT) GDTR() (base uint64, limit uint16) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.base, g.limit
}

func (g *GDT) writeEntry(index int, packed uint64) {
	g.mem.WriteUint64(g.base+uint64(index)*entrySize, packed)
}

// codeDescriptor returns the packed 64-bit kernel code segment
// descriptor: present, long-mode, ring 0, execute/read.
func codeDescriptor() uint64 {
	d := SegmentDescriptor{
		ReadWrite:      true,
		Executable:     true,
		DescriptorType: true, // code/data, not system
		Present:        true,
		LongMode:       true,
	}
	packed, err := bitfield.Pack(&d)
	if err != nil {
		panic(err) // static, programmer-controlled layout
	}
	return packed
}

// dataDescriptor returns the packed 64-bit kernel data segment
// descriptor: present, ring 0, read/write.
func dataDescriptor() uint64 {
	d := SegmentDescriptor{
		ReadWrite:      true,
		DescriptorType: true,
		Present:        true,
		Size:           true, // 32-bit-style default operand size flag; ignored for data in long mode
	}
	packed, err := bitfield.Pack(&d)
	if err != nil {
		panic(err)
	}
	return packed
}

// AddCurrentCore brings up the TSS for coreID: it allocates a TSS and
// four IST stacks, writes rsp[0] and ist[1..4] from currentStackAddress
// and kernelStackSize, installs a TSS descriptor in the next free GDT
// slot pair, loads the GDTR, reloads the segment registers, and loads
// the task register — mirroring gdt.rs's add_current_core, generalized
// so the caller (not a global core_scheduler()) supplies the boot stack.
func (g *GDT) AddCurrentCore(coreID int, currentStackAddress uint64, kernelStackSize uint64) error {
	tssAddr, err := g.alloc.Allocate(tssSize, true)
	if err != nil {
		return fmt.Errorf("gdt: allocating TSS for core %d: %w", coreID, err)
	}
	g.mem.Zero(tssAddr, tssSize)

	rsp0 := currentStackAddress + kernelStackSize - config.StackGuardOffset
	g.mem.WriteUint64(tssAddr+tssRSP0Offset, rsp0)

	var ists [config.ISTEntries]uint64
	for i := 0; i < config.ISTEntries; i++ {
		istStack, err := g.alloc.Allocate(kernelStackSize, true)
		if err != nil {
			return fmt.Errorf("gdt: allocating IST%d for core %d: %w", i+1, coreID, err)
		}
		istTop := istStack + kernelStackSize - config.StackGuardOffset
		ists[i] = istTop
		g.mem.WriteUint64(tssAddr+uint64(tssIST1Offset+8*i), istTop)
	}

	g.mu.Lock()
	slot := g.nextTSSSlot
	if slot+tssDescSlots > config.GDTEntries {
		g.mu.Unlock()
		return ErrTooManyCores
	}
	g.nextTSSSlot += tssDescSlots

	low, high := tssDescriptor(tssAddr, tssSize-1)
	g.writeEntry(slot, low)
	g.writeEntry(slot+1, high)
	g.cores[coreID] = &TSSInfo{Addr: tssAddr, ISTs: ists}
	base, limit := g.base, g.limit
	g.mu.Unlock()

	const (
		codeSelector = indexCode * entrySize
		dataSelector = indexData * entrySize
	)
	tssSelector := uint16(slot * entrySize)

	if g.segs != nil {
		g.segs.LoadGDT(base, limit)
		g.segs.ReloadDataSegments(codeSelector, dataSelector)
		g.segs.LoadTaskRegister(tssSelector)
	}

	klog.Puts("gdt: core ")
	klog.PutUint(uint64(coreID))
	klog.Puts(" TSS at 0x")
	klog.PutHex64(tssAddr)
	klog.Puts("\n")
	return nil
}

// SetCurrentKernelStack updates coreID's TSS rsp[0] to point at the top
// of the stack the next task switch on that core should use: the idle
// task's kernel stack, or an ordinary task's default-sized stack,
// generalizing gdt.rs's set_current_kernel_stack (which reached into a
// global core_scheduler()) to take the task's stack base explicitly.
func (g *GDT) SetCurrentKernelStack(coreID int, taskStackBase uint64, isIdle bool, kernelStackSize, defaultStackSize uint64) error {
	g.mu.Lock()
	info, ok := g.cores[coreID]
	g.mu.Unlock()
	if !ok {
		return ErrUnknownCore
	}

	size := defaultStackSize
	if isIdle {
		size = kernelStackSize
	}
	rsp0 := taskStackBase + size - config.StackGuardOffset
	g.mem.WriteUint64(info.Addr+tssRSP0Offset, rsp0)
	return nil
}

// TSSFor returns the recorded TSS bookkeeping for coreID, for tests and
// diagnostics.
func (g *GDT) TSSFor(coreID int) (TSSInfo, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	info, ok := g.cores[coreID]
	if !ok {
		return TSSInfo{}, false
	}
	return *info, true
}

func tssDescriptor(base, limit uint64) (low, high uint64) {
	l := tssDescriptorLow{
		LimitLow:    uint16(limit),
		BaseLow:     uint16(base),
		BaseMid:     uint8(base >> 16),
		Type:        0x9, // available 64-bit TSS
		Present:     true,
		LimitHigh:   uint8(limit >> 16),
		BaseHigh:    uint8(base >> 24),
		Granularity: false,
	}
	h := tssDescriptorHigh{
		BaseUpper: uint32(base >> 32),
	}

	lowPacked, err := bitfield.Pack(&l)
	if err != nil {
		panic(err)
	}
	highPacked, err := bitfield.Pack(&h)
	if err != nil {
		panic(err)
	}
	return lowPacked, highPacked
}
