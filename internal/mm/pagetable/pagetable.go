// Package pagetable implements spec.md §4.C: a 4-level x86-64 radix page
// table, generic over the leaf page size (Base=4 KiB, Large=2 MiB,
// Huge=1 GiB). Per spec.md §9's "dynamic dispatch over page sizes" design
// note, the size is threaded through as an explicit Size value rather
// than a Go type parameter, so {Base, Large, Huge} can be iterated and
// table-driven tested uniformly.
package pagetable

import "github.com/hermitgo/kernel/internal/kernel"

// Size describes one of the three leaf granules a mapping can use.
type Size struct {
	Name  string
	Bytes uint64
	// Level is the radix-tree level at which this size's entries are
	// leaves: 1 = PT (4 KiB), 2 = PD (2 MiB), 3 = PDPT (1 GiB). Level 4
	// (PML4) is never a leaf.
	Level int
}

var (
	// Base is the standard 4 KiB page.
	Base = Size{Name: "4K", Bytes: 4096, Level: 1}
	// Large is a 2 MiB huge page.
	Large = Size{Name: "2M", Bytes: 2 * 1024 * 1024, Level: 2}
	// Huge is a 1 GiB huge page (requires CPUID 1-GiB-page support).
	Huge = Size{Name: "1G", Bytes: 1024 * 1024 * 1024, Level: 3}
)

// Flags mirrors the present/writable/no-execute/huge bits of a real PTE.
// Built via Normal()/Writable()/ExecuteDisable(), matching spec.md §4.C's
// "small builder" description.
type Flags uint64

const (
	flagPresent   Flags = 1 << 0
	flagWritable  Flags = 1 << 1
	flagAccessed  Flags = 1 << 5
	flagHuge      Flags = 1 << 7
	flagNoExecute Flags = 1 << 63

	addrMask uint64 = 0x000F_FFFF_FFFF_F000 // bits 12-51: physical base
)

// Normal sets the present+accessed defaults every mapping needs.
func Normal() Flags { return flagPresent | flagAccessed }

// Writable sets the read/write bit.
func (f Flags) Writable() Flags { return f | flagWritable }

// ExecuteDisable sets the no-execute bit. Requires EFER.NXE to already be
// enabled (internal/cpu.Configure does this at boot) or the bit is
// ignored by hardware.
func (f Flags) ExecuteDisable() Flags { return f | flagNoExecute }

// Has reports whether every bit set in other is also set in f — used to
// check a looked-up entry's flags are a superset of what was requested
// (spec.md §8 property 5).
func (f Flags) Has(other Flags) bool { return f&other == other }

func (f Flags) present() bool { return f&flagPresent != 0 }

// MemoryAccessor reads and writes 8-byte entries of a 512-entry,
// 4 KiB-aligned page table identified by its physical base address. The
// production implementation (Identity) assumes physical memory is
// identity-mapped into the kernel's own address space, which is true for
// this kernel's single address space (spec.md §1); tests use a
// software-simulated accessor instead.
type MemoryAccessor interface {
	ReadEntry(tablePhys uint64, index int) uint64
	WriteEntry(tablePhys uint64, index int, entry uint64)
	ZeroTable(tablePhys uint64)
}

// FrameSource allocates 4 KiB-aligned physical frames for intermediate
// page-table levels (component A in spec.md's dependency order). The
// Mapper zeroes each frame itself before linking it into the tree.
type FrameSource interface {
	AllocateAligned(size, alignment uint64) (uint64, error)
}

// Mapper installs and looks up mappings in a single page-table tree
// rooted at Root.
type Mapper struct {
	mem    MemoryAccessor
	frames FrameSource
	root   uint64

	// fatal is called when intermediate page-table allocation fails.
	// Spec.md §4.C: "on page-table allocation failure the system is not
	// recoverable and halts." Overridable so tests can observe the fatal
	// path without actually halting.
	fatal func(string)
}

// New creates a Mapper over a page table already rooted at root (a
// zeroed, 4 KiB-aligned physical frame).
func New(mem MemoryAccessor, frames FrameSource, root uint64) *Mapper {
	return &Mapper{mem: mem, frames: frames, root: root, fatal: kernel.Panic}
}

// Root returns the physical address of the top-level (PML4) table, for
// loading into CR3 at boot.
func (m *Mapper) Root() uint64 { return m.root }

func index(virt uint64, level int) int {
	shift := uint(12 + 9*(level-1))
	return int((virt >> shift) & 0x1FF)
}

// Map installs count mappings of size S starting at virt, mapped to phys,
// phys+S.Bytes, phys+2*S.Bytes, ... Intermediate table levels are created
// on demand from the frame source. virt and phys must already be aligned
// to S.Bytes.
func (m *Mapper) Map(size Size, virt, phys uint64, count int, flags Flags) {
	if virt%size.Bytes != 0 || phys%size.Bytes != 0 {
		m.fatal("pagetable: Map called with misaligned address")
		return
	}

	for i := 0; i < count; i++ {
		v := virt + uint64(i)*size.Bytes
		p := phys + uint64(i)*size.Bytes
		if !m.installOne(size, v, p, flags) {
			return
		}
	}
}

func (m *Mapper) installOne(size Size, virt, phys uint64, flags Flags) bool {
	table := m.root
	for lvl := 4; lvl > size.Level; lvl-- {
		idx := index(virt, lvl)
		entry := m.mem.ReadEntry(table, idx)
		if Flags(entry).present() {
			table = entry & addrMask
			continue
		}

		newTable, err := m.frames.AllocateAligned(4096, 4096)
		if err != nil {
			m.fatal("pagetable: out of memory allocating intermediate table")
			return false
		}
		m.mem.ZeroTable(newTable)
		m.mem.WriteEntry(table, idx, (newTable&addrMask)|uint64(flagPresent|flagWritable|flagAccessed))
		table = newTable
	}

	leaf := uint64(flags)
	if size.Level > 1 {
		leaf |= uint64(flagHuge)
	}
	idx := index(virt, size.Level)
	m.mem.WriteEntry(table, idx, (phys&addrMask)|leaf)
	return true
}

// GetPageTableEntry returns the leaf entry's physical base and flags if
// virt is mapped at granularity size, or ok=false if any level of the
// walk is not present.
func (m *Mapper) GetPageTableEntry(size Size, virt uint64) (phys uint64, flags Flags, ok bool) {
	table := m.root
	for lvl := 4; lvl > size.Level; lvl-- {
		idx := index(virt, lvl)
		entry := m.mem.ReadEntry(table, idx)
		if !Flags(entry).present() {
			return 0, 0, false
		}
		table = entry & addrMask
	}

	idx := index(virt, size.Level)
	entry := m.mem.ReadEntry(table, idx)
	if !Flags(entry).present() {
		return 0, 0, false
	}
	return entry & addrMask, Flags(entry) &^ Flags(addrMask), true
}
