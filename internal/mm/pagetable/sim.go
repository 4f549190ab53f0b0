package pagetable

// Sim is a software-simulated MemoryAccessor backed by plain Go maps,
// used by this package's own tests and by internal/mm's tests so the
// mapper's tree-walking logic is host-testable without real physical
// memory.
type Sim struct {
	tables map[uint64]*[512]uint64
}

// NewSim returns a Sim with an already-zeroed table at root.
func NewSim(root uint64) *Sim {
	s := &Sim{tables: map[uint64]*[512]uint64{}}
	s.ZeroTable(root)
	return s
}

func (s *Sim) table(phys uint64) *[512]uint64 {
	t, ok := s.tables[phys]
	if !ok {
		t = &[512]uint64{}
		s.tables[phys] = t
	}
	return t
}

func (s *Sim) ReadEntry(tablePhys uint64, index int) uint64 {
	return s.table(tablePhys)[index]
}

func (s *Sim) WriteEntry(tablePhys uint64, index int, entry uint64) {
	s.table(tablePhys)[index] = entry
}

func (s *Sim) ZeroTable(tablePhys uint64) {
	s.tables[tablePhys] = &[512]uint64{}
}

// SimFrames hands out frames from a simple bump allocator over a
// dedicated physical range, disjoint from the mapped addresses under
// test, so intermediate page-table allocations never collide with the
// phys/virt ranges a test is exercising.
type SimFrames struct {
	next uint64
}

// NewSimFrames returns a frame source starting at base.
func NewSimFrames(base uint64) *SimFrames {
	return &SimFrames{next: base}
}

func (f *SimFrames) AllocateAligned(size, alignment uint64) (uint64, error) {
	base := (f.next + alignment - 1) &^ (alignment - 1)
	f.next = base + size
	return base, nil
}
