package gdt

// SimMemory is a map-backed Memory for host tests, mirroring the pattern
// internal/heap.SimMemory and internal/mm/pagetable.Sim use: 8-byte
// words keyed by their exact start address, so a word written at an
// unaligned offset (the TSS's rsp[0] at offset 4) reads back unchanged.
// Words whose byte ranges overlap are stored independently; a write to
// one does not show through a read of the other as it would in Raw.
type SimMemory map[uint64]uint64

func NewSimMemory() SimMemory { return make(SimMemory) }

func (m SimMemory) ReadUint64(addr uint64) uint64 { return m[addr] }

func (m SimMemory) WriteUint64(addr uint64, value uint64) { m[addr] = value }

func (m SimMemory) Zero(addr uint64, n uint64) {
	for i := uint64(0); i < n; i += 8 {
		delete(m, addr+i)
	}
}

// SimAllocator is a trivial bump allocator standing in for internal/mm.MM
// in host tests: each call returns the next free address and advances a
// cursor, rounding up to an 8-byte boundary so TSS/IST addresses never
// collide with each other's fields.
type SimAllocator struct {
	next uint64
}

func NewSimAllocator(base uint64) *SimAllocator {
	return &SimAllocator{next: base}
}

func (a *SimAllocator) Allocate(size uint64, executeDisable bool) (uint64, error) {
	addr := a.next
	a.next += (size + 7) &^ 7
	return addr, nil
}

// SimSegments records the register-reload calls AddCurrentCore makes,
// for tests to assert against instead of touching real hardware state.
type SimSegments struct {
	GDTBase          uint64
	GDTLimit         uint16
	CodeSelector     uint16
	DataSelector     uint16
	TaskSelector     uint16
	LoadGDTCalls     int
	ReloadCalls      int
	LoadTRCalls      int
}

func (s *SimSegments) LoadGDT(base uint64, limit uint16) {
	s.GDTBase, s.GDTLimit = base, limit
	s.LoadGDTCalls++
}

func (s *SimSegments) ReloadDataSegments(codeSelector, dataSelector uint16) {
	s.CodeSelector, s.DataSelector = codeSelector, dataSelector
	s.ReloadCalls++
}

func (s *SimSegments) LoadTaskRegister(selector uint16) {
	s.TaskSelector = selector
	s.LoadTRCalls++
}
