package heap

// SimMemory is a map-backed Memory for host tests, keyed by segment
// address, mirroring internal/mm/pagetable's Sim.
type SimMemory struct {
	segments map[uint64]rawHeader
}

// NewSimMemory returns an empty simulated memory.
func NewSimMemory() *SimMemory {
	return &SimMemory{segments: map[uint64]rawHeader{}}
}

func (s *SimMemory) ReadSegment(addr uint64) (next, prev uint64, allocated bool, size uint64) {
	h := s.segments[addr]
	return h.next, h.prev, h.allocated != 0, h.size
}

func (s *SimMemory) WriteSegment(addr uint64, next, prev uint64, allocated bool, size uint64) {
	var a uint64
	if allocated {
		a = 1
	}
	s.segments[addr] = rawHeader{next: next, prev: prev, allocated: a, size: size}
}
