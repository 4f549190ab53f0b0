package cpu

// SimCPUID is a map-backed CPUIDSource for tests, keyed by (leaf,
// subleaf).
type SimCPUID map[[2]uint32]CPUIDResult

// Set installs the result CPUID(leaf, subleaf) should return.
func (s SimCPUID) Set(leaf, subleaf uint32, r CPUIDResult) {
	s[[2]uint32{leaf, subleaf}] = r
}

func (s SimCPUID) CPUID(leaf, subleaf uint32) CPUIDResult {
	return s[[2]uint32{leaf, subleaf}]
}

// SimMSR is a map-backed MSRAccessor for tests.
type SimMSR map[uint32]uint64

func (s SimMSR) ReadMSR(reg uint32) uint64        { return s[reg] }
func (s SimMSR) WriteMSR(reg uint32, value uint64) { s[reg] = value }

// SimRegisters is a plain-struct RegisterAccessor for tests.
type SimRegisters struct {
	cr0, cr4, xcr0, fsBase uint64
}

func (r *SimRegisters) CR0() uint64          { return r.cr0 }
func (r *SimRegisters) SetCR0(v uint64)      { r.cr0 = v }
func (r *SimRegisters) CR4() uint64          { return r.cr4 }
func (r *SimRegisters) SetCR4(v uint64)      { r.cr4 = v }
func (r *SimRegisters) XCR0() uint64         { return r.xcr0 }
func (r *SimRegisters) SetXCR0(v uint64)     { r.xcr0 = v }
func (r *SimRegisters) WriteFSBase(v uint64) { r.fsBase = v }
