package cpu

import _ "unsafe" // for go:linkname

// HardwareCPUID, HardwareMSR, and HardwareRegisters are the production
// CPUIDSource/MSRAccessor/RegisterAccessor: thin shims over the actual
// instructions, linked the way the teacher links every hardware
// primitive (src/go/mazarin/exceptions.go's enable_irqs/disable_irqs) to
// a small assembly file this package does not itself contain.

//go:linkname cpuidAsm cpuidAsm
//go:nosplit
func cpuidAsm(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)

//go:linkname rdmsrAsm rdmsrAsm
//go:nosplit
func rdmsrAsm(reg uint32) uint64

//go:linkname wrmsrAsm wrmsrAsm
//go:nosplit
func wrmsrAsm(reg uint32, value uint64)

//go:linkname readCR0Asm readCR0Asm
//go:nosplit
func readCR0Asm() uint64

//go:linkname writeCR0Asm writeCR0Asm
//go:nosplit
func writeCR0Asm(uint64)

//go:linkname readCR4Asm readCR4Asm
//go:nosplit
func readCR4Asm() uint64

//go:linkname writeCR4Asm writeCR4Asm
//go:nosplit
func writeCR4Asm(uint64)

//go:linkname readXCR0Asm readXCR0Asm
//go:nosplit
func readXCR0Asm() uint64

//go:linkname writeXCR0Asm writeXCR0Asm
//go:nosplit
func writeXCR0Asm(uint64)

//go:linkname writeFSBaseAsm writeFSBaseAsm
//go:nosplit
func writeFSBaseAsm(uint64)

//go:linkname rdtscAsm rdtscAsm
//go:nosplit
func rdtscAsm() uint64

//go:linkname rdtscpAsm rdtscpAsm
//go:nosplit
func rdtscpAsm() uint64

// HardwareCPUID executes the real CPUID instruction.
type HardwareCPUID struct{}

func (HardwareCPUID) CPUID(leaf, subleaf uint32) CPUIDResult {
	eax, ebx, ecx, edx := cpuidAsm(leaf, subleaf)
	return CPUIDResult{EAX: eax, EBX: ebx, ECX: ecx, EDX: edx}
}

// HardwareMSR executes the real RDMSR/WRMSR instructions.
type HardwareMSR struct{}

func (HardwareMSR) ReadMSR(reg uint32) uint64        { return rdmsrAsm(reg) }
func (HardwareMSR) WriteMSR(reg uint32, value uint64) { wrmsrAsm(reg, value) }

// HardwareRegisters reads and writes the real control registers.
type HardwareRegisters struct{}

func (HardwareRegisters) CR0() uint64        { return readCR0Asm() }
func (HardwareRegisters) SetCR0(v uint64)    { writeCR0Asm(v) }
func (HardwareRegisters) CR4() uint64        { return readCR4Asm() }
func (HardwareRegisters) SetCR4(v uint64)    { writeCR4Asm(v) }
func (HardwareRegisters) XCR0() uint64       { return readXCR0Asm() }
func (HardwareRegisters) SetXCR0(v uint64)   { writeXCR0Asm(v) }
func (HardwareRegisters) WriteFSBase(v uint64) { writeFSBaseAsm(v) }

// Clock reads the timestamp counter, selecting RDTSCP over RDTSC when the
// CPU supports it (processor.rs picks get_timestamp_rdtscp the same way,
// once at detect_features time).
type Clock struct {
	useRDTSCP bool
}

// NewClock returns a Clock reading with RDTSCP when hasRDTSCP is true.
func NewClock(hasRDTSCP bool) Clock { return Clock{useRDTSCP: hasRDTSCP} }

// Now returns the current timestamp counter value.
func (c Clock) Now() uint64 {
	if c.useRDTSCP {
		return rdtscpAsm()
	}
	return rdtscAsm()
}
