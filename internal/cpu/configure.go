package cpu

import "github.com/hermitgo/kernel/internal/kernel"

// RegisterAccessor reads and writes the control registers Configure
// touches. Production use is HardwareRegisters; tests use a plain struct
// holding the simulated register values.
type RegisterAccessor interface {
	CR0() uint64
	SetCR0(uint64)
	CR4() uint64
	SetCR4(uint64)
	XCR0() uint64
	SetXCR0(uint64)
	WriteFSBase(uint64)
}

const msrEFER = 0xC000_0080

const (
	eferSCE = 1 << 0
	eferLMA = 1 << 10
	eferNXE = 1 << 11
)

const (
	cr0MonitorCoprocessor = 1 << 1
	cr0EmulateCoprocessor = 1 << 2
	cr0TaskSwitched       = 1 << 3
	cr0NumericError       = 1 << 5
	cr0WriteProtect       = 1 << 16
	cr0NotWriteThrough    = 1 << 29
	cr0CacheDisable       = 1 << 30
)

const (
	cr4EnableMachineCheck = 1 << 6
	cr4EnableSSE          = 1 << 9
	cr4UnmaskedSSE        = 1 << 10
	cr4EnableFSGSBase     = 1 << 16
	cr4EnableOSXSave      = 1 << 18
)

const (
	xcr0FPUMMXState = 1 << 0
	xcr0SSEState    = 1 << 1
	xcr0AVXState    = 1 << 2
)

// Configure brings the boot core into the state the rest of the kernel
// assumes, matching processor.rs's configure(): EFER long-mode bits, CR0
// FPU/write-protect bits, CR4 SSE/XSAVE/FSGSBASE, XCR0 enabled state
// components, FS base zeroed, and Enhanced SpeedStep applied last.
// Halts via kernel.Panic if the CPU lacks FSGSBASE, a hard requirement
// (spec.md §4.F).
func Configure(f Features, msr MSRAccessor, regs RegisterAccessor) {
	msr.WriteMSR(msrEFER, msr.ReadMSR(msrEFER)|eferLMA|eferSCE|eferNXE)

	cr0 := regs.CR0()
	cr0 |= cr0MonitorCoprocessor | cr0NumericError
	cr0 &^= cr0EmulateCoprocessor
	cr0 |= cr0TaskSwitched
	cr0 |= cr0WriteProtect
	cr0 &^= cr0CacheDisable | cr0NotWriteThrough
	regs.SetCR0(cr0)

	cr4 := regs.CR4()
	cr4 |= cr4EnableMachineCheck
	cr4 |= cr4EnableSSE | cr4UnmaskedSSE
	if f.XSAVE {
		cr4 |= cr4EnableOSXSave
	}
	if !f.FSGSBase {
		kernel.Panic("cpu: this kernel requires the FSGSBASE feature")
		return
	}
	cr4 |= cr4EnableFSGSBase
	regs.SetCR4(cr4)

	if f.XSAVE {
		xcr0 := regs.XCR0()
		xcr0 |= xcr0FPUMMXState | xcr0SSEState
		if f.AVX {
			xcr0 |= xcr0AVXState
		}
		regs.SetXCR0(xcr0)
	}

	regs.WriteFSBase(0)

	DetectSpeedStep(f, msr).Configure(msr)
}
