package cpu

import (
	"testing"

	"github.com/hermitgo/kernel/internal/kernel"
)

func TestBrandStringMHzParsesGigahertzValue(t *testing.T) {
	mhz, ok := BrandStringMHz("Intel(R) Core(TM) i7-8700K CPU @ 3.70GHz")
	if !ok {
		t.Fatal("expected a parse")
	}
	if mhz != 3700 {
		t.Fatalf("mhz = %d, want 3700", mhz)
	}
}

func TestBrandStringMHzRejectsMissingGHz(t *testing.T) {
	if _, ok := BrandStringMHz("a generic CPU with no frequency listed"); ok {
		t.Fatal("expected no parse without a GHz token")
	}
}

func TestBrandStringMHzRejectsNonNumericPrefix(t *testing.T) {
	if _, ok := BrandStringMHz("weirdGHz"); ok {
		t.Fatal("expected no parse when the characters before GHz aren't D.DD")
	}
}

func encodeBrandString(sim SimCPUID, s string) {
	var buf [48]byte
	copy(buf[:], s)
	for i, leaf := range [3]uint32{0x8000_0002, 0x8000_0003, 0x8000_0004} {
		chunk := buf[i*16 : i*16+16]
		var le [4]uint32
		for w := 0; w < 4; w++ {
			le[w] = uint32(chunk[w*4]) | uint32(chunk[w*4+1])<<8 | uint32(chunk[w*4+2])<<16 | uint32(chunk[w*4+3])<<24
		}
		sim.Set(leaf, 0, CPUIDResult{EAX: le[0], EBX: le[1], ECX: le[2], EDX: le[3]})
	}
}

func TestDetectReadsFeatureBits(t *testing.T) {
	sim := SimCPUID{}
	sim.Set(1, 0, CPUIDResult{ECX: (1 << 28) | (1 << 26) | (1 << 7)}) // AVX, XSAVE, EIST
	sim.Set(6, 0, CPUIDResult{})
	sim.Set(7, 0, CPUIDResult{EBX: 1 << 0}) // FSGSBASE
	sim.Set(0x8000_0000, 0, CPUIDResult{EAX: 0x8000_0008})
	sim.Set(0x8000_0008, 0, CPUIDResult{EAX: 48 | (57 << 8)})
	encodeBrandString(sim, "Test CPU @ 2.50GHz")

	f := NewDetector(sim).Detect()

	if !f.AVX || !f.XSAVE || !f.EISTAvailable || !f.FSGSBase {
		t.Fatalf("missing expected feature bits: %+v", f)
	}
	if f.Supports1GiBPages {
		t.Fatal("expected Supports1GiBPages false: leaf 0x80000001 does not set the 1 GiB page bit")
	}
	if f.PhysicalAddressBits != 48 || f.LinearAddressBits != 57 {
		t.Fatalf("address bits = %d/%d, want 48/57", f.PhysicalAddressBits, f.LinearAddressBits)
	}
	mhz, ok := BrandStringMHz(f.BrandString)
	if !ok || mhz != 2500 {
		t.Fatalf("brand string %q parsed to %d,%v, want 2500,true", f.BrandString, mhz, ok)
	}
}

func TestDetectReadsHypervisorVendor(t *testing.T) {
	sim := SimCPUID{}
	sim.Set(1, 0, CPUIDResult{ECX: 1 << 31})
	sim.Set(6, 0, CPUIDResult{})
	sim.Set(7, 0, CPUIDResult{})
	sim.Set(0x8000_0000, 0, CPUIDResult{})
	var vendor [12]byte
	copy(vendor[:], "uhyve")
	sim.Set(0x4000_0000, 0, CPUIDResult{
		EBX: uint32(vendor[0]) | uint32(vendor[1])<<8 | uint32(vendor[2])<<16 | uint32(vendor[3])<<24,
		ECX: uint32(vendor[4]) | uint32(vendor[5])<<8 | uint32(vendor[6])<<16 | uint32(vendor[7])<<24,
		EDX: uint32(vendor[8]) | uint32(vendor[9])<<8 | uint32(vendor[10])<<16 | uint32(vendor[11])<<24,
	})

	f := NewDetector(sim).Detect()
	if !f.IsHypervisor {
		t.Fatal("expected IsHypervisor true")
	}
	if f.HypervisorVendor != "uhyve" {
		t.Fatalf("vendor = %q, want uhyve", f.HypervisorVendor)
	}
}

func TestDetectSpeedStepUnavailable(t *testing.T) {
	s := DetectSpeedStep(Features{EISTAvailable: false}, SimMSR{})
	if s.Available {
		t.Fatal("expected Available false")
	}
}

func TestDetectSpeedStepLockedStopsBeforeReadingPState(t *testing.T) {
	msr := SimMSR{msrIA32MiscEnable: miscEnableEnhancedSpeedstep | miscEnableSpeedstepLock}
	s := DetectSpeedStep(Features{EISTAvailable: true}, msr)
	if !s.Enabled || !s.Locked {
		t.Fatal("expected enabled+locked")
	}
	if s.MaxPState != 0 {
		t.Fatal("expected MaxPState untouched while locked")
	}
}

func TestDetectSpeedStepTurbo(t *testing.T) {
	msr := SimMSR{
		msrIA32MiscEnable:  miscEnableEnhancedSpeedstep,
		msrPlatformInfo:    30 << 8,
		msrTurboRatioLimit: 34,
	}
	s := DetectSpeedStep(Features{EISTAvailable: true}, msr)
	if s.MaxPState != 34 || !s.IsTurboPState {
		t.Fatalf("s = %+v, want MaxPState=34 IsTurboPState=true", s)
	}

	s.Configure(msr)
	got := msr[msrIA32PerfCtl]
	want := uint64(34)<<8 | 1<<32
	if got != want {
		t.Fatalf("IA32_PERF_CTL = %x, want %x", got, want)
	}
}

func TestConfigureSetsControlRegisterBits(t *testing.T) {
	msr := SimMSR{}
	regs := &SimRegisters{}
	f := Features{XSAVE: true, AVX: true, FSGSBase: true}

	Configure(f, msr, regs)

	if regs.cr4&cr4EnableFSGSBase == 0 {
		t.Fatal("expected CR4.FSGSBASE set")
	}
	if regs.cr4&cr4EnableOSXSave == 0 {
		t.Fatal("expected CR4.OSXSAVE set since XSAVE is supported")
	}
	if regs.xcr0&xcr0AVXState == 0 {
		t.Fatal("expected XCR0.AVX set since AVX is supported")
	}
	if regs.fsBase != 0 {
		t.Fatal("expected FS base zeroed")
	}
	if msr[msrEFER]&eferNXE == 0 {
		t.Fatal("expected EFER.NXE set")
	}
}

func TestConfigureHaltsWithoutFSGSBase(t *testing.T) {
	var halted bool
	kernel.SetHaltHook(func() { halted = true })
	defer kernel.SetHaltHook(func() {})

	Configure(Features{FSGSBase: false}, SimMSR{}, &SimRegisters{})

	if !halted {
		t.Fatal("expected Configure to halt when FSGSBASE is unavailable")
	}
}
