// Package cpu implements spec.md §4.F: CPUID-based feature detection and
// the one-time control-register configuration that brings the boot core
// into the state the rest of the kernel assumes (long mode fully enabled,
// FPU/SSE/XSAVE wired up, FSGSBASE required). Grounded on
// original_source/src/arch/x86_64/kernel/processor.rs's detect_features/
// configure pair; translated into the teacher's small-interface,
// go:linkname-to-assembly style (internal/mm/pagetable.MemoryAccessor is
// the same pattern applied to page tables) so feature decoding is host
// testable without real hardware.
package cpu

import "strings"

// CPUIDResult is the four general-purpose registers CPUID leaves return.
type CPUIDResult struct {
	EAX, EBX, ECX, EDX uint32
}

// CPUIDSource executes CPUID for a given leaf/subleaf. The production
// implementation (HardwareCPUID) is a thin go:linkname shim over the
// actual instruction; tests use a map-backed fake.
type CPUIDSource interface {
	CPUID(leaf, subleaf uint32) CPUIDResult
}

// Features is everything Detect learns about the running core.
type Features struct {
	PhysicalAddressBits uint8
	LinearAddressBits   uint8

	Supports1GiBPages bool
	AVX               bool
	RDRAND            bool
	TSCDeadline       bool
	X2APIC            bool
	XSAVE             bool
	FSGSBase          bool
	HasRDTSCP         bool

	EISTAvailable        bool
	EnergyBiasPreference bool

	BrandString string

	IsHypervisor     bool
	HypervisorVendor string
}

// Detector reads CPUID leaves through a CPUIDSource and decodes them into
// Features.
type Detector struct {
	cpuid CPUIDSource
}

// NewDetector returns a Detector reading leaves from src.
func NewDetector(src CPUIDSource) *Detector {
	return &Detector{cpuid: src}
}

// Detect reads the CPUID leaves processor.rs's detect_features reads and
// decodes them into a Features value.
func (d *Detector) Detect() Features {
	var f Features

	leaf1 := d.cpuid.CPUID(1, 0)
	f.AVX = leaf1.ECX&(1<<28) != 0
	f.RDRAND = leaf1.ECX&(1<<30) != 0
	f.TSCDeadline = leaf1.ECX&(1<<24) != 0
	f.X2APIC = leaf1.ECX&(1<<21) != 0
	f.XSAVE = leaf1.ECX&(1<<26) != 0
	f.EISTAvailable = leaf1.ECX&(1<<7) != 0
	hypervisorPresent := leaf1.ECX&(1<<31) != 0

	leaf6 := d.cpuid.CPUID(6, 0)
	f.EnergyBiasPreference = leaf6.ECX&(1<<3) != 0

	leaf7 := d.cpuid.CPUID(7, 0)
	f.FSGSBase = leaf7.EBX&(1<<0) != 0

	extMax := d.cpuid.CPUID(0x8000_0000, 0).EAX
	if extMax >= 0x8000_0001 {
		ext1 := d.cpuid.CPUID(0x8000_0001, 0)
		f.Supports1GiBPages = ext1.EDX&(1<<26) != 0
		f.HasRDTSCP = ext1.EDX&(1<<27) != 0
	}
	if extMax >= 0x8000_0008 {
		addr := d.cpuid.CPUID(0x8000_0008, 0)
		f.PhysicalAddressBits = uint8(addr.EAX & 0xFF)
		f.LinearAddressBits = uint8((addr.EAX >> 8) & 0xFF)
	}
	if extMax >= 0x8000_0004 {
		f.BrandString = d.brandString()
	}

	if hypervisorPresent {
		f.IsHypervisor = true
		hv := d.cpuid.CPUID(0x4000_0000, 0)
		f.HypervisorVendor = vendorString(hv.EBX, hv.ECX, hv.EDX)
	}

	return f
}

func (d *Detector) brandString() string {
	var buf [48]byte
	for i, leaf := range [3]uint32{0x8000_0002, 0x8000_0003, 0x8000_0004} {
		r := d.cpuid.CPUID(leaf, 0)
		putLE32(buf[i*16:], r.EAX)
		putLE32(buf[i*16+4:], r.EBX)
		putLE32(buf[i*16+8:], r.ECX)
		putLE32(buf[i*16+12:], r.EDX)
	}
	return strings.TrimRight(string(buf[:]), "\x00 ")
}

func vendorString(ebx, ecx, edx uint32) string {
	var buf [12]byte
	putLE32(buf[0:], ebx)
	putLE32(buf[4:], ecx)
	putLE32(buf[8:], edx)
	return strings.TrimRight(string(buf[:]), "\x00 ")
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// BrandStringMHz extracts a frequency from a CPUID brand string the way
// processor.rs's detect_from_cpuid_brand_string does: find "GHz" and read
// the four characters immediately before it as "D.DD". Returns ok=false
// if "GHz" is absent or those four characters aren't digit-dot-digit-digit
// (internal/freq falls through to PIT measurement in that case).
func BrandStringMHz(brand string) (uint16, bool) {
	idx := strings.Index(brand, "GHz")
	if idx < 4 {
		return 0, false
	}
	digits := brand[idx-4 : idx]
	if digits[1] != '.' || !isDigit(digits[0]) || !isDigit(digits[2]) || !isDigit(digits[3]) {
		return 0, false
	}
	thousand := uint16(digits[0] - '0')
	hundred := uint16(digits[2] - '0')
	ten := uint16(digits[3] - '0')
	return thousand*1000 + hundred*100 + ten*10, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
