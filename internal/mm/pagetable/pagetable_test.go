package pagetable

import "testing"

const root = 0x1000

func newMapper() *Mapper {
	sim := NewSim(root)
	frames := NewSimFrames(0x10_0000)
	m := New(sim, frames, root)
	return m
}

func TestMapBasePageLookup(t *testing.T) {
	m := newMapper()
	virt := uint64(0x4000_0000)
	phys := uint64(0x8000_0000)
	flags := Normal().Writable()

	m.Map(Base, virt, phys, 1, flags)

	gotPhys, gotFlags, ok := m.GetPageTableEntry(Base, virt)
	if !ok {
		t.Fatal("expected mapping to be present")
	}
	if gotPhys != phys {
		t.Fatalf("phys = %x, want %x", gotPhys, phys)
	}
	if !gotFlags.Has(flags) {
		t.Fatalf("flags %x do not contain requested %x", gotFlags, flags)
	}
}

func TestMapMultipleBasePages(t *testing.T) {
	m := newMapper()
	virt := uint64(0x4000_0000)
	phys := uint64(0x8000_0000)
	const n = 5

	m.Map(Base, virt, phys, n, Normal().Writable())

	for i := 0; i < n; i++ {
		v := virt + uint64(i)*Base.Bytes
		p := phys + uint64(i)*Base.Bytes
		got, _, ok := m.GetPageTableEntry(Base, v)
		if !ok || got != p {
			t.Fatalf("page %d: got %x ok=%v, want %x", i, got, ok, p)
		}
	}
}

func TestMapLargeAndHugePages(t *testing.T) {
	for _, size := range []Size{Large, Huge} {
		m := newMapper()
		virt := alignDownForTest(0x40_0000_0000, size.Bytes)
		phys := alignDownForTest(0x80_0000_0000, size.Bytes)

		m.Map(size, virt, phys, 3, Normal())

		for i := 0; i < 3; i++ {
			v := virt + uint64(i)*size.Bytes
			p := phys + uint64(i)*size.Bytes
			got, _, ok := m.GetPageTableEntry(size, v)
			if !ok || got != p {
				t.Fatalf("%s page %d: got %x ok=%v, want %x", size.Name, i, got, ok, p)
			}
		}
	}
}

func TestGetPageTableEntryAbsent(t *testing.T) {
	m := newMapper()
	if _, _, ok := m.GetPageTableEntry(Base, 0x9999_0000); ok {
		t.Fatal("expected no entry for unmapped address")
	}
}

func TestExecuteDisableBitSurvivesRoundTrip(t *testing.T) {
	m := newMapper()
	virt := uint64(0x5000_0000)
	flags := Normal().Writable().ExecuteDisable()

	m.Map(Base, virt, 0x6000_0000, 1, flags)

	_, got, ok := m.GetPageTableEntry(Base, virt)
	if !ok {
		t.Fatal("expected entry present")
	}
	if !got.Has(flagNoExecute) {
		t.Fatal("expected no-execute bit to be set")
	}
}

func alignDownForTest(v, align uint64) uint64 {
	return v &^ (align - 1)
}
