package gdt

import (
	"testing"

	"github.com/hermitgo/kernel/internal/bitfield"
	"github.com/hermitgo/kernel/internal/config"
)

func newTestGDT(t *testing.T) (*GDT, *SimSegments) {
	t.Helper()
	mem := NewSimMemory()
	alloc := NewSimAllocator(0x2000_0000)
	segs := &SimSegments{}
	g := New(mem, alloc, segs)
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return g, segs
}

func TestInitWritesCodeAndDataDescriptors(t *testing.T) {
	g, _ := newTestGDT(t)

	base, limit := g.GDTR()
	if base == 0 {
		t.Fatal("GDTR: base is zero")
	}
	wantLimit := uint16(config.GDTEntries*entrySize - 1)
	if limit != wantLimit {
		t.Fatalf("GDTR: limit = %d, want %d", limit, wantLimit)
	}

	code := g.mem.ReadUint64(base + indexCode*entrySize)
	var d SegmentDescriptor
	if err := bitfield.Unpack(code, &d); err != nil {
		t.Fatalf("unpack code descriptor: %v", err)
	}
	if !d.Present || !d.Executable || !d.LongMode || !d.DescriptorType {
		t.Fatalf("code descriptor = %+v, want present/executable/long-mode/code-data", d)
	}

	data := g.mem.ReadUint64(base + indexData*entrySize)
	var dd SegmentDescriptor
	if err := bitfield.Unpack(data, &dd); err != nil {
		t.Fatalf("unpack data descriptor: %v", err)
	}
	if !dd.Present || dd.Executable || !dd.DescriptorType {
		t.Fatalf("data descriptor = %+v, want present/not-executable/code-data", dd)
	}
}

func TestAddCurrentCoreWritesRSP0AndISTs(t *testing.T) {
	g, segs := newTestGDT(t)

	const stackBase = 0x3000_0000
	const stackSize = config.KernelStackSize

	if err := g.AddCurrentCore(0, stackBase, stackSize); err != nil {
		t.Fatalf("AddCurrentCore: %v", err)
	}

	info, ok := g.TSSFor(0)
	if !ok {
		t.Fatal("TSSFor(0): not found after AddCurrentCore")
	}

	wantRSP0 := uint64(stackBase + stackSize - config.StackGuardOffset)
	gotRSP0 := g.mem.ReadUint64(info.Addr + tssRSP0Offset)
	if gotRSP0 != wantRSP0 {
		t.Fatalf("rsp[0] = 0x%x, want 0x%x", gotRSP0, wantRSP0)
	}

	for i := 0; i < config.ISTEntries; i++ {
		got := g.mem.ReadUint64(info.Addr + uint64(tssIST1Offset+8*i))
		if got != info.ISTs[i] {
			t.Fatalf("ist[%d] in memory = 0x%x, want recorded 0x%x", i, got, info.ISTs[i])
		}
		if info.ISTs[i] == 0 {
			t.Fatalf("ist[%d] is zero", i)
		}
	}

	if segs.LoadGDTCalls != 1 || segs.ReloadCalls != 1 || segs.LoadTRCalls != 1 {
		t.Fatalf("segment reload calls = (%d,%d,%d), want (1,1,1)", segs.LoadGDTCalls, segs.ReloadCalls, segs.LoadTRCalls)
	}
	if segs.TaskSelector == 0 {
		t.Fatal("TaskSelector is zero (still pointing at the null descriptor)")
	}
}

func TestAddCurrentCoreAssignsDistinctTSSSlotsPerCore(t *testing.T) {
	g, _ := newTestGDT(t)

	if err := g.AddCurrentCore(0, 0x3000_0000, config.KernelStackSize); err != nil {
		t.Fatalf("AddCurrentCore(0): %v", err)
	}
	if err := g.AddCurrentCore(1, 0x3100_0000, config.KernelStackSize); err != nil {
		t.Fatalf("AddCurrentCore(1): %v", err)
	}

	info0, _ := g.TSSFor(0)
	info1, _ := g.TSSFor(1)
	if info0.Addr == info1.Addr {
		t.Fatal("core 0 and core 1 share the same TSS address")
	}
}

func TestSetCurrentKernelStackUpdatesRSP0ForIdleAndOrdinaryTasks(t *testing.T) {
	g, _ := newTestGDT(t)
	if err := g.AddCurrentCore(0, 0x3000_0000, config.KernelStackSize); err != nil {
		t.Fatalf("AddCurrentCore: %v", err)
	}

	const taskStackBase = 0x4000_0000
	if err := g.SetCurrentKernelStack(0, taskStackBase, false, config.KernelStackSize, config.DefaultStackSize); err != nil {
		t.Fatalf("SetCurrentKernelStack (ordinary): %v", err)
	}
	info, _ := g.TSSFor(0)
	want := uint64(taskStackBase + config.DefaultStackSize - config.StackGuardOffset)
	if got := g.mem.ReadUint64(info.Addr + tssRSP0Offset); got != want {
		t.Fatalf("rsp[0] (ordinary) = 0x%x, want 0x%x", got, want)
	}

	if err := g.SetCurrentKernelStack(0, taskStackBase, true, config.KernelStackSize, config.DefaultStackSize); err != nil {
		t.Fatalf("SetCurrentKernelStack (idle): %v", err)
	}
	want = uint64(taskStackBase + config.KernelStackSize - config.StackGuardOffset)
	if got := g.mem.ReadUint64(info.Addr + tssRSP0Offset); got != want {
		t.Fatalf("rsp[0] (idle) = 0x%x, want 0x%x", got, want)
	}
}

func TestSetCurrentKernelStackUnknownCore(t *testing.T) {
	g, _ := newTestGDT(t)
	err := g.SetCurrentKernelStack(99, 0x1000, false, config.KernelStackSize, config.DefaultStackSize)
	if err != ErrUnknownCore {
		t.Fatalf("err = %v, want ErrUnknownCore", err)
	}
}

func TestAddCurrentCoreRunsOutOfDescriptorSlots(t *testing.T) {
	g, _ := newTestGDT(t)
	g.nextTSSSlot = config.GDTEntries - 1 // leave room for at most a partial pair

	err := g.AddCurrentCore(0, 0x3000_0000, config.KernelStackSize)
	if err != ErrTooManyCores {
		t.Fatalf("err = %v, want ErrTooManyCores", err)
	}
}
