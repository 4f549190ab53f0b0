package phys

import "testing"

func TestAllocateRoundsUpToPage(t *testing.T) {
	a := New(1<<20, 0)
	base, err := a.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if base%PageSize != 0 {
		t.Fatalf("base %d not page-aligned", base)
	}
	if got := a.Free(); got != (1<<20)-PageSize {
		t.Fatalf("free = %d, want %d", got, (1<<20)-PageSize)
	}
}

func TestAllocateZeroRoundsToOnePage(t *testing.T) {
	a := New(1<<20, 0)
	if _, err := a.Allocate(0); err != nil {
		t.Fatalf("Allocate(0): %v", err)
	}
	if got := a.Free(); got != (1<<20)-PageSize {
		t.Fatalf("free = %d, want one page consumed", got)
	}
}

func TestRoundTripReturnsSameBase(t *testing.T) {
	a := New(1<<20, 0)
	v1, err := a.Allocate(4096)
	if err != nil {
		t.Fatal(err)
	}
	a.Deallocate(v1, 4096)
	v2, err := a.Allocate(4096)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Fatalf("expected same base after round-trip: %d != %d", v1, v2)
	}
}

func TestOutOfMemory(t *testing.T) {
	a := New(4096, 0)
	if _, err := a.Allocate(4096); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Allocate(4096); err != ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
}

func TestDeallocateCoalescesAdjacentExtents(t *testing.T) {
	a := New(3*4096, 0)
	v1, _ := a.Allocate(4096)
	v2, _ := a.Allocate(4096)
	v3, _ := a.Allocate(4096)

	a.Deallocate(v1, 4096)
	a.Deallocate(v3, 4096)
	a.Deallocate(v2, 4096)

	// Fully coalesced, a single allocation spanning all 3 pages should
	// now succeed.
	if _, err := a.AllocateAligned(3*4096, 4096); err != nil {
		t.Fatalf("expected coalesced extent to satisfy 3-page request: %v", err)
	}
}

func TestAllocateAlignedFindsLowestFittingExtent(t *testing.T) {
	a := New(1<<20, 0)
	// Take the first page so the free extent starts at 4 KiB, below the
	// first 64 KiB boundary.
	hole, _ := a.Allocate(4096)
	base, err := a.AllocateAligned(1<<16, 1<<16)
	if err != nil {
		t.Fatal(err)
	}
	if base%(1<<16) != 0 {
		t.Fatalf("base %d not aligned to 64KiB", base)
	}
	if base != 1<<16 {
		t.Fatalf("base = %d, want the lowest fitting aligned address %d", base, 1<<16)
	}
	if base == hole {
		t.Fatalf("unexpected overlap with previous allocation")
	}
}

func TestNewReservesPrefix(t *testing.T) {
	a := New(1<<20, 1<<16)
	base, err := a.Allocate(4096)
	if err != nil {
		t.Fatal(err)
	}
	if base < 1<<16 {
		t.Fatalf("allocation %d overlaps reserved prefix", base)
	}
}
