package kmsg

import "testing"

func TestWriteStringStoresBytesInOrder(t *testing.T) {
	var b Buffer
	b.WriteString("hello")

	snap := b.Snapshot()
	if string(snap[:5]) != "hello" {
		t.Fatalf("got %q, want %q", snap[:5], "hello")
	}
}

func TestWriteWrapsAroundRing(t *testing.T) {
	var b Buffer
	for i := 0; i < Size+3; i++ {
		b.WriteByte('a')
	}
	b.WriteByte('z')

	snap := b.Snapshot()
	// index wrapped: byte 3 (0-indexed) of the next lap was just written as 'z'
	if snap[3] != 'z' {
		t.Fatalf("expected wraparound write at offset 3, got %q", snap[3])
	}
}

func TestIndexAdvancesPastSizeWithoutPanic(t *testing.T) {
	var b Buffer
	for i := 0; i < 10*Size; i++ {
		b.WriteByte(byte(i))
	}
}
