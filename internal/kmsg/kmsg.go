// Package kmsg implements the kernel message ring buffer: a fixed
// 4 KiB + 1 byte out-of-band console that a co-located Linux host reads
// directly out of the ".kmsg" section, with no serial port involved
// (spec.md §6).
package kmsg

import (
	"sync/atomic"
	"unsafe"
)

// Size is the usable buffer size; one trailing sentinel byte past it is
// never overwritten (spec.md §6 constants: KMSG_SIZE).
const Size = 4096

// Buffer is the fixed-size ring. The zero value is ready to use. A real
// boot places exactly one Buffer in the linker-provided ".kmsg" section;
// tests construct one on the stack/heap like any other value.
type Buffer struct {
	// data is Size+1 bytes: Size ring bytes plus the never-overwritten
	// trailing sentinel spec.md names explicitly.
	data  [Size + 1]byte
	index uint64 // single process-wide atomic write cursor
}

// WriteByte appends byte to the ring at the next cursor position modulo
// Size, advancing the write index.
//
// The index is advanced with a sequentially-consistent atomic add, but
// the byte itself is written non-atomically afterward — preserved exactly
// as the original (src/kernel_message_buffer.rs) does it, per spec.md §9's
// open question: a concurrent reader on the Linux side could in principle
// observe a torn byte slot. This is not "fixed" here because the ordering
// contract the Linux-side reader actually relies on is not specified and
// guessing at one risks breaking it silently.
func (b *Buffer) WriteByte(c byte) {
	idx := atomic.AddUint64(&b.index, 1) - 1
	slot := (*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(&b.data[0])) + uintptr(idx%Size)))
	*slot = c
}

// WriteString writes each byte of s to the ring in order.
func (b *Buffer) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
	}
}

// Snapshot returns a copy of the live ring contents for diagnostics/tests;
// it is not part of the external (Linux-side) read contract.
func (b *Buffer) Snapshot() [Size]byte {
	var out [Size]byte
	copy(out[:], b.data[:Size])
	return out
}
