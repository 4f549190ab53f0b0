// Package klog is the kernel's only logging sink: it writes strings and
// hex/decimal scalars straight to the message ring, in the same
// "print-the-parts-by-hand" style as the teacher's uartPuts/uartPutHex64/
// uartPutUint32 helpers (src/go/mazarin/kernel.go). It intentionally does
// not use fmt/log: both allocate, and this package must be callable
// before internal/heap has a working allocator.
package klog

import "github.com/hermitgo/kernel/internal/kmsg"

var sink *kmsg.Buffer

// Init installs the ring buffer klog writes to. Must be called once,
// early in boot, before any other klog function.
func Init(buf *kmsg.Buffer) {
	sink = buf
}

// Puts writes s verbatim to the message ring.
func Puts(s string) {
	if sink == nil {
		return
	}
	sink.WriteString(s)
}

const hexDigits = "0123456789abcdef"

// PutHex64 writes v as 16 lowercase hex digits, no "0x" prefix.
func PutHex64(v uint64) {
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	Puts(string(buf[:]))
}

// PutHex8 writes v as 2 lowercase hex digits.
func PutHex8(v uint8) {
	buf := [2]byte{hexDigits[v>>4], hexDigits[v&0xF]}
	Puts(string(buf[:]))
}

// PutUint writes v in decimal, with no leading zeros (0 is printed as
// "0"), the same digit-counting approach as the teacher's uitoa.
func PutUint(v uint64) {
	if v == 0 {
		Puts("0")
		return
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	Puts(string(buf[i:]))
}

// Line writes s followed by a CRLF, matching the teacher's console
// convention for bare-metal terminals.
func Line(s string) {
	Puts(s)
	Puts("\r\n")
}
