package freq

import (
	"sync/atomic"
	_ "unsafe" // for go:linkname
)

// pitTicks is incremented by PITTickHandler, the IRQ entry point the PIT's
// assembly interrupt stub calls on every tick — the same split the
// teacher uses for exceptions (src/go/mazarin/exceptions.go's
// ExceptionHandler is called from assembly and updates Go-side state).
var pitTicks uint64

// PITTickHandler is called on every Programmable Interval Timer
// interrupt. It must stay allocation-free since it runs in interrupt
// context.
//
//go:nosplit
func PITTickHandler() {
	atomic.AddUint64(&pitTicks, 1)
}

//go:linkname outb outb
//go:nosplit
func outb(port uint16, value uint8)

const (
	pitChannel0DataPort = 0x40
	pitCommandPort      = 0x43
	pitBaseFrequencyHz  = 1_193_182
	pitMode3SquareWave  = 0x36 // channel 0, lobyte/hibyte access, mode 3
)

// HardwarePIT is the production Timer, driving the real 8253/8254 PIT the
// way processor.rs's measure_frequency does via the (externally sourced)
// pit module.
type HardwarePIT struct{}

func (HardwarePIT) Init(frequencyHz uint32) {
	divisor := uint16(pitBaseFrequencyHz / frequencyHz)
	outb(pitCommandPort, pitMode3SquareWave)
	outb(pitChannel0DataPort, uint8(divisor))
	outb(pitChannel0DataPort, uint8(divisor>>8))
}

// Deinit leaves the PIT's divisor in place; nothing further is required
// to stop driving it once the measurement's IRQ handler is unregistered
// by the caller.
func (HardwarePIT) Deinit() {}

func (HardwarePIT) Ticks() uint64 {
	return atomic.LoadUint64(&pitTicks)
}
