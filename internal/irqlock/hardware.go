package irqlock

import _ "unsafe" // for go:linkname

//go:linkname disableInterruptsAsm disableInterrupts
//go:nosplit
func disableInterruptsAsm() bool

//go:linkname restoreInterruptsAsm restoreInterrupts
//go:nosplit
func restoreInterruptsAsm(wasEnabled bool)

// HardwareController is the production IRQController, a thin shim over
// the actual CLI/STI-equivalent instructions, linked the way the teacher
// links every hardware primitive (src/go/mazarin/exceptions.go's
// enable_irqs/disable_irqs) to a small assembly file this package does
// not itself contain. Nothing in this tree references HardwareController
// except cmd/kernel's boot wiring, so a host `go test` never reaches
// these go:linkname declarations and never needs them resolved.
type HardwareController struct{}

func (HardwareController) Disable() bool            { return disableInterruptsAsm() }
func (HardwareController) Restore(wasEnabled bool) { restoreInterruptsAsm(wasEnabled) }
