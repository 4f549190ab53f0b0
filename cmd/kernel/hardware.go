package main

import _ "unsafe" // for go:linkname

// acpiPowerOff and haltLoop are the kernel's own ACPI power-off and
// HLT-spin-forever primitives. They live in package main, not in
// internal/kernel, the same way the teacher confines every go:linkname'd
// hardware primitive — enable_irqs/disable_irqs, uartPuts, and the rest —
// to src/go/mazarin rather than a library package a host `go test` links:
// boot wires them into internal/kernel's hooks once, here, before
// anything else can call kernel.Panic or kernel.Shutdown.

//go:linkname acpiPowerOff acpiPowerOff
//go:nosplit
func acpiPowerOff()

//go:linkname haltLoop haltLoop
//go:nosplit
func haltLoop()
