package gdt

import _ "unsafe" // for go:linkname

//go:linkname lgdtAsm lgdtAsm
//go:nosplit
func lgdtAsm(base uint64, limit uint16)

//go:linkname reloadDataSegmentsAsm reloadDataSegmentsAsm
//go:nosplit
func reloadDataSegmentsAsm(codeSelector, dataSelector uint16)

//go:linkname ltrAsm ltrAsm
//go:nosplit
func ltrAsm(selector uint16)

// HardwareSegments is the production Segments, backed by assembly
// LGDT/segment-register-reload/LTR primitives the way
// src/go/mazarin/kernel.go links its boot-time register setup.
type HardwareSegments struct{}

func (HardwareSegments) LoadGDT(base uint64, limit uint16) {
	lgdtAsm(base, limit)
}

func (HardwareSegments) ReloadDataSegments(codeSelector, dataSelector uint16) {
	reloadDataSegmentsAsm(codeSelector, dataSelector)
}

func (HardwareSegments) LoadTaskRegister(selector uint16) {
	ltrAsm(selector)
}
