package gdt

// SegmentDescriptor is a flat 64-bit code or data segment descriptor,
// packed low-bit-first by internal/bitfield in the field order below
// (16+16+8+1+1+1+1+1+2+1+4+1+1+1+1+8 = 64 bits).
type SegmentDescriptor struct {
	LimitLow            uint16 `bitfield:"16"`
	BaseLow             uint16 `bitfield:"16"`
	BaseMid             uint8  `bitfield:"8"`
	Accessed            bool   `bitfield:"1"`
	ReadWrite           bool   `bitfield:"1"`
	DirectionConforming bool   `bitfield:"1"`
	Executable          bool   `bitfield:"1"`
	DescriptorType      bool   `bitfield:"1"` // 1 = code/data, 0 = system
	DPL                 uint8  `bitfield:"2"`
	Present             bool   `bitfield:"1"`
	LimitHigh           uint8  `bitfield:"4"`
	AVL                 bool   `bitfield:"1"`
	LongMode            bool   `bitfield:"1"`
	Size                bool   `bitfield:"1"`
	Granularity         bool   `bitfield:"1"`
	BaseHigh            uint8  `bitfield:"8"`
}

// tssDescriptorLow is the first 64 bits of a 128-bit TSS descriptor
// (16+16+8+4+1+2+1+4+1+2+1+8 = 64 bits). The remaining 32 bits of base
// address and a reserved dword live in tssDescriptorHigh, split in two
// because internal/bitfield.Pack caps out at 64 bits per call.
type tssDescriptorLow struct {
	LimitLow    uint16 `bitfield:"16"`
	BaseLow     uint16 `bitfield:"16"`
	BaseMid     uint8  `bitfield:"8"`
	Type        uint8  `bitfield:"4"` // 0x9 = available 64-bit TSS
	Zero0       bool   `bitfield:"1"`
	DPL         uint8  `bitfield:"2"`
	Present     bool   `bitfield:"1"`
	LimitHigh   uint8  `bitfield:"4"`
	AVL         bool   `bitfield:"1"`
	Zero1       uint8  `bitfield:"2"`
	Granularity bool   `bitfield:"1"`
	BaseHigh    uint8  `bitfield:"8"`
}

// tssDescriptorHigh holds the upper 32 bits of the TSS base address, the
// second GDT slot a TSS descriptor consumes.
type tssDescriptorHigh struct {
	BaseUpper uint32 `bitfield:"32"`
	Reserved  uint32 `bitfield:"32"`
}
