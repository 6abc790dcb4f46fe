package wasm

// ValType is a Wasm value type byte, as used in the type section and in
// local declarations.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValType byte

const (
	ValTypeI32 ValType = 0x7f
	ValTypeI64 ValType = 0x7e
	ValTypeF32 ValType = 0x7d
	ValTypeF64 ValType = 0x7c
)

// BlockType is the result-type annotation on block/loop instructions. This
// repo only ever uses the empty block type: none of the lowering needs a
// block or loop to leave a value on the stack across its boundary.
type BlockType byte

const (
	BlockTypeEmpty BlockType = 0x40
)

// Section identifiers, in the ascending order they must appear in the
// module.
const (
	sectionIDType     byte = 0x01
	sectionIDFunction byte = 0x03
	sectionIDExport   byte = 0x07
	sectionIDCode     byte = 0x0a
)

// ExternKind classifies an export. Only function exports are ever emitted.
const (
	ExternKindFunc byte = 0x00
)

var magicAndVersion = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
