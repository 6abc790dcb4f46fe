// Package wasm assembles a single Wasm binary module from straight-line
// bytecode handed to it one function at a time. It knows nothing about the
// source language being compiled — it is the lowest layer, used by
// internal/backend to turn a schedule of operations into bytes.
package wasm

import (
	"encoding/binary"
	"math"

	"github.com/edkins/fractalwasm/internal/leb128"
)

// Func is an opaque handle to a function the builder has started. It is a
// value type; it borrows nothing from the builder.
type Func struct {
	index uint32
}

// LocalId addresses a function local: parameters first (0..paramCount),
// then declared locals, in declaration order.
type LocalId struct {
	index uint32
}

type functionType struct {
	params  []ValType
	results []ValType
}

func (t functionType) equal(params, results []ValType) bool {
	if len(t.params) != len(params) || len(t.results) != len(results) {
		return false
	}
	for i, p := range params {
		if t.params[i] != p {
			return false
		}
	}
	for i, r := range results {
		if t.results[i] != r {
			return false
		}
	}
	return true
}

type export struct {
	name string
	kind byte
	fn   uint32
}

// ModuleBuilder is a stateful Wasm module emitter. It alternates between
// Idle (no function open) and InFunction (accumulating one function's
// locals and code); most methods only make sense in one of those states
// and panic in the other.
type ModuleBuilder struct {
	types   []functionType
	funcs   []uint32 // type index, per function
	exports []export
	code    []byte // finished function bodies, in order

	inFunc          bool
	curType         uint32
	curParamCount   uint32
	curLocalDecls   []byte
	curLocalCount   uint32
	curCode         []byte
}

// NewModuleBuilder returns an empty builder, Idle.
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{}
}

func (b *ModuleBuilder) typeIndex(params, results []ValType) uint32 {
	for i, t := range b.types {
		if t.equal(params, results) {
			return uint32(i)
		}
	}
	b.types = append(b.types, functionType{params: append([]ValType(nil), params...), results: append([]ValType(nil), results...)})
	return uint32(len(b.types) - 1)
}

// StartFunction interns the (params, results) type, allocates the next
// function index, and transitions Idle -> InFunction. Panics if already
// InFunction.
func (b *ModuleBuilder) StartFunction(params, results []ValType) Func {
	if b.inFunc {
		panic("wasm: StartFunction called while already InFunction")
	}
	f := Func{index: uint32(len(b.funcs))}
	b.curType = b.typeIndex(params, results)
	b.curParamCount = uint32(len(params))
	b.curLocalDecls = nil
	b.curLocalCount = 0
	b.curCode = nil
	b.inFunc = true
	return f
}

func (b *ModuleBuilder) requireInFunc(op string) {
	if !b.inFunc {
		panic("wasm: " + op + " called outside of a function")
	}
}

// ParamLocal returns the LocalId for parameter i of the function currently
// being built.
func (b *ModuleBuilder) ParamLocal(i uint32) LocalId {
	b.requireInFunc("ParamLocal")
	if i >= b.curParamCount {
		panic("wasm: ParamLocal index out of range")
	}
	return LocalId{index: i}
}

// AddLocal declares a fresh local of the given type in the function
// currently being built and returns its LocalId.
func (b *ModuleBuilder) AddLocal(ty ValType) LocalId {
	b.requireInFunc("AddLocal")
	b.curLocalDecls = leb128.AppendUint32(b.curLocalDecls, 1) // run length 1
	b.curLocalDecls = append(b.curLocalDecls, byte(ty))
	b.curLocalCount++
	return LocalId{index: b.curParamCount + b.curLocalCount - 1}
}

// EndFunction appends the implicit `end`, flushes the accumulated locals and
// code into the module's code section, and transitions InFunction -> Idle.
func (b *ModuleBuilder) EndFunction() {
	b.requireInFunc("EndFunction")
	b.curCode = append(b.curCode, 0x0b) // end

	bodyLen := leb128.Uint32Len(b.curLocalCount) + len(b.curLocalDecls) + len(b.curCode)
	b.code = leb128.AppendUint32(b.code, uint32(bodyLen))
	b.code = leb128.AppendUint32(b.code, b.curLocalCount)
	b.code = append(b.code, b.curLocalDecls...)
	b.code = append(b.code, b.curCode...)

	b.funcs = append(b.funcs, b.curType)
	b.curCode = nil
	b.curLocalDecls = nil
	b.inFunc = false
}

// ExportFunction records f as exported under name, with extern kind func
// (0x00). Valid in either state; exports are finalized at IntoBytes time.
func (b *ModuleBuilder) ExportFunction(f Func, name string) {
	b.exports = append(b.exports, export{name: name, kind: ExternKindFunc, fn: f.index})
}

// IntoBytes consumes the builder and returns the finished .wasm module.
// Panics if a function is still open.
func (b *ModuleBuilder) IntoBytes() []byte {
	if b.inFunc {
		panic("wasm: IntoBytes called while still InFunction")
	}

	var typeSection []byte
	typeSection = leb128.AppendUint32(typeSection, uint32(len(b.types)))
	for _, t := range b.types {
		typeSection = append(typeSection, 0x60)
		typeSection = leb128.AppendUint32(typeSection, uint32(len(t.params)))
		for _, p := range t.params {
			typeSection = append(typeSection, byte(p))
		}
		typeSection = leb128.AppendUint32(typeSection, uint32(len(t.results)))
		for _, r := range t.results {
			typeSection = append(typeSection, byte(r))
		}
	}

	var funcSection []byte
	funcSection = leb128.AppendUint32(funcSection, uint32(len(b.funcs)))
	for _, t := range b.funcs {
		funcSection = leb128.AppendUint32(funcSection, t)
	}

	var exportSection []byte
	exportSection = leb128.AppendUint32(exportSection, uint32(len(b.exports)))
	for _, e := range b.exports {
		exportSection = leb128.AppendUint32(exportSection, uint32(len(e.name)))
		exportSection = append(exportSection, e.name...)
		exportSection = append(exportSection, e.kind)
		exportSection = leb128.AppendUint32(exportSection, e.fn)
	}

	var codeSection []byte
	codeSection = leb128.AppendUint32(codeSection, uint32(len(b.funcs)))
	codeSection = append(codeSection, b.code...)

	result := append([]byte(nil), magicAndVersion...)
	result = append(result, sectionIDType)
	result = leb128.AppendUint32(result, uint32(len(typeSection)))
	result = append(result, typeSection...)
	result = append(result, sectionIDFunction)
	result = leb128.AppendUint32(result, uint32(len(funcSection)))
	result = append(result, funcSection...)
	result = append(result, sectionIDExport)
	result = leb128.AppendUint32(result, uint32(len(exportSection)))
	result = append(result, exportSection...)
	result = append(result, sectionIDCode)
	result = leb128.AppendUint32(result, uint32(len(codeSection)))
	result = append(result, codeSection...)
	return result
}

// --- instruction emitters ---
// Each panics if called outside of a function; none otherwise validates
// stack shape, which the backend is responsible for getting right.

func (b *ModuleBuilder) emit(opcode byte) {
	b.requireInFunc("instruction")
	b.curCode = append(b.curCode, opcode)
}

func (b *ModuleBuilder) F64Const(x float64) {
	b.emit(0x44)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
	b.curCode = append(b.curCode, buf[:]...)
}

func (b *ModuleBuilder) F64Neg() { b.emit(0x9a) }
func (b *ModuleBuilder) F64Add() { b.emit(0xa0) }
func (b *ModuleBuilder) F64Sub() { b.emit(0xa1) }
func (b *ModuleBuilder) F64Mul() { b.emit(0xa2) }
func (b *ModuleBuilder) F64Div() { b.emit(0xa3) }
func (b *ModuleBuilder) F64Lt()  { b.emit(0x63) }
func (b *ModuleBuilder) F64Gt()  { b.emit(0x64) }
func (b *ModuleBuilder) F64Le()  { b.emit(0x65) }
func (b *ModuleBuilder) F64Ge()  { b.emit(0x66) }

func (b *ModuleBuilder) I32Const(x int32) {
	b.emit(0x41)
	b.curCode = leb128.AppendInt32(b.curCode, x)
}

func (b *ModuleBuilder) I32Add() { b.emit(0x6a) }
func (b *ModuleBuilder) I32LtU() { b.emit(0x49) }

func (b *ModuleBuilder) LocalGet(l LocalId) {
	b.emit(0x20)
	b.curCode = leb128.AppendUint32(b.curCode, l.index)
}

func (b *ModuleBuilder) LocalSet(l LocalId) {
	b.emit(0x21)
	b.curCode = leb128.AppendUint32(b.curCode, l.index)
}

func (b *ModuleBuilder) LocalTee(l LocalId) {
	b.emit(0x22)
	b.curCode = leb128.AppendUint32(b.curCode, l.index)
}

func (b *ModuleBuilder) Br(label uint32) {
	b.emit(0x0c)
	b.curCode = leb128.AppendUint32(b.curCode, label)
}

func (b *ModuleBuilder) BrIf(label uint32) {
	b.emit(0x0d)
	b.curCode = leb128.AppendUint32(b.curCode, label)
}

func (b *ModuleBuilder) Call(f Func) {
	b.emit(0x10)
	b.curCode = leb128.AppendUint32(b.curCode, f.index)
}

func (b *ModuleBuilder) StartBlock(bt BlockType) {
	b.emit(0x02)
	b.curCode = append(b.curCode, byte(bt))
}

func (b *ModuleBuilder) EndBlock() { b.emit(0x0b) }

func (b *ModuleBuilder) StartLoop(bt BlockType) {
	b.emit(0x03)
	b.curCode = append(b.curCode, byte(bt))
}

func (b *ModuleBuilder) EndLoop() { b.emit(0x0b) }
