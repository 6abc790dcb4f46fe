// Package dag implements a value-numbered expression graph: scalar f64/i32
// operations over constants and function locals, algebraic simplification
// at construction time, common subexpression elimination via a
// computation→node memo table, and scheduling of a set of output effects
// into a wasm.ModuleBuilder.
package dag

import (
	"math"

	"github.com/edkins/fractalwasm/internal/wasm"
)

// NodeKind tags the three DagNode variants.
type NodeKind int

const (
	KindConst NodeKind = iota
	KindInput
	KindIntern
)

// Node is a small, copyable handle into a Dag: a constant carried by its
// bit pattern, a read of a function local, or an index into the Dag's
// computation table. Equality (==) on Node is well-defined and total —
// even for NaN constants, since they are compared by bits, not value.
type Node struct {
	kind  NodeKind
	bits  uint64      // valid when kind == KindConst
	local wasm.LocalId // valid when kind == KindInput
	index int         // valid when kind == KindIntern
}

func (n Node) isConstZero() bool {
	return n.kind == KindConst && math.Float64frombits(n.bits) == 0.0
}

func (n Node) isConstOne() bool {
	return n.kind == KindConst && math.Float64frombits(n.bits) == 1.0
}

// IsZeroConst reports whether n is the specific constant-zero node (±0.0).
// Callers use this to check that a value folded down to a known-real
// constant before reducing a richer structure to a plain scalar.
func (n Node) IsZeroConst() bool { return n.isConstZero() }

// calcOp tags the operator family of an interned computation.
type calcOp int

const (
	opNeg calcOp = iota
	opAdd
	opSub
	opMul
	opDiv
	opLt
	opGt
	opLe
	opGe
)

// isComparison reports whether op produces an i32 boolean rather than an f64.
func (op calcOp) isComparison() bool {
	return op >= opLt
}

type calc struct {
	op   calcOp
	x, y Node // y is zero Node{} for the unary opNeg
}

// Dag owns the ordered computation table and the CSE memo map. It is
// consumed by Emit; it lives for the duration of one function body.
type Dag struct {
	nodes []calc
	memo  map[calc]int
}

// New returns an empty Dag.
func New() *Dag {
	return &Dag{memo: map[calc]int{}}
}

// ConstF64 interns x by its bit pattern.
func (d *Dag) ConstF64(x float64) Node {
	return Node{kind: KindConst, bits: math.Float64bits(x)}
}

// Zero returns the constant 0.0.
func (d *Dag) Zero() Node { return d.ConstF64(0.0) }

// One returns the constant 1.0.
func (d *Dag) One() Node { return d.ConstF64(1.0) }

// Input returns a node that reads local directly, with no computation
// table entry.
func (d *Dag) Input(local wasm.LocalId) Node {
	return Node{kind: KindInput, local: local}
}

func constF64(n Node) (float64, bool) {
	if n.kind != KindConst {
		return 0, false
	}
	return math.Float64frombits(n.bits), true
}

func (d *Dag) foldUnary(x Node, f func(float64) float64) (Node, bool) {
	if a, ok := constF64(x); ok {
		return d.ConstF64(f(a)), true
	}
	return Node{}, false
}

func (d *Dag) foldBinary(x, y Node, f func(a, b float64) float64) (Node, bool) {
	a, aok := constF64(x)
	b, bok := constF64(y)
	if aok && bok {
		return d.ConstF64(f(a, b)), true
	}
	return Node{}, false
}

// Neg returns -x, folding constants and simplifying neg(const) immediately.
func (d *Dag) Neg(x Node) Node {
	if n, ok := d.foldUnary(x, func(a float64) float64 { return -a }); ok {
		return n
	}
	return d.calc(calc{op: opNeg, x: x})
}

// Add returns x+y, applying add(0,y)=y / add(x,0)=x before interning.
func (d *Dag) Add(x, y Node) Node {
	if n, ok := d.foldBinary(x, y, func(a, b float64) float64 { return a + b }); ok {
		return n
	}
	if x.isConstZero() {
		return y
	}
	if y.isConstZero() {
		return x
	}
	return d.calc(calc{op: opAdd, x: x, y: y})
}

// Sub returns x-y, applying sub(0,y)=neg(y) / sub(x,0)=x before interning.
func (d *Dag) Sub(x, y Node) Node {
	if n, ok := d.foldBinary(x, y, func(a, b float64) float64 { return a - b }); ok {
		return n
	}
	if x.isConstZero() {
		return d.Neg(y)
	}
	if y.isConstZero() {
		return x
	}
	return d.calc(calc{op: opSub, x: x, y: y})
}

// Mul returns x*y, applying the zero/one identities before interning.
func (d *Dag) Mul(x, y Node) Node {
	if n, ok := d.foldBinary(x, y, func(a, b float64) float64 { return a * b }); ok {
		return n
	}
	if x.isConstZero() || y.isConstZero() {
		return d.Zero()
	}
	if x.isConstOne() {
		return y
	}
	if y.isConstOne() {
		return x
	}
	return d.calc(calc{op: opMul, x: x, y: y})
}

// Div returns x/y, applying div(0,_)=0 / div(x,1)=x before interning.
// div(0,y) returns the constant 0 even when y is a non-constant node that
// may be zero at runtime. When both sides are constants, ordinary constant
// folding applies first, matching IEEE-754 (including producing Inf/NaN).
func (d *Dag) Div(x, y Node) Node {
	if n, ok := d.foldBinary(x, y, func(a, b float64) float64 { return a / b }); ok {
		return n
	}
	if x.isConstZero() {
		return d.Zero()
	}
	if y.isConstOne() {
		return x
	}
	return d.calc(calc{op: opDiv, x: x, y: y})
}

// Lt, Gt, Le, Ge produce an i32 boolean node. Comparisons are never folded
// or simplified: they must observe Wasm's IEEE-754 comparison semantics
// exactly, including NaN, at runtime.
func (d *Dag) Lt(x, y Node) Node { return d.calc(calc{op: opLt, x: x, y: y}) }
func (d *Dag) Gt(x, y Node) Node { return d.calc(calc{op: opGt, x: x, y: y}) }
func (d *Dag) Le(x, y Node) Node { return d.calc(calc{op: opLe, x: x, y: y}) }
func (d *Dag) Ge(x, y Node) Node { return d.calc(calc{op: opGe, x: x, y: y}) }

func (d *Dag) calc(c calc) Node {
	if i, ok := d.memo[c]; ok {
		return Node{kind: KindIntern, index: i}
	}
	i := len(d.nodes)
	d.nodes = append(d.nodes, c)
	d.memo[c] = i
	return Node{kind: KindIntern, index: i}
}

func (c calc) dependencies() []Node {
	if c.op == opNeg {
		return []Node{c.x}
	}
	return []Node{c.x, c.y}
}

func (d *Dag) dependencies(n Node) []Node {
	if n.kind != KindIntern {
		return nil
	}
	return d.nodes[n.index].dependencies()
}

// EffectKind tags what to do with a scheduled node's value once it is on
// the Wasm operand stack.
type EffectKind int

const (
	// Push leaves the value on the stack.
	Push EffectKind = iota
	// BrIf consumes the (i32) value as a conditional branch to Label.
	BrIf
)

// Effect is one output slot of a Dag: a root node plus what the schedule
// should do with its value.
type Effect struct {
	Kind  EffectKind
	Node  Node
	Label uint32 // valid when Kind == BrIf
}

func (e Effect) apply(b *wasm.ModuleBuilder) {
	switch e.Kind {
	case BrIf:
		b.BrIf(e.Label)
	case Push:
		// value is already on the stack; nothing further to emit.
	}
}

func (d *Dag) countUsage(usage map[Node]int, n Node) {
	if usage[n] > 0 {
		usage[n]++
		return
	}
	usage[n] = 1
	for _, dep := range d.dependencies(n) {
		d.countUsage(usage, dep)
	}
}

func (d *Dag) usage(effects []Effect) map[Node]int {
	usage := map[Node]int{}
	for _, e := range effects {
		d.countUsage(usage, e.Node)
	}
	return usage
}

// Emit consumes the Dag and schedules effects, in order, into b's
// currently-open function: each effect's root is emitted depth-first
// (recursing on operands before the node's own opcode), CSE'd nodes
// referenced more than once are spilled to a fresh local via local.tee the
// first time they're computed and read back via local.get thereafter, and
// each effect's Kind is applied once its value is on the stack.
func (d *Dag) Emit(b *wasm.ModuleBuilder, effects []Effect) {
	usage := d.usage(effects)
	placement := map[Node]wasm.LocalId{}
	for _, e := range effects {
		d.emitRecursive(b, placement, usage, e.Node)
		e.apply(b)
	}
}

func (d *Dag) emitRecursive(b *wasm.ModuleBuilder, placement map[Node]wasm.LocalId, usage map[Node]int, n Node) {
	if local, ok := placement[n]; ok {
		b.LocalGet(local)
		return
	}
	switch n.kind {
	case KindConst:
		b.F64Const(math.Float64frombits(n.bits))
		return
	case KindInput:
		b.LocalGet(n.local)
		return
	}

	c := d.nodes[n.index]
	d.emitRecursive(b, placement, usage, c.x)
	if c.op != opNeg {
		d.emitRecursive(b, placement, usage, c.y)
	}
	switch c.op {
	case opNeg:
		b.F64Neg()
	case opAdd:
		b.F64Add()
	case opSub:
		b.F64Sub()
	case opMul:
		b.F64Mul()
	case opDiv:
		b.F64Div()
	case opLt:
		b.F64Lt()
	case opGt:
		b.F64Gt()
	case opLe:
		b.F64Le()
	case opGe:
		b.F64Ge()
	}

	if usage[n] > 1 {
		ty := wasm.ValTypeF64
		if c.op.isComparison() {
			ty = wasm.ValTypeI32
		}
		local := b.AddLocal(ty)
		b.LocalTee(local)
		placement[n] = local
	}
}
