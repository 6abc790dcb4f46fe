package backend

import (
	"github.com/edkins/fractalwasm/internal/ast"
	"github.com/edkins/fractalwasm/internal/dag"
	"github.com/edkins/fractalwasm/internal/wasm"
)

// derivStruct carries a complex value alongside its first and second
// derivatives with respect to z, each a complex pair. It never appears in
// a plain Structure — the Newton/derivative lowering path is entirely
// separate from the ordinary complex lowering in backend.go.
type derivStruct struct {
	v, dv, ddv [2]dag.Node
}

func cpair(x, y dag.Node) [2]dag.Node { return [2]dag.Node{x, y} }

func cadd(d *dag.Dag, a, b [2]dag.Node) [2]dag.Node {
	x, y := complexAdd(d, a[0], a[1], b[0], b[1])
	return cpair(x, y)
}

func csub(d *dag.Dag, a, b [2]dag.Node) [2]dag.Node {
	x, y := complexSub(d, a[0], a[1], b[0], b[1])
	return cpair(x, y)
}

func cmul(d *dag.Dag, a, b [2]dag.Node) [2]dag.Node {
	x, y := complexMul(d, a[0], a[1], b[0], b[1])
	return cpair(x, y)
}

func cneg(d *dag.Dag, a [2]dag.Node) [2]dag.Node {
	x, y := complexNeg(d, a[0], a[1])
	return cpair(x, y)
}

// lowerDeriv lowers e in dual-number mode: `z` carries dv=1 (it's the
// variable being differentiated against), `c` and `i` carry dv=ddv=0, and
// only `+ - * neg` are defined. `/` and anything else (sqabs, real, conj,
// the comparison operators) are Newton-mode compile errors — the source
// language permits them, the dual-number lowering simply doesn't define
// them.
func lowerDeriv(d *dag.Dag, env map[string]derivStruct, e ast.Expr) derivStruct {
	switch e.Kind {
	case ast.Number:
		v := cpair(d.ConstF64(e.Num), d.Zero())
		zero := cpair(d.Zero(), d.Zero())
		return derivStruct{v: v, dv: zero, ddv: zero}
	case ast.Var:
		s, ok := env[e.Name]
		if !ok {
			fail(UnknownIdentifier, "unknown identifier %q", e.Name)
		}
		return s
	case ast.Call:
		return lowerDerivCall(d, env, e.Name, e.Args)
	default:
		fail(UnknownOperator, "malformed expression node")
		return derivStruct{}
	}
}

func lowerDerivCall(d *dag.Dag, env map[string]derivStruct, op string, args []ast.Expr) derivStruct {
	switch op {
	case "+":
		requireArity(op, args, 2)
		a := lowerDeriv(d, env, args[0])
		b := lowerDeriv(d, env, args[1])
		return derivStruct{v: cadd(d, a.v, b.v), dv: cadd(d, a.dv, b.dv), ddv: cadd(d, a.ddv, b.ddv)}
	case "-":
		requireArity(op, args, 2)
		a := lowerDeriv(d, env, args[0])
		b := lowerDeriv(d, env, args[1])
		return derivStruct{v: csub(d, a.v, b.v), dv: csub(d, a.dv, b.dv), ddv: csub(d, a.ddv, b.ddv)}
	case "*":
		requireArity(op, args, 2)
		a := lowerDeriv(d, env, args[0])
		b := lowerDeriv(d, env, args[1])
		v := cmul(d, a.v, b.v)
		dv := cadd(d, cmul(d, a.v, b.dv), cmul(d, a.dv, b.v))
		// ddv = a.ddv*b.v + (a.dv*b.dv + a.dv*b.dv) + a.v*b.ddv — the
		// doubled cross term is written as a folded sum rather than a
		// literal 2* so it benefits from the same add-zero simplification
		// as everything else (open question, resolved in SPEC_FULL.md §9).
		crossTerm := cmul(d, a.dv, b.dv)
		doubledCross := cadd(d, crossTerm, crossTerm)
		ddv := cadd(d, cadd(d, cmul(d, a.ddv, b.v), doubledCross), cmul(d, a.v, b.ddv))
		return derivStruct{v: v, dv: dv, ddv: ddv}
	case "neg":
		requireArity(op, args, 1)
		a := lowerDeriv(d, env, args[0])
		return derivStruct{v: cneg(d, a.v), dv: cneg(d, a.dv), ddv: cneg(d, a.ddv)}
	case "/":
		fail(NewtonDivision, "division is not supported in Newton-solver mode")
		return derivStruct{}
	default:
		fail(NewtonUnsupportedOp, "operator %q is not supported in Newton-solver mode", op)
		return derivStruct{}
	}
}

// buildNewtonSolver compiles the unexported helper function
// solve(zx,zy,cx,cy) → (zx',zy'): ten Newton iterations z ← z − f(z)/f'(z),
// where f is step interpreted as a function of z with parameter c. It is
// added to mb but never exported — only CompileFractal's Newton-mode
// return_thing calls it.
func buildNewtonSolver(mb *wasm.ModuleBuilder, step ast.Expr) wasm.Func {
	f := mb.StartFunction(f64x4, []wasm.ValType{wasm.ValTypeF64, wasm.ValTypeF64})
	pzx := mb.ParamLocal(0)
	pzy := mb.ParamLocal(1)
	pcx := mb.ParamLocal(2)
	pcy := mb.ParamLocal(3)
	cnt := mb.AddLocal(wasm.ValTypeI32)

	mb.I32Const(0)
	mb.LocalSet(cnt)

	mb.StartBlock(wasm.BlockTypeEmpty)
	mb.StartLoop(wasm.BlockTypeEmpty)

	d := dag.New()
	env := map[string]derivStruct{
		"z": {v: cpair(d.Input(pzx), d.Input(pzy)), dv: cpair(d.One(), d.Zero()), ddv: cpair(d.Zero(), d.Zero())},
		"c": {v: cpair(d.Input(pcx), d.Input(pcy)), dv: cpair(d.Zero(), d.Zero()), ddv: cpair(d.Zero(), d.Zero())},
		"i": {v: cpair(d.Zero(), d.One()), dv: cpair(d.Zero(), d.Zero()), ddv: cpair(d.Zero(), d.Zero())},
	}
	fz := lowerDeriv(d, env, step)
	deltax, deltay := complexDiv(d, fz.v[0], fz.v[1], fz.dv[0], fz.dv[1])
	newzx := d.Sub(d.Input(pzx), deltax)
	newzy := d.Sub(d.Input(pzy), deltay)
	d.Emit(mb, []dag.Effect{{Kind: dag.Push, Node: newzx}, {Kind: dag.Push, Node: newzy}})
	mb.LocalSet(pzy)
	mb.LocalSet(pzx)

	mb.LocalGet(cnt)
	mb.I32Const(1)
	mb.I32Add()
	mb.LocalSet(cnt)

	mb.LocalGet(cnt)
	mb.I32Const(10)
	mb.I32LtU()
	mb.BrIf(0)

	mb.EndLoop()
	mb.EndBlock()

	mb.LocalGet(pzx)
	mb.LocalGet(pzy)
	mb.EndFunction()
	return f
}
