// Package backend lowers the expression AST (internal/ast) over complex
// numbers into a value-numbered internal/dag schedule, and frames that
// schedule into an exported Wasm function via internal/wasm. It covers
// both the escape-time loop used by every compiled shape and, for the
// Newton-seeded fractal shape, the symbolic differentiation in newton.go.
package backend

import (
	"github.com/edkins/fractalwasm/internal/ast"
	"github.com/edkins/fractalwasm/internal/dag"
	"github.com/edkins/fractalwasm/internal/wasm"
)

// FuncContext pairs the Dag building one function's schedule with the
// ModuleBuilder it will eventually be emitted into, plus the environment
// mapping source identifiers to their lowered Structure.
type FuncContext struct {
	mb  *wasm.ModuleBuilder
	dag *dag.Dag
	env map[string]Structure
}

func newFuncContext(mb *wasm.ModuleBuilder) *FuncContext {
	return &FuncContext{mb: mb, dag: dag.New(), env: map[string]Structure{}}
}

func requireArity(op string, args []ast.Expr, n int) {
	if len(args) != n {
		fail(ArityMismatch, "operator %q expects %d argument(s), got %d", op, n, len(args))
	}
}

// lowerComplex lowers e into a Structure, dispatching on its kind: numeric
// literals become real constants, variables look themselves up in the
// environment, and calls dispatch by operator name.
func (fc *FuncContext) lowerComplex(e ast.Expr) Structure {
	switch e.Kind {
	case ast.Number:
		return complexStructure(fc.dag.ConstF64(e.Num), fc.dag.Zero())
	case ast.Var:
		s, ok := fc.env[e.Name]
		if !ok {
			fail(UnknownIdentifier, "unknown identifier %q", e.Name)
		}
		return s
	case ast.Call:
		return fc.lowerCall(e.Name, e.Args)
	default:
		fail(UnknownOperator, "malformed expression node")
		return Structure{}
	}
}

func (fc *FuncContext) lowerCall(op string, args []ast.Expr) Structure {
	d := fc.dag
	switch op {
	case "+", "-", "*", "/":
		requireArity(op, args, 2)
		ax, ay := fc.lowerComplex(args[0]).asComplex()
		bx, by := fc.lowerComplex(args[1]).asComplex()
		var x, y dag.Node
		switch op {
		case "+":
			x, y = complexAdd(d, ax, ay, bx, by)
		case "-":
			x, y = complexSub(d, ax, ay, bx, by)
		case "*":
			x, y = complexMul(d, ax, ay, bx, by)
		case "/":
			x, y = complexDiv(d, ax, ay, bx, by)
		}
		return complexStructure(x, y)

	case "neg", "sqabs", "real", "conj":
		requireArity(op, args, 1)
		x, y := fc.lowerComplex(args[0]).asComplex()
		var rx, ry dag.Node
		switch op {
		case "neg":
			rx, ry = complexNeg(d, x, y)
		case "sqabs":
			rx, ry = complexSqabs(d, x, y)
		case "real":
			rx, ry = complexReal(d, x, y)
		case "conj":
			rx, ry = complexConj(d, x, y)
		}
		return complexStructure(rx, ry)

	case "<", ">", "<=", ">=":
		requireArity(op, args, 2)
		ax := fc.lowerComplex(args[0]).assertReal()
		bx := fc.lowerComplex(args[1]).assertReal()
		var n dag.Node
		switch op {
		case "<":
			n = d.Lt(ax, bx)
		case ">":
			n = d.Gt(ax, bx)
		case "<=":
			n = d.Le(ax, bx)
		case ">=":
			n = d.Ge(ax, bx)
		}
		return boolStructure(n)

	default:
		fail(UnknownOperator, "unknown operator %q", op)
		return Structure{}
	}
}

// emitEscapeLoop frames the shared escape-time loop body used by both the
// simple and fractal shapes: check escape1 then escape2, breaking out of
// the enclosing block on either; otherwise store
// the next z into (zxLocal,zyLocal), increment iterLocal, and continue.
// escape1, escape2 and newzx/newzy must already be built against fc.dag
// before calling this — it only decides their schedule and order.
func emitEscapeLoop(fc *FuncContext, zxLocal, zyLocal, iterLocal wasm.LocalId, escape1, escape2, newzx, newzy dag.Node) {
	fc.mb.StartBlock(wasm.BlockTypeEmpty)
	fc.mb.StartLoop(wasm.BlockTypeEmpty)

	iterNext := fc.dag.Add(fc.dag.Input(iterLocal), fc.dag.One())
	effects := []dag.Effect{
		{Kind: dag.BrIf, Node: escape1, Label: 1},
		{Kind: dag.BrIf, Node: escape2, Label: 1},
		{Kind: dag.Push, Node: newzx},
		{Kind: dag.Push, Node: newzy},
		{Kind: dag.Push, Node: iterNext},
	}
	fc.dag.Emit(fc.mb, effects)
	fc.mb.LocalSet(iterLocal)
	fc.mb.LocalSet(zyLocal)
	fc.mb.LocalSet(zxLocal)
	fc.mb.Br(0)

	fc.mb.EndLoop()
	fc.mb.EndBlock()
	fc.mb.LocalGet(iterLocal)
}

// CompileSimple lowers a single expression into the simple shape:
// return_thing : () → f64, z seeded at (0.75, 0.75), escaping when
// iter>100 or sqabs(z)>4.
func CompileSimple(expr ast.Expr) ([]byte, error) {
	return guard(func() []byte {
		mb := wasm.NewModuleBuilder()
		f := mb.StartFunction(nil, []wasm.ValType{wasm.ValTypeF64})

		l0 := mb.AddLocal(wasm.ValTypeF64) // zx
		l1 := mb.AddLocal(wasm.ValTypeF64) // zy
		iterLocal := mb.AddLocal(wasm.ValTypeF64)

		mb.F64Const(0.75)
		mb.LocalSet(l0)
		mb.F64Const(0.75)
		mb.LocalSet(l1)
		mb.F64Const(0.0)
		mb.LocalSet(iterLocal)

		fc := newFuncContext(mb)
		fc.env["z"] = complexStructure(fc.dag.Input(l0), fc.dag.Input(l1))
		fc.env["i"] = complexStructure(fc.dag.Zero(), fc.dag.One())
		fc.env["iter"] = complexStructure(fc.dag.Input(iterLocal), fc.dag.Zero())

		zx, zy := fc.env["z"].asComplex()
		sqx, _ := complexSqabs(fc.dag, zx, zy)
		escape1 := fc.dag.Gt(fc.dag.Input(iterLocal), fc.dag.ConstF64(100))
		escape2 := fc.dag.Gt(sqx, fc.dag.ConstF64(4))

		newz := fc.lowerComplex(expr)
		newzx, newzy := newz.asComplex()

		emitEscapeLoop(fc, l0, l1, iterLocal, escape1, escape2, newzx, newzy)

		mb.EndFunction()
		mb.ExportFunction(f, "return_thing")
		return mb.IntoBytes()
	})
}

var f64x4 = []wasm.ValType{wasm.ValTypeF64, wasm.ValTypeF64, wasm.ValTypeF64, wasm.ValTypeF64}

// CompileFractal lowers the four-expression fractal shape. initz is nil
// to select a Newton-solved seed instead of an explicit expression (in
// which case step additionally must avoid "/" and the unsupported unary
// ops).
func CompileFractal(initz *ast.Expr, step, escape2Expr, maxiterExpr ast.Expr) ([]byte, error) {
	return guard(func() []byte {
		mb := wasm.NewModuleBuilder()

		var solveFunc wasm.Func
		newtonMode := initz == nil
		if newtonMode {
			solveFunc = buildNewtonSolver(mb, step)
		}

		f := mb.StartFunction(f64x4, []wasm.ValType{wasm.ValTypeF64})
		pInitZx := mb.ParamLocal(0)
		pInitZy := mb.ParamLocal(1)
		pCx := mb.ParamLocal(2)
		pCy := mb.ParamLocal(3)

		l0 := mb.AddLocal(wasm.ValTypeF64) // zx
		l1 := mb.AddLocal(wasm.ValTypeF64) // zy
		iterLocal := mb.AddLocal(wasm.ValTypeF64)

		if newtonMode {
			mb.LocalGet(pInitZx)
			mb.LocalGet(pInitZy)
			mb.LocalGet(pCx)
			mb.LocalGet(pCy)
			mb.Call(solveFunc)
			mb.LocalSet(l1)
			mb.LocalSet(l0)
		} else {
			seedFc := newFuncContext(mb)
			seedFc.env["c"] = complexStructure(seedFc.dag.Input(pCx), seedFc.dag.Input(pCy))
			seedFc.env["i"] = complexStructure(seedFc.dag.Zero(), seedFc.dag.One())
			seed := seedFc.lowerComplex(*initz)
			sx, sy := seed.asComplex()
			seedFc.dag.Emit(mb, []dag.Effect{{Kind: dag.Push, Node: sx}, {Kind: dag.Push, Node: sy}})
			mb.LocalSet(l1)
			mb.LocalSet(l0)
		}

		mb.F64Const(0.0)
		mb.LocalSet(iterLocal)

		fc := newFuncContext(mb)
		fc.env["z"] = complexStructure(fc.dag.Input(l0), fc.dag.Input(l1))
		fc.env["c"] = complexStructure(fc.dag.Input(pCx), fc.dag.Input(pCy))
		fc.env["i"] = complexStructure(fc.dag.Zero(), fc.dag.One())
		fc.env["iter"] = complexStructure(fc.dag.Input(iterLocal), fc.dag.Zero())

		maxiterReal := fc.lowerComplex(maxiterExpr).assertReal()
		escape1 := fc.dag.Gt(fc.dag.Input(iterLocal), maxiterReal)
		escape2 := fc.lowerComplex(escape2Expr).asBool()

		newz := fc.lowerComplex(step)
		newzx, newzy := newz.asComplex()

		emitEscapeLoop(fc, l0, l1, iterLocal, escape1, escape2, newzx, newzy)

		mb.EndFunction()
		mb.ExportFunction(f, "return_thing")
		return mb.IntoBytes()
	})
}
