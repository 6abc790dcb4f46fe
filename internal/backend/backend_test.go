package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edkins/fractalwasm/internal/ast"
	"github.com/edkins/fractalwasm/internal/dag"
	"github.com/edkins/fractalwasm/internal/wasm"
)

func parse(t *testing.T, text string) ast.Expr {
	t.Helper()
	e, err := ast.Parse(text)
	require.NoError(t, err)
	return e
}

// TestLowerComplex_ConstantArithmetic exercises lowerComplex's constant
// folding directly on bare arithmetic expressions, without going through
// a compiled escape loop.
func TestLowerComplex_ConstantArithmetic(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"sqabs(1 + 2)", 9},
	}
	for _, c := range cases {
		fc := newFuncContext(wasm.NewModuleBuilder())
		s := fc.lowerComplex(parse(t, c.text))
		x, y := s.asComplex()
		require.Equal(t, fc.dag.ConstF64(c.want), x, "expr %q", c.text)
		require.True(t, y.IsZeroConst(), "expr %q imaginary part", c.text)
	}
}

func TestLowerComplex_UnaryOps(t *testing.T) {
	fc := newFuncContext(wasm.NewModuleBuilder())
	fc.env["z"] = complexStructure(fc.dag.ConstF64(3), fc.dag.ConstF64(4))

	real := fc.lowerComplex(ast.NewCall("real", ast.NewVar("z")))
	x, y := real.asComplex()
	require.Equal(t, fc.dag.ConstF64(3), x)
	require.True(t, y.IsZeroConst())

	conj := fc.lowerComplex(ast.NewCall("conj", ast.NewVar("z")))
	x, y = conj.asComplex()
	require.Equal(t, fc.dag.ConstF64(3), x)
	require.Equal(t, fc.dag.ConstF64(-4), y)

	sq := fc.lowerComplex(ast.NewCall("sqabs", ast.NewVar("z")))
	x, y = sq.asComplex()
	require.Equal(t, fc.dag.ConstF64(25), x) // 3^2+4^2
	require.True(t, y.IsZeroConst())
}

func mustPanicCompileError(t *testing.T, kind CompileErrorKind, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		ce, ok := r.(*CompileError)
		require.True(t, ok, "expected *CompileError, got %T: %v", r, r)
		require.Equal(t, kind, ce.Kind)
	}()
	f()
}

func TestLowerComplex_UnknownIdentifier(t *testing.T) {
	fc := newFuncContext(wasm.NewModuleBuilder())
	mustPanicCompileError(t, UnknownIdentifier, func() {
		fc.lowerComplex(ast.NewVar("nonsense"))
	})
}

func TestLowerComplex_UnknownOperator(t *testing.T) {
	fc := newFuncContext(wasm.NewModuleBuilder())
	mustPanicCompileError(t, UnknownOperator, func() {
		fc.lowerComplex(ast.NewCall("frobnicate", ast.NewNumber(1)))
	})
}

func TestLowerComplex_ArityMismatch(t *testing.T) {
	fc := newFuncContext(wasm.NewModuleBuilder())
	mustPanicCompileError(t, ArityMismatch, func() {
		fc.lowerComplex(ast.NewCall("+", ast.NewNumber(1)))
	})
}

func TestLowerComplex_WrongStructureKind(t *testing.T) {
	fc := newFuncContext(wasm.NewModuleBuilder())
	// "iter > 100" lowers to Bool; using it as an operand of "+" must fail.
	fc.env["iter"] = complexStructure(fc.dag.ConstF64(0), fc.dag.Zero())
	mustPanicCompileError(t, WrongStructureKind, func() {
		fc.lowerComplex(ast.NewCall("+", ast.NewCall(">", ast.NewVar("iter"), ast.NewNumber(100)), ast.NewNumber(1)))
	})
}

func TestLowerComplex_NonRealReduction(t *testing.T) {
	fc := newFuncContext(wasm.NewModuleBuilder())
	// z has a non-constant-zero imaginary part; comparing it is an error.
	l := wasm.NewModuleBuilder()
	l.StartFunction(nil, nil)
	local := l.AddLocal(wasm.ValTypeF64)
	fc.env["z"] = complexStructure(fc.dag.ConstF64(1), fc.dag.Input(local))
	mustPanicCompileError(t, NonRealReduction, func() {
		fc.lowerComplex(ast.NewCall("<", ast.NewVar("z"), ast.NewNumber(1)))
	})
}

func TestLowerDerivCall_DivisionUnsupported(t *testing.T) {
	mustPanicCompileError(t, NewtonDivision, func() {
		d := dag.New()
		env := map[string]derivStruct{"z": {v: cpair(d.Input(wasm.LocalId{}), d.Zero())}}
		lowerDerivCall(d, env, "/", []ast.Expr{ast.NewVar("z"), ast.NewNumber(1)})
	})
}

func TestLowerDerivCall_UnsupportedOp(t *testing.T) {
	mustPanicCompileError(t, NewtonUnsupportedOp, func() {
		d := dag.New()
		lowerDerivCall(d, map[string]derivStruct{}, "sqabs", []ast.Expr{ast.NewNumber(1)})
	})
}
