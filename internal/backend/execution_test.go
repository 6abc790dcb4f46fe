//go:build amd64 && cgo

package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edkins/fractalwasm/internal/wasmexec"
)

// TestCompileSimple_SimpleFractal covers the simple shape: z seeded at
// (0.75,0.75), escaping when iter>100 or sqabs(z)>4; the result must be a
// finite, non-negative f64 no greater than 101 (iter>100 first holds once
// iter reaches 101, after 101 completed iterations).
func TestCompileSimple_SimpleFractal(t *testing.T) {
	out, err := CompileSimple(parse(t, "z*z + 0.3"))
	require.NoError(t, err)

	got, err := wasmexec.Run(out)
	require.NoError(t, err)
	require.GreaterOrEqual(t, got, 0.0)
	require.LessOrEqual(t, got, 101.0)

	cross, err := wasmexec.CrossCheck(out)
	require.NoError(t, err)
	require.Equal(t, got, cross)
}

// TestCompileFractal_NewtonSeed_NeverEscapes covers "z*z+c at c=0" with
// the Newton starting guess at (0,0): f'(z)=2z vanishes there, so the
// solver's first step computes 0/0 and z becomes NaN. sqabs(z)>4 is false
// for NaN, so the loop only stops at the maxiter bound.
func TestCompileFractal_NewtonSeed_NeverEscapes(t *testing.T) {
	out, err := CompileFractal(nil, parse(t, "z*z + c"), parse(t, "sqabs(z) > 4"), parse(t, "100"))
	require.NoError(t, err)

	got, err := wasmexec.Run(out, 0, 0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 101.0, got)

	cross, err := wasmexec.CrossCheck(out, 0, 0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, got, cross)
}

// TestCompileFractal_NewtonSeed_Escapes covers "z*z+c at c=1": the seed
// z0 passed to return_thing is only the Newton solver's starting guess
// (Newton prologue runs instead of lowering an initz expression), so any
// value works. (0,0) is avoided here: it is the critical point of z*z+c,
// where f'(z)=2z vanishes on the first Newton step regardless of c, so the
// solver would divide zero by zero instead of converging. Starting from a
// generic point keeps the solver on its normal, non-degenerate path.
func TestCompileFractal_NewtonSeed_Escapes(t *testing.T) {
	out, err := CompileFractal(nil, parse(t, "z*z + c"), parse(t, "sqabs(z) > 4"), parse(t, "100"))
	require.NoError(t, err)

	got, err := wasmexec.Run(out, 1.3, 0.7, 1, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, got, 0.0)
	require.Less(t, got, 101.0)
}

// TestCompileFractal_ExplicitInitz exercises the non-Newton seed path: a
// constant initz lowered with only c and i in scope.
func TestCompileFractal_ExplicitInitz(t *testing.T) {
	initz := parse(t, "c")
	out, err := CompileFractal(&initz, parse(t, "z*z + c"), parse(t, "sqabs(z) > 4"), parse(t, "100"))
	require.NoError(t, err)

	got, err := wasmexec.Run(out, 0, 0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 101.0, got) // z seeded at c=0, a fixed point of z*z+0
}

func TestCompileFractal_NewtonModeDivisionIsCompileError(t *testing.T) {
	_, err := CompileFractal(nil, parse(t, "1 / z"), parse(t, "sqabs(z) > 4"), parse(t, "100"))
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, NewtonDivision, ce.Kind)
}
