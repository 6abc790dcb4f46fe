//go:build amd64 && cgo

package fractalwasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edkins/fractalwasm/internal/backend"
	"github.com/edkins/fractalwasm/internal/wasmexec"
)

// TestCompile_SimpleShape covers the one-string simple fractal shape end
// to end: source through Compile, bytes through a real Wasm engine.
func TestCompile_SimpleShape(t *testing.T) {
	out, err := Compile("z*z + 0.3")
	require.NoError(t, err)

	got, err := wasmexec.Run(out)
	require.NoError(t, err)
	require.GreaterOrEqual(t, got, 0.0)
	require.LessOrEqual(t, got, 101.0)
}

// TestCompile_FractalShape_NewtonNeverEscapes covers the four-string
// fractal shape with an empty initz (Newton-solved seed), starting guess
// (0,0) and c=0: z*z+c's derivative vanishes at the origin, so the
// solver's first step computes 0/0 and z becomes NaN; sqabs(z)>4 never
// holds for NaN, so the loop runs to the maxiter bound.
func TestCompile_FractalShape_NewtonNeverEscapes(t *testing.T) {
	out, err := Compile("", "z*z + c", "sqabs(z) > 4", "100")
	require.NoError(t, err)

	got, err := wasmexec.Run(out, 0, 0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 101.0, got)
}

// TestCompile_FractalShape_NewtonEscapes covers the same Newton-seeded
// shape at c=1, where the iteration escapes well before the maxiter
// bound. The seed args (Newton's starting guess) are a generic point,
// not (0,0): z*z+c's derivative vanishes at the origin for any c, which
// would make the solver's first step divide zero by zero.
func TestCompile_FractalShape_NewtonEscapes(t *testing.T) {
	out, err := Compile("", "z*z + c", "sqabs(z) > 4", "100")
	require.NoError(t, err)

	got, err := wasmexec.Run(out, 1.3, 0.7, 1, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, got, 0.0)
	require.Less(t, got, 101.0)
}

// TestCompile_FractalShape_ExplicitZeroSeed covers the four-string
// fractal shape with an explicit (non-Newton) initz of "0", at c=1: the
// orbit 0 → 1 → 2 → 5 escapes sqabs(z)>4 on its third step (sqabs(5)=25),
// since sqabs(2)=4 is not itself greater than 4.
func TestCompile_FractalShape_ExplicitZeroSeed(t *testing.T) {
	out, err := Compile("0", "z*z + c", "sqabs(z) > 4", "100")
	require.NoError(t, err)

	got, err := wasmexec.Run(out, 0, 0, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 3.0, got)
}

// TestCompile_InvalidShapeArity covers the error path for a string count
// that is neither 1 nor 4.
func TestCompile_InvalidShapeArity(t *testing.T) {
	_, err := Compile("a", "b", "c")
	require.Error(t, err)
	var ce *backend.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, backend.InvalidShapeArity, ce.Kind)
}
