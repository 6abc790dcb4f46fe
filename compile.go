// Package fractalwasm is the entry point of a fractal-expression-to-Wasm
// compiler: it receives one or four source strings, parses each,
// dispatches to the matching internal/backend shape, and returns the
// compiled .wasm module bytes. The JS glue that calls this and the viewer
// UI that runs the resulting module are both external collaborators,
// specified only at this function's interface.
package fractalwasm

import (
	"fmt"

	"github.com/edkins/fractalwasm/internal/ast"
	"github.com/edkins/fractalwasm/internal/backend"
)

// Compile accepts either one source string (the simple shape) or four
// (the fractal shape: initz, step, escape2, maxiter). An empty initz
// string selects a Newton-solved seed instead of an explicit expression,
// in which case the remaining three strings are step, escape2, maxiter.
// Any other number of strings is a *backend.CompileError with Kind
// InvalidShapeArity.
//
// Errors are either a *ast.ParseError (malformed source) or a
// *backend.CompileError (a lowering invariant violated by otherwise
// well-formed source).
func Compile(texts ...string) ([]byte, error) {
	switch len(texts) {
	case 1:
		expr, err := ast.Parse(texts[0])
		if err != nil {
			return nil, err
		}
		return backend.CompileSimple(expr)

	case 4:
		var initz *ast.Expr
		if texts[0] != "" {
			e, err := ast.Parse(texts[0])
			if err != nil {
				return nil, err
			}
			initz = &e
		}
		step, err := ast.Parse(texts[1])
		if err != nil {
			return nil, err
		}
		escape2, err := ast.Parse(texts[2])
		if err != nil {
			return nil, err
		}
		maxiter, err := ast.Parse(texts[3])
		if err != nil {
			return nil, err
		}
		return backend.CompileFractal(initz, step, escape2, maxiter)

	default:
		return nil, &backend.CompileError{
			Kind:    backend.InvalidShapeArity,
			Message: fmt.Sprintf("compile expects 1 or 4 source strings, got %d", len(texts)),
		}
	}
}
