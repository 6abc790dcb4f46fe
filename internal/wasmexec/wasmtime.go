//go:build amd64 && cgo

// Package wasmexec is test-only scaffolding: it executes compiler output
// against a real Wasm engine, so the test suite can check compiled output
// against expected numeric results for roundtrip correctness rather than
// just inspecting bytes.
package wasmexec

import (
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v14"
)

// Run instantiates wasmBytes with no imports and calls its exported
// return_thing with args, returning the single f64 result. This is the
// primary execution oracle for the test suite.
func Run(wasmBytes []byte, args ...float64) (float64, error) {
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)

	module, err := wasmtime.NewModule(engine, wasmBytes)
	if err != nil {
		return 0, fmt.Errorf("wasmexec: compiling module: %w", err)
	}

	instance, err := wasmtime.NewInstance(store, module, []wasmtime.AsExtern{})
	if err != nil {
		return 0, fmt.Errorf("wasmexec: instantiating module: %w", err)
	}

	fn := instance.GetFunc(store, "return_thing")
	if fn == nil {
		return 0, fmt.Errorf("wasmexec: return_thing is not an exported function")
	}

	callArgs := make([]interface{}, len(args))
	for i, a := range args {
		callArgs[i] = a
	}

	result, err := fn.Call(store, callArgs...)
	if err != nil {
		return 0, fmt.Errorf("wasmexec: calling return_thing: %w", err)
	}
	f, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("wasmexec: return_thing returned %T, want float64", result)
	}
	return f, nil
}
