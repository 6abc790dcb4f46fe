//go:build amd64 && cgo && !windows

package wasmexec

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// CrossCheck instantiates wasmBytes in a second, independent engine
// (wasmer, rather than wasmtime) and calls return_thing the same way Run
// does. Tests that care about engine-independent correctness call both
// and require they agree, rather than trusting a single implementation
// of the Wasm spec.
func CrossCheck(wasmBytes []byte, args ...float64) (float64, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)

	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return 0, fmt.Errorf("wasmexec: compiling module: %w", err)
	}

	instance, err := wasmer.NewInstance(module, wasmer.NewImportObject())
	if err != nil {
		return 0, fmt.Errorf("wasmexec: instantiating module: %w", err)
	}

	fn, err := instance.Exports.GetFunction("return_thing")
	if err != nil {
		return 0, fmt.Errorf("wasmexec: return_thing is not an exported function: %w", err)
	}

	callArgs := make([]interface{}, len(args))
	for i, a := range args {
		callArgs[i] = a
	}

	result, err := fn(callArgs...)
	if err != nil {
		return 0, fmt.Errorf("wasmexec: calling return_thing: %w", err)
	}
	f, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("wasmexec: return_thing returned %T, want float64", result)
	}
	return f, nil
}
