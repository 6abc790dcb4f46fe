// Command fractalwasmc compiles one fractal-expression source (the simple
// shape) or four (the fractal shape: initz, step, escape2, maxiter) into a
// standalone Wasm module and writes the bytes to a file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/edkins/fractalwasm"
)

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("fractalwasmc", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "Prints usage.")

	var out string
	flags.StringVar(&out, "o", "", "Path to write the compiled .wasm module. Required.")

	var initz string
	flags.StringVar(&initz, "initz", "", "Seed expression for the fractal shape, in scope of c and i only. "+
		"Omit (together with -step) to select the simple shape; pass an empty string explicitly "+
		"alongside -step to select the Newton-solved seed instead of an explicit one.")

	var step string
	flags.StringVar(&step, "step", "", "Per-iteration expression for the fractal shape, in scope of z, c and i. "+
		"Selects the fractal shape when set; the sole positional argument is used as the simple shape's "+
		"expression when this is unset.")

	var escape2 string
	flags.StringVar(&escape2, "escape2", "sqabs(z) > 4",
		"Boolean escape-radius expression for the fractal shape, in scope of z, c and i.")

	var maxiter string
	flags.StringVar(&maxiter, "maxiter", "100",
		"Maximum-iteration-count expression for the fractal shape, in scope of c and i only.")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if help {
		printUsage(stdErr, flags)
		return 0
	}

	if out == "" {
		fmt.Fprintln(stdErr, "missing required -o output path")
		printUsage(stdErr, flags)
		return 1
	}

	var wasmBytes []byte
	var err error
	if step != "" {
		wasmBytes, err = fractalwasm.Compile(initz, step, escape2, maxiter)
	} else {
		if flags.NArg() != 1 {
			fmt.Fprintln(stdErr, "the simple shape takes exactly one positional expression argument")
			printUsage(stdErr, flags)
			return 1
		}
		wasmBytes, err = fractalwasm.Compile(flags.Arg(0))
	}
	if err != nil {
		fmt.Fprintf(stdErr, "error compiling: %v\n", err)
		return 1
	}

	if err := os.WriteFile(out, wasmBytes, 0o644); err != nil {
		fmt.Fprintf(stdErr, "error writing %s: %v\n", out, err)
		return 1
	}

	fmt.Fprintf(stdOut, "wrote %d bytes to %s\n", len(wasmBytes), out)
	return 0
}

func printUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "fractalwasmc CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:")
	fmt.Fprintln(stdErr, "  fractalwasmc -o out.wasm '<expr>'")
	fmt.Fprintln(stdErr, "  fractalwasmc -o out.wasm -step '<expr>' [-initz '<expr>'] [-escape2 '<expr>'] [-maxiter '<expr>']")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}
