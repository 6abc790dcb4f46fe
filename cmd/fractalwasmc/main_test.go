package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runMain(t *testing.T, args []string) (int, string, string) {
	t.Helper()
	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}
	exitCode := doMain(args, stdOut, stdErr)
	return exitCode, stdOut.String(), stdErr.String()
}

func TestDoMain_SimpleShape(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wasm")
	exitCode, stdOut, stdErr := runMain(t, []string{"-o", out, "z*z + 0.3"})
	require.Equal(t, 0, exitCode, stdErr)
	require.Contains(t, stdOut, "wrote")

	bytes, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NotEmpty(t, bytes)
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d}, bytes[:4]) // Wasm magic number
}

func TestDoMain_FractalShape(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wasm")
	exitCode, _, stdErr := runMain(t, []string{
		"-o", out,
		"-step", "z*z + c",
		"-escape2", "sqabs(z) > 4",
		"-maxiter", "100",
	})
	require.Equal(t, 0, exitCode, stdErr)

	bytes, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NotEmpty(t, bytes)
}

func TestDoMain_Help(t *testing.T) {
	exitCode, _, stdErr := runMain(t, []string{"-h"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdErr, "fractalwasmc CLI")
}

func TestDoMain_MissingOutputPath(t *testing.T) {
	exitCode, _, stdErr := runMain(t, []string{"z"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdErr, "missing required -o output path")
}

func TestDoMain_CompileError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wasm")
	exitCode, _, stdErr := runMain(t, []string{"-o", out, "nonsense_identifier"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdErr, "error compiling")
}
