//go:build !wasm

package hello_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wetware/hello"
)

func TestStandardGreeting(t *testing.T) {
	t.Parallel()

	require.Equal(t, hello.Native, hello.Current)
	require.Equal(t, "Hello, world!", hello.StandardGreeting())
	require.Equal(t, "Hello, world!", hello.StandardGreeting(),
		"repeated calls should agree")
}

func TestWasmGreeting_panics(t *testing.T) {
	t.Parallel()

	require.PanicsWithValue(t, hello.EnvironmentMismatch{
		Func:   "WasmGreeting",
		Target: hello.WASM,
	}, func() { hello.WasmGreeting() })

	require.PanicsWithError(t,
		"WasmGreeting must only be called in a WASM environment",
		func() { hello.WasmGreeting() })
}
