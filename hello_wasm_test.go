//go:build wasm

// Run with:
//
//	GOOS=wasip1 GOARCH=wasm go test -exec "hello run --mount /:/ --env-inherit" .
//
// or equivalently `hello test .`
package hello_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wetware/hello"
)

func TestWasmGreeting(t *testing.T) {
	require.Equal(t, hello.WASM, hello.Current)
	require.Equal(t, "Hello, WASM!", hello.WasmGreeting())
	require.Equal(t, "Hello, WASM!", hello.WasmGreeting(),
		"repeated calls should agree")
}

func TestStandardGreeting_panics(t *testing.T) {
	require.PanicsWithValue(t, hello.EnvironmentMismatch{
		Func:   "StandardGreeting",
		Target: hello.Native,
	}, func() { hello.StandardGreeting() })

	require.PanicsWithError(t,
		"StandardGreeting must not be called in a WASM environment",
		func() { hello.StandardGreeting() })
}
