//go:build !wasm

package hello

// Current is the target this binary was compiled for.
const Current = Native

// StandardGreeting returns the classic greeting.  It panics with
// EnvironmentMismatch in WASM builds.
func StandardGreeting() string {
	return standard
}

// WasmGreeting panics with EnvironmentMismatch.  It only returns in WASM builds.
func WasmGreeting() string {
	panic(EnvironmentMismatch{
		Func:   "WasmGreeting",
		Target: WASM,
	})
}
