//go:build wasm

package hello

// Current is the target this binary was compiled for.
const Current = WASM

// StandardGreeting panics with EnvironmentMismatch.  It only returns in
// native builds.
func StandardGreeting() string {
	panic(EnvironmentMismatch{
		Func:   "StandardGreeting",
		Target: Native,
	})
}

// WasmGreeting returns the WASM greeting.  It panics with
// EnvironmentMismatch in native builds.
func WasmGreeting() string {
	return wasm
}
