package hello

import "fmt"

// EnvironmentMismatch is the panic value raised when a target-restricted
// greeting is called from a binary built for another target.
type EnvironmentMismatch struct {
	Func   string
	Target Target // target the function is restricted to
}

func (err EnvironmentMismatch) Error() string {
	if err.Target == WASM {
		return fmt.Sprintf("%s must only be called in a WASM environment", err.Func)
	}

	return fmt.Sprintf("%s must not be called in a WASM environment", err.Func)
}
