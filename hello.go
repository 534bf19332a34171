// Package hello returns fixed greetings whose availability depends on the
// compilation target.  StandardGreeting is live in native builds, WasmGreeting
// is live in builds with GOARCH=wasm, and UniversalGreeting is live everywhere.
// Calling a greeting in the wrong build panics with EnvironmentMismatch.
package hello

import (
	"fmt"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"
)

// Version of the guest argument protocol implemented by examples/greet.
var Version = semver.MustParse("0.1.0")

const (
	standard  = "Hello, world!"
	wasm      = "Hello, WASM!"
	universal = "Hello, all targets!"
)

// UniversalGreeting is valid in every build.
func UniversalGreeting() string {
	return universal
}

// Target is the compilation target a binary was built for.
type Target uint8

const (
	Native Target = iota
	WASM
)

func (t Target) String() string {
	switch t {
	case Native:
		return "native"
	case WASM:
		return "wasm"
	}

	return fmt.Sprintf("Target(%d)", uint8(t))
}

// ParseTarget is the inverse of Target.String.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "native":
		return Native, nil
	case "wasm":
		return WASM, nil
	}

	return 0, errors.Errorf("unknown target: %q", s)
}
