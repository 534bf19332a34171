package hello

import (
	"fmt"

	"github.com/pkg/errors"
)

// Greeting names one of the three greeting functions.
type Greeting uint8

const (
	Standard Greeting = iota
	Wasm
	Universal
)

// Greetings returns every greeting, in declaration order.
func Greetings() []Greeting {
	return []Greeting{Standard, Wasm, Universal}
}

func (g Greeting) String() string {
	switch g {
	case Standard:
		return "standard"
	case Wasm:
		return "wasm"
	case Universal:
		return "universal"
	}

	return fmt.Sprintf("Greeting(%d)", uint8(g))
}

func ParseGreeting(s string) (Greeting, error) {
	for _, g := range Greetings() {
		if g.String() == s {
			return g, nil
		}
	}

	return 0, errors.Errorf("unknown greeting: %q", s)
}

// Target reports the build target g is restricted to.  The boolean is
// false for Universal, which has no restriction.
func (g Greeting) Target() (Target, bool) {
	switch g {
	case Standard:
		return Native, true
	case Wasm:
		return WASM, true
	}

	return 0, false
}

// Call invokes the function named by g.  It panics exactly when that
// function would.
func (g Greeting) Call() string {
	switch g {
	case Standard:
		return StandardGreeting()
	case Wasm:
		return WasmGreeting()
	case Universal:
		return UniversalGreeting()
	}

	panic(fmt.Sprintf("invalid greeting: %d", uint8(g)))
}

// Outcome of calling a greeting.  Mismatch is set when the call panicked
// with EnvironmentMismatch, in which case Text is empty.
type Outcome struct {
	Text     string
	Mismatch bool
}

func (o Outcome) String() string {
	if o.Mismatch {
		return "<environment mismatch>"
	}

	return fmt.Sprintf("%q", o.Text)
}

// Expect returns the outcome of calling g in a binary built for t.
func Expect(g Greeting, t Target) Outcome {
	if want, ok := g.Target(); ok && want != t {
		return Outcome{Mismatch: true}
	}

	switch g {
	case Standard:
		return Outcome{Text: standard}
	case Wasm:
		return Outcome{Text: wasm}
	default:
		return Outcome{Text: universal}
	}
}
