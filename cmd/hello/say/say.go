package say

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/wetware/hello"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:      "say",
		Usage:     "print greetings from this build",
		ArgsUsage: "[standard|wasm|universal ...]",
		Description: "Prints each greeting on its own line.  A greeting that is not\n" +
			"live in this build aborts the process.",
		Action: Main,
	}
}

func Main(c *cli.Context) error {
	names := c.Args().Slice()
	if len(names) == 0 {
		names = []string{hello.Universal.String()}
	}

	// Parse everything first so that usage errors don't produce
	// partial output.
	greetings := make([]hello.Greeting, len(names))
	for i, name := range names {
		g, err := hello.ParseGreeting(name)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		greetings[i] = g
	}

	for _, g := range greetings {
		if _, err := fmt.Fprintln(c.App.Writer, g.Call()); err != nil {
			return err
		}
	}

	return nil
}
