package build

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"
	"github.com/wetware/hello"
	"github.com/wetware/hello/build"
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "target",
		Aliases: []string{"t"},
		EnvVars: []string{"HELLO_TARGET"},
		Usage:   "native or wasm",
		Value:   hello.WASM.String(),
	},
	&cli.StringSliceFlag{
		Name:    "tags",
		EnvVars: []string{"HELLO_BUILD_TAGS"},
		Usage:   "additional build tags",
	},
}

func Command() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "compile a guest for the given target",
		ArgsUsage: "[package-dir]",
		Flags: append([]cli.Flag{
			&cli.PathFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "write the artifact to `FILE`",
			},
		}, flags...),
		Action: Main,
	}
}

func Main(c *cli.Context) error {
	config, err := newConfig(c)
	if err != nil {
		return err
	}
	config.Output = c.Path("out")

	path, err := config.Build(c.Context)
	if err != nil {
		return err
	}

	slog.DebugContext(c.Context, "built guest",
		"path", path,
		"target", config.Target)

	_, err = fmt.Fprintln(c.App.Writer, path)
	return err
}

func TestCommand() *cli.Command {
	return &cli.Command{
		Name:      "test",
		Usage:     "run a package's tests for the given target",
		ArgsUsage: "[package-dir]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "exec",
				EnvVars: []string{"HELLO_WASM_EXEC"},
				Usage:   "program that runs wasm test binaries",
				Value:   "hello run --mount /:/ --env-inherit",
			},
		}, flags...),
		Action: Test,
	}
}

func Test(c *cli.Context) error {
	config, err := newConfig(c)
	if err != nil {
		return err
	}

	output, err := config.Test(c.Context, c.String("exec"))
	if err != nil {
		return err // includes the toolchain's output
	}

	_, err = fmt.Fprintln(c.App.Writer, output)
	return err
}

func newConfig(c *cli.Context) (build.Config, error) {
	target, err := hello.ParseTarget(c.String("target"))
	if err != nil {
		return build.Config{}, cli.Exit(err.Error(), 1)
	}

	dir := "."
	if c.Args().Present() {
		dir = c.Args().First()
	}

	return build.Config{
		Dir:    dir,
		Target: target,
		Tags:   c.StringSlice("tags"),
	}, nil
}
