package run

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"github.com/wetware/hello/proc"
	"go.uber.org/multierr"
)

func Command() *cli.Command {
	return &cli.Command{
		// hello run <module.wasm> [args...]
		////
		Name:      "run",
		Usage:     "run a wasip1 module",
		ArgsUsage: "<module.wasm> [args...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				EnvVars: []string{"HELLO_WASM_DEBUG"},
				Usage:   "enable wasm debug symbols",
			},
			&cli.StringSliceFlag{
				Name:    "env",
				EnvVars: []string{"HELLO_ENV"},
				Usage:   "set `KEY=VALUE` in the guest environment",
			},
			&cli.BoolFlag{
				Name:  "env-inherit",
				Usage: "pass the host environment to the guest",
			},
			&cli.StringSliceFlag{
				Name:  "mount",
				Usage: "mount host directory `HOST[:GUEST]` into the guest",
			},
		},
		Action: Main,
	}
}

func Main(c *cli.Context) (err error) {
	if !c.Args().Present() {
		return cli.Exit("missing module argument", 1)
	}
	name := c.Args().First()

	mnt, err := mounts(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := proc.NewRuntime(c.Context, c.Bool("debug"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, r.Close(c.Context))
	}()

	cm, err := proc.Load(c.Context, r, name)
	if err != nil {
		return err
	}

	status, err := proc.Command{
		Args:   append([]string{filepath.Base(name)}, c.Args().Tail()...),
		Env:    env(c),
		Mounts: mnt,
		Stdin:  stdin(c),
		Stdout: c.App.Writer,
		Stderr: c.App.ErrWriter,
	}.Run(c.Context, r, cm)
	if err != nil {
		return err
	}

	if status != 0 {
		return cli.Exit("", int(status))
	}

	return nil
}

func env(c *cli.Context) []string {
	var env []string
	if c.Bool("env-inherit") {
		env = os.Environ()
	}

	return append(env, c.StringSlice("env")...)
}

func mounts(c *cli.Context) (map[string]string, error) {
	m := make(map[string]string)
	for _, s := range c.StringSlice("mount") {
		host, guest, err := proc.ParseMount(s)
		if err != nil {
			return nil, err
		}

		m[host] = guest
	}

	return m, nil
}

func stdin(c *cli.Context) io.Reader {
	switch r := c.App.Reader.(type) {
	case *os.File:
		info, err := r.Stat()
		if err != nil || info.Mode()&os.ModeCharDevice != 0 {
			break // interactive terminal; don't block the guest
		}

		return &io.LimitedReader{
			R: r,
			N: 1<<32 - 1, // max u32
		}

	case io.Reader:
		return r
	}

	return &bytes.Reader{} // empty buffer
}
