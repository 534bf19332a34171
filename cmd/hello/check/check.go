package check

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/wetware/hello"
	"github.com/wetware/hello/build"
	"github.com/wetware/hello/matrix"
	"github.com/wetware/hello/proc"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "verify every greeting against native and wasm builds",
		Description: "Calls each greeting twice in this binary and, if --guest is set,\n" +
			"in the guest module, and compares the outcomes with the expected ones.\n" +
			"--guest may name a compiled module or a package directory, which is\n" +
			"built for wasip1 first.",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "guest",
				EnvVars: []string{"HELLO_GUEST"},
				Usage:   "guest `MODULE` (.wasm file or package directory)",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				EnvVars: []string{"HELLO_JOBS"},
				Usage:   "maximum concurrent calls; 0 means unlimited",
			},
			&cli.BoolFlag{
				Name:    "debug",
				EnvVars: []string{"HELLO_WASM_DEBUG"},
				Usage:   "enable wasm debug symbols",
			},
		},
		Action: Main,
	}
}

func Main(c *cli.Context) (err error) {
	runners := []matrix.Runner{matrix.InProcess{}}

	if name := c.Path("guest"); name != "" {
		var guest matrix.Guest
		if guest, err = newGuest(c, name); err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, guest.Runtime.Close(c.Context))
		}()

		runners = append(runners, guest)
	}

	report, err := matrix.Check(c.Context, runners, matrix.WithJobs(c.Int("jobs")))
	if _, werr := report.WriteTo(c.App.Writer); werr != nil {
		return multierr.Append(err, werr)
	} else if err != nil {
		return err
	}

	if failures := report.Failures(); len(failures) > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d checks failed", len(failures), len(report)), 1)
	}

	return nil
}

func newGuest(c *cli.Context, name string) (matrix.Guest, error) {
	path, cleanup, err := resolve(c, name)
	defer cleanup() // proc.Load compiles the module into memory
	if err != nil {
		return matrix.Guest{}, err
	}

	r, err := proc.NewRuntime(c.Context, c.Bool("debug"))
	if err != nil {
		return matrix.Guest{}, err
	}

	cm, err := proc.Load(c.Context, r, path)
	if err == nil {
		err = proc.CheckVersion(c.Context, r, cm, hello.Version)
	}
	if err != nil {
		return matrix.Guest{}, multierr.Append(err, r.Close(c.Context))
	}

	return matrix.Guest{
		Runtime: r,
		Module:  cm,
	}, nil
}

// resolve returns the path of a compiled guest.  Directories are built
// into a temporary file, which cleanup removes.
func resolve(c *cli.Context, name string) (path string, cleanup func(), err error) {
	cleanup = func() {}

	info, err := os.Stat(name)
	if err != nil {
		return "", cleanup, errors.Wrap(err, "guest")
	} else if !info.IsDir() {
		return name, cleanup, nil
	}

	dir, err := os.MkdirTemp("", "hello-check-*")
	if err != nil {
		return "", cleanup, err
	}
	cleanup = func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.ErrorContext(c.Context, "failed to clean up temporary directory",
				"reason", err,
				"path", dir)
		}
	}

	path, err = build.Config{
		Dir:    name,
		Output: filepath.Join(dir, "greet.wasm"),
		Target: hello.WASM,
	}.Build(c.Context)
	return path, cleanup, err
}
