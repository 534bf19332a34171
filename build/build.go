// Package build compiles Go packages for a given hello.Target by invoking
// the go toolchain.
package build

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/wetware/hello"
)

// Env returns the GOOS/GOARCH overrides for t.  Native builds use the
// toolchain's defaults.
func Env(t hello.Target) []string {
	if t == hello.WASM {
		return []string{"GOOS=wasip1", "GOARCH=wasm"}
	}

	return nil
}

type Config struct {
	Dir    string // package directory
	Output string // defaults to main.wasm or main, relative to Dir
	Target hello.Target
	Tags   []string
}

// Build compiles the package and returns the absolute path of the artifact.
func (c Config) Build(ctx context.Context) (string, error) {
	out, err := c.output()
	if err != nil {
		return "", err
	}

	args := []string{"build", "-o", out}
	args = append(args, c.tags()...)
	args = append(args, ".")

	if _, err := c.command(ctx, args...); err != nil {
		return "", errors.Wrapf(err, "build %s for %s", c.Dir, c.Target)
	}

	return out, nil
}

// Test runs the package's tests for the configured target.  WASM test
// binaries cannot run on the host directly, so exec names the program that
// runs them, e.g. "hello run".  The go command's default wasip1 runner is
// used when exec is empty.
func (c Config) Test(ctx context.Context, exec string) (string, error) {
	args := []string{"test"}
	if exec != "" && c.Target == hello.WASM {
		args = append(args, "-exec", exec)
	}
	args = append(args, c.tags()...)
	args = append(args, ".")

	output, err := c.command(ctx, args...)
	if err != nil {
		return output, errors.Wrapf(err, "test %s for %s", c.Dir, c.Target)
	}

	return output, nil
}

func (c Config) output() (string, error) {
	out := c.Output
	if out == "" {
		out = "main"
		if c.Target == hello.WASM {
			out = "main.wasm"
		}
	}

	if !filepath.IsAbs(out) {
		out = filepath.Join(c.Dir, out)
	}

	return filepath.Abs(out)
}

func (c Config) tags() []string {
	if len(c.Tags) == 0 {
		return nil
	}

	return []string{"-tags", strings.Join(c.Tags, ",")}
}

func (c Config) command(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), Env(c.Target)...)

	slog.DebugContext(ctx, "running go toolchain",
		"args", args,
		"dir", c.Dir,
		"target", c.Target)

	b, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(b))
	if err != nil && output == "" {
		return output, errors.Wrapf(err, "go %s", args[0])
	} else if err != nil {
		return output, errors.Wrapf(err, "go %s: %s", args[0], output)
	}

	return output, nil
}
