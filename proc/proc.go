package proc

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

// ErrExited is returned by P.Run after the guest's _start has already run.
// Go's wasip1 runtime calls proc_exit when main returns, which closes the
// module, so a P cannot be started twice.
var ErrExited = errors.New("process exited")

// NewRuntime returns a wazero runtime with WASI preview 1 instantiated.
// The runtime aborts running guests when ctx expires.
func NewRuntime(ctx context.Context, debug bool) (wazero.Runtime, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithDebugInfoEnabled(debug).
		WithCloseOnContextDone(true))

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return nil, multierr.Append(
			errors.Wrap(err, "instantiate wasi"),
			r.Close(ctx))
	}

	return r, nil
}

// Load compiles the module at path.  The compiled module is closed along
// with r.
func Load(ctx context.Context, r wazero.Runtime, path string) (wazero.CompiledModule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read module")
	}

	cm, err := r.CompileModule(ctx, b)
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", path)
	}

	return cm, nil
}

// Command describes a single run of a WASI guest.  Args holds the full
// argument vector, including the program name in Args[0].  Mounts maps
// host directories to guest paths; the guest has no filesystem otherwise.
type Command struct {
	PID            PID
	Args, Env      []string
	Mounts         map[string]string
	Stdin          io.Reader
	Stdout, Stderr io.Writer
}

func (cmd Command) Instantiate(ctx context.Context, r wazero.Runtime, cm wazero.CompiledModule) (*P, error) {
	if cmd.PID.IsZero() {
		cmd.PID = NewPID()
	}

	mod, err := r.InstantiateModule(ctx, cm, cmd.WithEnv(wazero.NewModuleConfig().
		WithName(cmd.PID.String()).
		WithArgs(cmd.Args...).
		WithStdin(cmd.stdin()).
		WithStdout(writer(cmd.Stdout)).
		WithStderr(writer(cmd.Stderr)).
		WithFSConfig(cmd.fsConfig()).
		WithRandSource(rand.Reader).
		WithOsyield(runtime.Gosched).
		WithSysNanosleep().
		WithSysNanotime().
		WithSysWalltime().
		WithStartFunctions())) // defer _start until P.Run
	if err != nil {
		return nil, errors.Wrap(err, "instantiate module")
	}

	return New(mod), nil
}

// Run instantiates the guest, runs it to completion and closes it.
func (cmd Command) Run(ctx context.Context, r wazero.Runtime, cm wazero.CompiledModule) (status uint32, err error) {
	p, err := cmd.Instantiate(ctx, r, cm)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Append(err, p.Close(ctx))
	}()

	return p.Run(ctx)
}

func (cmd Command) WithEnv(mc wazero.ModuleConfig) wazero.ModuleConfig {
	for _, s := range cmd.Env {
		ss := strings.SplitN(s, "=", 2)
		if len(ss) != 2 {
			slog.Warn("ignored unparsable environment variable",
				"var", s)
			continue
		}

		mc = mc.WithEnv(ss[0], ss[1])
	}

	return mc
}

func (cmd Command) fsConfig() wazero.FSConfig {
	fc := wazero.NewFSConfig()
	for host, guest := range cmd.Mounts {
		fc = fc.WithDirMount(host, guest)
	}

	return fc
}

// ParseMount parses a "host:guest" mount specification.  The guest path
// defaults to the host path.
func ParseMount(s string) (host, guest string, err error) {
	host, guest, ok := strings.Cut(s, ":")
	if host == "" {
		return "", "", errors.Errorf("invalid mount %q: empty host path", s)
	} else if !ok || guest == "" {
		guest = host
	}

	return host, guest, nil
}

func (cmd Command) stdin() io.Reader {
	if cmd.Stdin == nil {
		return &bytes.Reader{} // empty
	}

	return cmd.Stdin
}

func writer(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}

// P is an instantiated guest whose _start function has not yet run.
type P struct {
	mod  api.Module
	sem  *semaphore.Weighted
	done bool
}

func New(mod api.Module) *P {
	return &P{
		mod: mod,
		sem: semaphore.NewWeighted(1),
	}
}

func (p *P) String() string {
	return p.mod.Name()
}

func (p *P) Close(ctx context.Context) error {
	return p.mod.Close(ctx)
}

// Run calls the guest's _start function and returns its exit status.
// A non-zero status is not an error; err reports failures of the host
// or cancellation of ctx.
func (p *P) Run(ctx context.Context) (uint32, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer p.sem.Release(1)

	if p.done {
		return 0, ErrExited
	}
	p.done = true

	fn := p.mod.ExportedFunction("_start")
	if fn == nil {
		return 0, errors.New("missing export: _start")
	}

	_, err := fn.Call(ctx)
	if errors.Is(err, context.Canceled) {
		return 0, context.Canceled
	} else if errors.Is(err, context.DeadlineExceeded) {
		return 0, context.DeadlineExceeded
	}

	var exit *sys.ExitError
	if errors.As(err, &exit) {
		return exit.ExitCode(), nil
	}

	return 0, err
}
