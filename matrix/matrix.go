//go:generate mockgen -source=matrix.go -destination=mocks/runner.go -package=mocks

// Package matrix checks the greeting contract against real builds.  Every
// greeting is called twice on every Runner and compared with hello.Expect.
package matrix

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/wetware/hello"
	"github.com/wetware/hello/proc"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Runner calls greetings in a binary built for Target.
type Runner interface {
	Target() hello.Target
	Run(context.Context, hello.Greeting) (hello.Outcome, error)
}

// InProcess calls greetings in the current binary.
type InProcess struct{}

func (InProcess) Target() hello.Target {
	return hello.Current
}

func (InProcess) Run(_ context.Context, g hello.Greeting) (out hello.Outcome, err error) {
	defer func() {
		if v := recover(); v != nil {
			if _, ok := v.(hello.EnvironmentMismatch); !ok {
				panic(v)
			}

			out = hello.Outcome{Mismatch: true}
		}
	}()

	return hello.Outcome{Text: g.Call()}, nil
}

// Guest calls greetings by running examples/greet, compiled for wasip1,
// once per call.
type Guest struct {
	Runtime wazero.Runtime
	Module  wazero.CompiledModule
	Env     []string
}

func (Guest) Target() hello.Target {
	return hello.WASM
}

func (g Guest) Run(ctx context.Context, greeting hello.Greeting) (hello.Outcome, error) {
	var stdout, stderr bytes.Buffer
	status, err := proc.Command{
		Args:   []string{"greet", greeting.String()},
		Env:    g.Env,
		Stdout: &stdout,
		Stderr: &stderr,
	}.Run(ctx, g.Runtime, g.Module)
	if err != nil {
		return hello.Outcome{}, err
	}

	switch {
	case status == 0:
		return hello.Outcome{Text: strings.TrimSuffix(stdout.String(), "\n")}, nil

	case status == 2 && isMismatch(stderr.String()):
		return hello.Outcome{Mismatch: true}, nil
	}

	return hello.Outcome{}, errors.Errorf("guest exited with status %d: %s",
		status, firstLine(stderr.String()))
}

// isMismatch reports whether the Go runtime's panic report names an
// EnvironmentMismatch.
func isMismatch(stderr string) bool {
	line := firstLine(stderr)
	return strings.HasPrefix(line, "panic: ") &&
		strings.HasSuffix(line, "called in a WASM environment")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// Result of calling Greeting twice on a Runner built for Target.
type Result struct {
	Target   hello.Target
	Greeting hello.Greeting
	Want     hello.Outcome
	Got      [2]hello.Outcome
	Err      error
}

// OK reports whether both calls produced the expected outcome.
func (r Result) OK() bool {
	return r.Err == nil && r.Got[0] == r.Want && r.Got[1] == r.Want
}

type Report []Result

// Failures returns the results that are not OK.
func (r Report) Failures() Report {
	var fs Report
	for _, res := range r {
		if !res.OK() {
			fs = append(fs, res)
		}
	}

	return fs
}

func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{Writer: w}
	tw := tabwriter.NewWriter(cw, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tGREETING\tWANT\tGOT\tSTATUS")
	for _, res := range r {
		got := res.Got[0].String()
		if res.Got[1] != res.Got[0] {
			got += " / " + res.Got[1].String()
		}

		status := "ok"
		if res.Err != nil {
			got, status = "-", "error: "+res.Err.Error()
		} else if !res.OK() {
			status = "FAIL"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			res.Target, res.Greeting, res.Want, got, status)
	}

	err := tw.Flush()
	return cw.n, err
}

type countingWriter struct {
	io.Writer
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)
	w.n += int64(n)
	return n, err
}

type Option func(*config)

type config struct {
	jobs int
}

// WithJobs bounds the number of greetings that run concurrently.
// Values below one mean no limit.
func WithJobs(n int) Option {
	return func(c *config) {
		c.jobs = n
	}
}

// Check calls every greeting twice on every runner and compares the
// outcomes with hello.Expect.  Runner errors are recorded in the report
// and returned together.  Mismatched outcomes are not errors; see
// Report.Failures.
func Check(ctx context.Context, runners []Runner, opt ...Option) (Report, error) {
	c := config{jobs: -1}
	for _, option := range opt {
		option(&c)
	}
	if c.jobs < 1 {
		c.jobs = -1
	}

	greetings := hello.Greetings()
	report := make(Report, len(runners)*len(greetings))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(c.jobs)

	for i, r := range runners {
		for j, greeting := range greetings {
			res := &report[i*len(greetings)+j]
			g.Go(func() error {
				*res = check(ctx, r, greeting)
				if res.Err != nil {
					mu.Lock()
					errs = multierr.Append(errs, errors.Wrapf(res.Err, "%s/%s",
						res.Target, res.Greeting))
					mu.Unlock()
				} else if !res.OK() {
					slog.WarnContext(ctx, "unexpected outcome",
						"target", res.Target,
						"greeting", res.Greeting,
						"want", res.Want,
						"got", res.Got)
				}

				return nil
			})
		}
	}

	_ = g.Wait() // errors are collected in errs

	slices.SortStableFunc(report, func(a, b Result) int {
		return cmp.Or(
			cmp.Compare(a.Target, b.Target),
			cmp.Compare(a.Greeting, b.Greeting))
	})

	return report, errs
}

func check(ctx context.Context, r Runner, g hello.Greeting) Result {
	res := Result{
		Target:   r.Target(),
		Greeting: g,
	}
	res.Want = hello.Expect(g, res.Target)

	for i := range res.Got {
		if res.Got[i], res.Err = r.Run(ctx, g); res.Err != nil {
			break
		}
	}

	return res
}
