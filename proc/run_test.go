package proc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"github.com/wetware/hello/proc"
)

// fakeModule exports a single _start function.  The embedded interfaces
// satisfy wazero's unexported methods; calling anything not overridden
// panics.
type fakeModule struct {
	api.Module
	start api.Function
}

func (m fakeModule) Name() string { return "fake" }

func (m fakeModule) ExportedFunction(name string) api.Function {
	if name == "_start" {
		return m.start
	}

	return nil
}

type fakeStart struct {
	api.Function
	call func(context.Context) error
}

func (f fakeStart) Call(ctx context.Context, _ ...uint64) ([]uint64, error) {
	return nil, f.call(ctx)
}

func start(call func(context.Context) error) *proc.P {
	return proc.New(fakeModule{start: fakeStart{call: call}})
}

func TestP_Run_exitStatus(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name   string
		err    error
		status uint32
		want   error
	}{
		{name: "returned", err: nil, status: 0},
		{name: "exit zero", err: sys.NewExitError(0), status: 0},
		{name: "exit non-zero", err: sys.NewExitError(2), status: 2},
		{name: "canceled", err: sys.NewExitError(sys.ExitCodeContextCanceled), want: context.Canceled},
		{name: "deadline", err: sys.NewExitError(sys.ExitCodeDeadlineExceeded), want: context.DeadlineExceeded},
		{name: "trap", err: errors.New("wasm error: unreachable"), want: errors.New("wasm error: unreachable")},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := start(func(context.Context) error { return tt.err })
			require.Equal(t, "fake", p.String())

			status, err := p.Run(context.Background())
			if tt.want != nil {
				require.EqualError(t, err, tt.want.Error())
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.status, status)
		})
	}
}

func TestP_Run_serialized(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := start(func(context.Context) error {
		<-release
		return sys.NewExitError(0)
	})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Run(context.Background())
			errs <- err
		}()
	}

	close(release)
	wg.Wait()
	close(errs)

	var exited int
	for err := range errs {
		if errors.Is(err, proc.ErrExited) {
			exited++
		} else {
			require.NoError(t, err)
		}
	}
	require.Equal(t, 1, exited, "exactly one run should start the guest")
}

func TestP_Run_canceledWhileWaiting(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	p := start(func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	go p.Run(context.Background())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
