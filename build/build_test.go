package build_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wetware/hello"
	"github.com/wetware/hello/build"
)

func TestEnv(t *testing.T) {
	t.Parallel()

	require.Nil(t, build.Env(hello.Native))
	require.Equal(t, []string{"GOOS=wasip1", "GOARCH=wasm"}, build.Env(hello.WASM))
}

func TestConfig_Build(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not found")
	}

	out := filepath.Join(t.TempDir(), "greet.wasm")
	path, err := build.Config{
		Dir:    "../examples/greet",
		Output: out,
		Target: hello.WASM,
	}.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, out, path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("\x00asm"), b[:4], "should be a wasm module")
}

func TestConfig_Build_error(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not found")
	}

	_, err := build.Config{
		Dir:    t.TempDir(), // no Go files
		Output: "main",
	}.Build(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "for native")
}

func TestConfig_Build_noOutput(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not found")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // the toolchain never starts, so it prints nothing

	dir := t.TempDir()
	_, err := build.Config{Dir: dir, Output: "main"}.Build(ctx)
	require.EqualError(t, err, "build "+dir+" for native: go build: context canceled")
}

// writePackage creates a standalone module in a temporary directory.
func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	files["go.mod"] = "module example.com/pkg\n\ngo 1.24\n"
	for name, body := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644)
		require.NoError(t, err)
	}

	return dir
}

func TestConfig_Test(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not found")
	}

	const pass = "package pkg\n\nimport \"testing\"\n\nfunc TestPass(t *testing.T) {}\n"
	const fail = "package pkg\n\nimport \"testing\"\n\nfunc TestFail(t *testing.T) { t.Fatal(\"boom\") }\n"

	t.Run("pass", func(t *testing.T) {
		t.Parallel()

		dir := writePackage(t, map[string]string{"pass_test.go": pass})

		// exec only applies to WASM; a native run must not use it.
		output, err := build.Config{
			Dir:    dir,
			Target: hello.Native,
		}.Test(context.Background(), "/nonexistent/runner")
		require.NoError(t, err)
		require.Contains(t, output, "ok")
		require.Contains(t, output, "example.com/pkg")
	})

	t.Run("fail", func(t *testing.T) {
		t.Parallel()

		dir := writePackage(t, map[string]string{
			"pass_test.go": pass,
			"fail_test.go": fail,
		})

		output, err := build.Config{
			Dir:    dir,
			Target: hello.Native,
		}.Test(context.Background(), "")
		require.Error(t, err)
		require.Contains(t, output, "--- FAIL: TestFail")
		require.Contains(t, output, "boom")
		require.NotContains(t, output, "--- FAIL: TestPass")

		require.Contains(t, err.Error(), "test "+dir+" for native: go test: ")
		require.Contains(t, err.Error(), "--- FAIL: TestFail")
	})

	t.Run("wasm exec", func(t *testing.T) {
		t.Parallel()

		dir := writePackage(t, map[string]string{"pass_test.go": pass})

		// A runner that cannot start proves -exec was passed through.
		output, err := build.Config{
			Dir:    dir,
			Target: hello.WASM,
		}.Test(context.Background(), "/nonexistent/runner")
		require.Error(t, err)
		require.Contains(t, output, "/nonexistent/runner")
		require.Contains(t, err.Error(), "for wasm: go test: ")
	})
}
