package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/wetware/hello"
	"github.com/wetware/hello/cmd/hello/build"
	"github.com/wetware/hello/cmd/hello/check"
	"github.com/wetware/hello/cmd/hello/run"
	"github.com/wetware/hello/cmd/hello/say"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), signals...)
	defer cancel()

	err := App().RunContext(ctx, os.Args)
	if err != nil {
		slog.ErrorContext(ctx, err.Error())
		os.Exit(1)
	}
}

// signals cancel the command's context, which aborts running guests.
var signals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
}

func App() *cli.App {
	return &cli.App{
		Name:      "hello",
		Usage:     "greet from native and WASM builds",
		Version:   hello.Version.String(),
		Copyright: "2020 The Wetware Project",
		Before:    setup,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"HELLO_LOG_LEVEL"},
				Usage:   "one of debug, info, warn, error",
				Value:   "info",
			},
			&cli.PathFlag{
				Name:    "env-file",
				EnvVars: []string{"HELLO_ENV_FILE"},
				Usage:   "load `FILE` into the environment before reading command flags",
				Value:   ".env",
			},
		},
		Commands: []*cli.Command{
			say.Command(),
			build.Command(),
			build.TestCommand(),
			run.Command(),
			check.Command(),
		},
	}
}

// setup runs before any command flags are parsed, so variables loaded
// from the env file are visible to their EnvVars.
func setup(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	slog.SetDefault(slog.New(tint.NewHandler(c.App.ErrWriter, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	return loadEnv(c.Path("env-file"))
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("env file not found", "path", path)
	} else if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	return nil
}
