package proc

import (
	"bytes"
	"context"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
)

// Version asks the guest for the argument protocol it implements, by
// running it with -version.
func Version(ctx context.Context, r wazero.Runtime, cm wazero.CompiledModule) (semver.Version, error) {
	var stdout, stderr bytes.Buffer
	status, err := Command{
		Args:   []string{"greet", "-version"},
		Stdout: &stdout,
		Stderr: &stderr,
	}.Run(ctx, r, cm)
	if err != nil {
		return semver.Version{}, err
	} else if status != 0 {
		return semver.Version{}, errors.Errorf("guest exited with status %d: %s",
			status, strings.TrimSpace(stderr.String()))
	}

	v, err := semver.ParseTolerant(strings.TrimSpace(stdout.String()))
	return v, errors.Wrap(err, "parse guest version")
}

// CheckVersion fails unless the guest's version is compatible with want.
// Versions are compatible when their major versions match; below 1.0.0 the
// minor versions must match as well.
func CheckVersion(ctx context.Context, r wazero.Runtime, cm wazero.CompiledModule, want semver.Version) error {
	got, err := Version(ctx, r, cm)
	if err != nil {
		return err
	}

	if !Compatible(got, want) {
		return errors.Errorf("incompatible guest version %s (want %s)", got, want)
	}

	return nil
}

func Compatible(got, want semver.Version) bool {
	if got.Major != want.Major {
		return false
	}

	return got.Major > 0 || got.Minor == want.Minor
}
