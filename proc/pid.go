package proc

import (
	"crypto/rand"
	"io"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

// PID names a guest instance.  wazero requires module names to be unique
// within a runtime, so every Command gets a fresh one.
type PID [20]byte // 160bit opaque identifier

func NewPID() (pid PID) {
	var err error
	if pid, err = ReadPID(rand.Reader); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}

	return
}

func ReadPID(r io.Reader) (pid PID, err error) {
	_, err = io.ReadFull(r, pid[:])
	return
}

func ParsePID(s string) (pid PID, err error) {
	var buf []byte
	if buf, err = base58.FastBase58Decoding(s); err != nil {
		return
	}

	if len(buf) != len(pid) {
		err = errors.Errorf("invalid pid: want %d bytes, got %d", len(pid), len(buf))
		return
	}

	copy(pid[:], buf)
	return
}

func (pid PID) String() string {
	return base58.FastBase58Encoding(pid[:])
}

func (pid PID) IsZero() bool {
	return pid == PID{}
}
