// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package lock provides the single advisory lock that serializes
// concurrent control-plane invocations: one
// flock(2) held on a file inside the state directory for the duration of a
// single command.
package lock

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/spyicydev/macblock/internal/errors"
)

// FileName is the lock file's name within the config directory.
const FileName = ".macblock.lock"

// Handle holds the open file descriptor backing the flock. Release must be
// called to drop the lock; it is safe to defer immediately after Acquire
// returns successfully.
type Handle struct {
	f *os.File
}

// Acquire opens (creating if needed) dir/FileName and takes an exclusive,
// blocking flock on it. It serializes concurrent `macblockctl`
// invocations. The daemon never calls this, although its reconcile pass
// also saves state.json.
func Acquire(dir string) (*Handle, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindTransientIO, "open lock file %s", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, errors.KindTransientIO, "acquire lock on %s", path)
	}

	return &Handle{f: f}, nil
}

// TryAcquire is Acquire's non-blocking form, used by tests to observe
// contention without risking a hang.
func TryAcquire(dir string) (*Handle, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindTransientIO, "open lock file %s", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, errors.KindConflict, "lock %s is held by another macblockctl invocation", path)
	}

	return &Handle{f: f}, nil
}

// Release drops the flock and closes the underlying file.
func (h *Handle) Release() error {
	if h == nil || h.f == nil {
		return nil
	}
	_ = unix.Flock(int(h.f.Fd()), unix.LOCK_UN)
	return h.f.Close()
}
