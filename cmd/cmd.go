// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmd implements the control command surface: one Run* function
// per subcommand, each returning a plain error that the entrypoint maps
// to an exit code via internal/errors.Kind.
package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/lock"
)

// Printer is the package-wide output sink for command results, separate
// from error reporting (which callers always route through the returned
// error so the entrypoint can apply the `error: <msg>` formatting
// uniformly).
var Printer = struct {
	Printf  func(format string, args ...any)
	Println func(args ...any)
}{
	Printf:  func(format string, args ...any) { fmt.Fprintf(os.Stdout, format, args...) },
	Println: func(args ...any) { fmt.Fprintln(os.Stdout, args...) },
}

// withStateLock acquires the advisory lock on the config directory, runs
// fn, and always releases it. The single lock is what serializes
// concurrent control-plane invocations.
func withStateLock(fn func() error) error {
	h, err := lock.Acquire(install.ConfigDir())
	if err != nil {
		return err
	}
	defer h.Release()
	return fn()
}

// notifyDaemon sends SIGUSR1 to the running daemon so it reconciles
// immediately after a state-mutating command. Callers must have finished
// their state-file write before calling, so the daemon never observes the
// signal without the new state. A daemon that isn't running is not an
// error: the next daemon start will pick up the new state on its own.
func notifyDaemon() error {
	data, err := os.ReadFile(install.DaemonPIDPath())
	if err != nil {
		return nil
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGUSR1); err != nil && err != syscall.ESRCH {
		return errors.Wrap(err, errors.KindTransientIO, "notify daemon")
	}
	return nil
}

// ExitCode maps err to the process exit code for its error kind: 0 is
// the caller's responsibility (only called on non-nil err).
func ExitCode(err error) int {
	return errors.GetKind(err).ExitCode()
}
