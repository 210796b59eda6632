// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"os"

	"github.com/spyicydev/macblock/internal/diagnostics"
	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/logging"
)

const logTailLines = 200

// RunLogs prints the tail of the daemon log, optionally following it.
// With "auto" and follow, it skips the file when logging.Mirroring reports
// that this process's own logger mirrors to the terminal. That flag is
// only set by logging.Init, which macblockctl does not call, so from the
// CLI the file is always tailed.
func RunLogs(ctx context.Context, follow bool, stream string) error {
	path := streamPath(stream)

	if stream == "auto" && logging.Mirroring() && follow {
		Printer.Println("daemon log is already mirrored to this terminal.")
		return nil
	}

	if err := diagnostics.DumpTail(os.Stdout, path, logTailLines); err != nil {
		return errors.Wrap(err, errors.KindUser, "read log")
	}
	if !follow {
		return nil
	}
	return diagnostics.Follow(ctx, os.Stdout, path)
}

// streamPath resolves --stream to a concrete file. The daemon's launchd
// manifest points StandardOutPath and StandardErrorPath at the same file
// (internal/install.DaemonPlist), so "stdout", "stderr", and "auto" all
// resolve to the one combined log file.
func streamPath(stream string) string {
	return install.DaemonLogPath()
}
