// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"context"
	"strings"
	"time"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/procrun"
)

const (
	launchctlTimeout = 5 * time.Second
	launchWaitPoll   = 200 * time.Millisecond
)

// LoadService runs `launchctl load -w` for the manifest at plistPath.
func LoadService(ctx context.Context, plistPath string) error {
	res, err := procrun.Run(ctx, launchctlTimeout, "launchctl", "load", "-w", plistPath)
	if err != nil {
		return errors.Wrap(err, errors.KindPrivilege, "launchctl load "+plistPath)
	}
	if res.ExitCode != 0 {
		return errors.Errorf(errors.KindPrivilege, "launchctl load %s: %s", plistPath, res.Stderr)
	}
	return nil
}

// UnloadService runs `launchctl unload` for the manifest at plistPath.
// Under force, the caller tolerates the returned error and continues.
func UnloadService(ctx context.Context, plistPath string) error {
	res, err := procrun.Run(ctx, launchctlTimeout, "launchctl", "unload", plistPath)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return errors.Errorf(errors.KindTransientIO, "launchctl unload %s: %s", plistPath, res.Stderr)
	}
	return nil
}

// WaitRunning polls `launchctl list <label>` until it reports a PID (a
// nonnegative first column) or timeout elapses.
func WaitRunning(ctx context.Context, label string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		res, err := procrun.Run(ctx, launchctlTimeout, "launchctl", "list", label)
		if err == nil && res.ExitCode == 0 {
			// `launchctl list <label>` with one service prints a
			// "PID Status Label" line as the second line of output.
			lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
			if len(lines) >= 2 {
				fields := strings.Fields(lines[1])
				if len(fields) > 0 && fields[0] != "-" {
					return nil
				}
			}
		}
		if time.Now().After(deadline) {
			return errors.Errorf(errors.KindTransientIO, "%s did not reach running state within %s", label, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(launchWaitPoll):
		}
	}
}
