// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"os"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
)

// RunInstall lays down macblock's privileged footprint and, unless
// --skip-update was passed, runs the first blocklist compile once both
// services are up so blocking is effective immediately. It must run as
// root on macOS.
func RunInstall(ctx context.Context, force, skipUpdate bool) error {
	if err := install.RequireMacOS(); err != nil {
		return err
	}
	if err := install.RequireRoot(); err != nil {
		return err
	}

	binPath, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, errors.KindPlatform, "resolve own executable path")
	}
	dnsmasqBin, err := resolveDnsmasqBin()
	if err != nil {
		return err
	}

	if err := install.Install(ctx, binPath, dnsmasqBin, install.Options{Force: force, SkipUpdate: skipUpdate}); err != nil {
		return err
	}

	Printer.Println("install complete.")

	if skipUpdate {
		Printer.Println("blocklist compile skipped; run 'macblockctl update' to fetch it.")
		return nil
	}
	if err := RunUpdate(ctx, ""); err != nil {
		// The footprint is installed and the daemon is running; a failed
		// first download shouldn't roll any of that back.
		Printer.Printf("warning: initial blocklist update failed: %v\n", err)
		Printer.Println("run 'macblockctl update' to retry.")
	}
	return nil
}

// RunUninstall tears down macblock's footprint, restoring DNS first.
// Under --force, a failure to remove or restore one artifact does not
// prevent removing the rest; any leftovers are reported by path.
func RunUninstall(ctx context.Context, force bool) error {
	if err := install.RequireMacOS(); err != nil {
		return err
	}
	if err := install.RequireRoot(); err != nil {
		return err
	}

	restore := func(ctx context.Context) map[string]error { return restoreAllBackups(ctx) }

	result, err := install.Uninstall(ctx, restore, install.Options{Force: force})
	if err != nil {
		return err
	}

	for svc, rerr := range result.RestoreFailures {
		Printer.Printf("warning: failed to restore DNS for %s: %v\n", svc, rerr)
	}
	if len(result.RemainingFiles) > 0 {
		Printer.Println("the following files could not be removed:")
		for _, f := range result.RemainingFiles {
			Printer.Printf("  %s\n", f)
		}
		return errors.Errorf(errors.KindPartialFailure, "%d file(s) left behind after uninstall", len(result.RemainingFiles))
	}

	Printer.Println("uninstall complete.")
	return nil
}

// resolveDnsmasqBin locates the dnsmasq binary to register with launchd.
// MACBLOCK_DNSMASQ_BIN is not trusted across a privilege escalation
// boundary: it is only honored when this process was not re-exec'd under
// an elevator.
func resolveDnsmasqBin() (string, error) {
	if !install.AlreadyEscalated() {
		if v := os.Getenv("MACBLOCK_DNSMASQ_BIN"); v != "" {
			return v, nil
		}
	}
	for _, candidate := range []string{"/usr/local/sbin/dnsmasq", "/opt/homebrew/sbin/dnsmasq"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New(errors.KindPlatform, "dnsmasq not found; install it first (brew install dnsmasq)")
}
