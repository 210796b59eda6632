// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"context"
	"os"
	"time"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/logging"
)

const dirMode = 0o755
const serviceStartTimeout = 10 * time.Second

// Options carries the `install`/`uninstall` command flags.
type Options struct {
	Force      bool
	SkipUpdate bool
}

// Install runs the full install sequence: preflight, dedicated user,
// directories, static dnsmasq config, launchd manifests, initial
// reconcile kick. It must be called as root; callers check RequireRoot
// and RequireMacOS first.
func Install(ctx context.Context, binPath, dnsmasqBin string, opts Options) error {
	log := logging.New("install")

	if blocker, err := CheckPort53(ctx); err != nil {
		log.Warn("preflight port 53 check failed, continuing", "err", err)
	} else if blocker != nil {
		return errors.Errorf(errors.KindConflict,
			"port 53 already bound by %s (pid %d); stop it first", blocker.Command, blocker.PID)
	}

	if err := EnsureDedicatedUser(ctx); err != nil {
		return err
	}

	for _, dir := range []string{ConfigDir(), RunDir(), LogDir()} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return errors.Wrapf(err, errors.KindPrivilege, "create %s", dir)
		}
		if err := os.Chmod(dir, dirMode); err != nil {
			return errors.Wrapf(err, errors.KindPrivilege, "chmod %s", dir)
		}
	}

	if err := WriteDnsmasqConf(); err != nil {
		return err
	}

	if err := WritePlists(binPath, dnsmasqBin); err != nil {
		return err
	}

	if err := LoadService(ctx, ResolverPlistPath()); err != nil {
		return err
	}
	if err := WaitRunning(ctx, ResolverLabel, serviceStartTimeout); err != nil {
		return err
	}

	if err := LoadService(ctx, DaemonPlistPath()); err != nil {
		return err
	}
	if err := WaitRunning(ctx, DaemonLabel, serviceStartTimeout); err != nil {
		return err
	}

	log.Info("install complete", "skip_update", opts.SkipUpdate)
	return nil
}

// UninstallResult reports what survived a best-effort uninstall so the
// command can print a summary of remaining services and files.
type UninstallResult struct {
	RestoreFailures map[string]error
	RemainingFiles  []string
	UserRemoved     bool
}

// Uninstall runs the teardown sequence: restore DNS, unload services,
// remove files, optionally remove the dedicated user under --force.
// restore runs first, before anything is removed from disk; it is
// best-effort and its failures are reported, not fatal.
func Uninstall(ctx context.Context, restore func(context.Context) map[string]error, opts Options) (*UninstallResult, error) {
	log := logging.New("install")
	result := &UninstallResult{RestoreFailures: map[string]error{}}

	if restore != nil {
		result.RestoreFailures = restore(ctx)
	}

	if err := UnloadService(ctx, DaemonPlistPath()); err != nil {
		log.Warn("unload daemon service failed", "err", err)
		if !opts.Force {
			return result, err
		}
	}
	if err := UnloadService(ctx, ResolverPlistPath()); err != nil {
		log.Warn("unload resolver service failed", "err", err)
		if !opts.Force {
			return result, err
		}
	}

	files := []string{
		DaemonPlistPath(), ResolverPlistPath(),
		DnsmasqConfPath(), UpstreamConfPath(), BlocklistRawPath(), BlocklistConfPath(),
		DaemonPIDPath(), DaemonReadyPath(), DaemonLastApplyPath(), DnsmasqPIDPath(), MetricsPath(),
		StatePath(), AllowlistPath(), DenylistPath(), ExcludePath(), FallbacksPath(), DaemonHCLPath(),
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			if !opts.Force {
				return result, errors.Wrapf(err, errors.KindTransientIO, "remove %s", f)
			}
			result.RemainingFiles = append(result.RemainingFiles, f)
			log.Warn("failed to remove file during uninstall", "path", f, "err", err)
		}
	}

	if opts.Force {
		if err := RemoveDedicatedUser(ctx); err != nil {
			log.Warn("failed to remove dedicated user", "err", err)
		} else {
			result.UserRemoved = true
		}
	}

	return result, nil
}
