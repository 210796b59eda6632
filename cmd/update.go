// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"

	"github.com/spyicydev/macblock/internal/blocklist"
	"github.com/spyicydev/macblock/internal/clock"
	"github.com/spyicydev/macblock/internal/config"
	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/listfile"
	"github.com/spyicydev/macblock/internal/resolverctl"
	"github.com/spyicydev/macblock/internal/state"
)

// RunUpdate runs the blocklist compile pipeline: download, verify,
// compile, write, reload. When source is empty, the currently configured
// state.source is reused. A safety-floor failure leaves blocklist.conf,
// state.last_update_at, and the resolver untouched. The plain success
// line is only printed when the resolver actually picked up the new set;
// a resolver that wasn't running gets a "reload deferred" notice instead.
func RunUpdate(ctx context.Context, source string) error {
	return withStateLock(func() error {
		s, err := state.Load(install.StatePath())
		if err != nil {
			return err
		}
		if source == "" {
			source = s.Source
		}

		count, deferred, err := compileAndApply(ctx, s, source)
		if err != nil {
			return err
		}

		if deferred {
			Printer.Printf("compiled blocklist from %s: %d domains; resolver not running, reload deferred.\n", source, count)
		} else {
			Printer.Printf("updated blocklist from %s: %d domains.\n", source, count)
		}
		return nil
	})
}

// compileAndApply is the shared pipeline behind `update`, the allow/deny
// mutations, and the post-install compile: download source, verify a
// pinned checksum, merge with the allow/deny lists, write the compiled
// files, persist source and last_update_at, then signal the resolver.
// Callers must hold the state lock. deferred reports that the compiled
// set is on disk but the resolver wasn't running to pick it up; the next
// reload applies it.
func compileAndApply(ctx context.Context, s *state.State, source string) (count int, deferred bool, err error) {
	cfg, err := config.LoadDaemon(install.DaemonHCLPath())
	if err != nil {
		return 0, false, err
	}

	url, floor, err := resolveSource(source, cfg)
	if err != nil {
		return 0, false, err
	}

	raw, err := blocklist.Download(ctx, url, cfg.DownloadTimeoutDuration())
	if err != nil {
		return 0, false, err
	}

	if builtin, ok, lookupErr := blocklist.Lookup(source); lookupErr == nil && ok && builtin.SHA256 != "" {
		if err := blocklist.VerifySHA256(raw, builtin.SHA256); err != nil {
			return 0, false, err
		}
	}

	allow, _, err := listfile.Read(install.AllowlistPath())
	if err != nil {
		return 0, false, err
	}
	deny, _, err := listfile.Read(install.DenylistPath())
	if err != nil {
		return 0, false, err
	}

	result, err := blocklist.Compile(blocklist.CompileInput{
		RawSource:   raw,
		Allowlist:   allow,
		Denylist:    deny,
		SafetyFloor: floor,
	})
	if err != nil {
		return 0, false, err
	}

	if err := blocklist.WriteFiles(install.BlocklistRawPath(), install.BlocklistConfPath(), result.Domains); err != nil {
		return 0, false, err
	}

	s.Source = source
	now := clock.Now()
	s.LastUpdateAt = &now
	if err := state.Save(install.StatePath(), s); err != nil {
		return 0, false, err
	}

	resolv := resolverctl.New(install.DnsmasqPIDPath(), 0, nil)
	if err := resolv.Reload(ctx, ""); err != nil {
		var retryable *resolverctl.ErrRetryable
		if !errors.As(err, &retryable) {
			return 0, false, err
		}
		deferred = true
	}

	return len(result.Domains), deferred, nil
}

// resolveSource maps a named catalog entry or custom URL to its download
// URL and the safety floor that applies to it: built-ins always enforce
// DefaultSafetyFloor; custom URLs may use the tuning file's lower floor.
func resolveSource(source string, cfg config.Daemon) (url string, floor int, err error) {
	builtin, ok, err := blocklist.Lookup(source)
	if err != nil {
		return "", 0, err
	}
	if ok {
		return builtin.URL, blocklist.DefaultSafetyFloor, nil
	}
	floor = blocklist.DefaultSafetyFloor
	if cfg.CustomSafetyFloor > 0 {
		floor = cfg.CustomSafetyFloor
	}
	return source, floor, nil
}
