// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/listfile"
	"github.com/spyicydev/macblock/internal/state"
)

// listKind selects which file an allow/deny command acts on.
type listKind int

const (
	allowList listKind = iota
	denyList
)

func (k listKind) path() string {
	if k == allowList {
		return install.AllowlistPath()
	}
	return install.DenylistPath()
}

func (k listKind) name() string {
	if k == allowList {
		return "allow"
	}
	return "deny"
}

// RunAllowAdd adds domain to the allowlist and recompiles the blocklist
// so the change takes effect immediately.
func RunAllowAdd(ctx context.Context, domain string) error { return runListAdd(ctx, allowList, domain) }

// RunAllowRemove removes domain from the allowlist and recompiles.
func RunAllowRemove(ctx context.Context, domain string) error {
	return runListRemove(ctx, allowList, domain)
}

// RunAllowList prints the allowlist.
func RunAllowList() error { return runListShow(allowList) }

// RunDenyAdd adds domain to the denylist and recompiles the blocklist so
// the change takes effect immediately.
func RunDenyAdd(ctx context.Context, domain string) error { return runListAdd(ctx, denyList, domain) }

// RunDenyRemove removes domain from the denylist and recompiles.
func RunDenyRemove(ctx context.Context, domain string) error {
	return runListRemove(ctx, denyList, domain)
}

// RunDenyList prints the denylist.
func RunDenyList() error { return runListShow(denyList) }

func runListAdd(ctx context.Context, kind listKind, domain string) error {
	return withStateLock(func() error {
		norm, added, err := listfile.Add(kind.path(), domain)
		if err != nil {
			return errors.Wrapf(err, errors.KindUser, "add to %s list", kind.name())
		}
		if !added {
			Printer.Printf("%s already in %s list.\n", norm, kind.name())
			return nil
		}
		Printer.Printf("added %s to %s list.\n", norm, kind.name())
		return recompileAfterListChange(ctx, kind)
	})
}

func runListRemove(ctx context.Context, kind listKind, domain string) error {
	return withStateLock(func() error {
		removed, err := listfile.Remove(kind.path(), domain)
		if err != nil {
			return errors.Wrapf(err, errors.KindUser, "remove from %s list", kind.name())
		}
		if !removed {
			Printer.Printf("%s not in %s list.\n", domain, kind.name())
			return nil
		}
		Printer.Printf("removed %s from %s list.\n", domain, kind.name())
		return recompileAfterListChange(ctx, kind)
	})
}

// recompileAfterListChange reruns the compile pipeline against the
// configured source so a list mutation is reflected in what the resolver
// serves, then kicks the daemon. The list file itself is already written
// by the time this runs; a failed recompile reports that the change is
// recorded but not yet applied.
func recompileAfterListChange(ctx context.Context, kind listKind) error {
	s, err := state.Load(install.StatePath())
	if err != nil {
		return err
	}

	count, deferred, err := compileAndApply(ctx, s, s.Source)
	if err != nil {
		return errors.Wrapf(err, errors.GetKind(err),
			"%s list updated, but recompiling the blocklist failed; run 'macblockctl update' to apply", kind.name())
	}

	if err := notifyDaemon(); err != nil {
		return err
	}

	if deferred {
		Printer.Printf("recompiled blocklist: %d domains; resolver not running, reload deferred.\n", count)
	} else {
		Printer.Printf("recompiled blocklist: %d domains.\n", count)
	}
	return nil
}

func runListShow(kind listKind) error {
	domains, warnings, err := listfile.Read(kind.path())
	if err != nil {
		return errors.Wrapf(err, errors.KindUser, "read %s list", kind.name())
	}
	for _, w := range warnings {
		Printer.Println(w.String())
	}
	for _, d := range domains {
		Printer.Println(d)
	}
	return nil
}
