// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"

	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/state"
	"github.com/spyicydev/macblock/internal/sysdns"
)

// restoreAllBackups restores every service recorded in state.dns_backup
// and best-effort saves the resulting (now-empty, on full success) state,
// used by RunUninstall before anything is removed from disk.
func restoreAllBackups(ctx context.Context) map[string]error {
	s, err := state.Load(install.StatePath())
	if err != nil {
		return map[string]error{"state.json": err}
	}

	controller := sysdns.New()
	result := sysdns.Disable(ctx, controller, s.DNSBackup)

	if saveErr := state.Save(install.StatePath(), s); saveErr != nil {
		result.Failures["state.json"] = saveErr
	}
	return result.Failures
}
