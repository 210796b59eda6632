// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/state"
)

// RunEnable sets state.enabled = true and clears any pause, then notifies
// the daemon.
func RunEnable() error {
	return withStateLock(func() error {
		s, err := state.Load(install.StatePath())
		if err != nil {
			return err
		}
		s.Enabled = true
		s.PausedUntil = nil
		if err := state.Save(install.StatePath(), s); err != nil {
			return err
		}
		if err := notifyDaemon(); err != nil {
			return err
		}
		Printer.Println("macblock enabled.")
		return nil
	})
}

// RunDisable sets state.enabled = false and clears any pause, then
// notifies the daemon.
func RunDisable() error {
	return withStateLock(func() error {
		s, err := state.Load(install.StatePath())
		if err != nil {
			return err
		}
		s.Enabled = false
		s.PausedUntil = nil
		if err := state.Save(install.StatePath(), s); err != nil {
			return err
		}
		if err := notifyDaemon(); err != nil {
			return err
		}
		Printer.Println("macblock disabled.")
		return nil
	})
}
