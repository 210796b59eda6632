// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"github.com/spyicydev/macblock/internal/blocklist"
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/state"
)

// RunSourcesList prints the built-in catalog, marking with '*' the entry
// that is the currently selected source. A custom-URL source matches no
// entry and is not printed.
func RunSourcesList() error {
	catalog, err := blocklist.LoadCatalog()
	if err != nil {
		return err
	}
	s, err := state.Load(install.StatePath())
	if err != nil {
		return err
	}
	for _, src := range catalog {
		marker := "  "
		if src.Name == s.Source {
			marker = "* "
		}
		Printer.Printf("%s%s (%s)\n", marker, src.Name, src.URL)
	}
	return nil
}

// RunSourcesSet mutates state.source only; it does not compile or apply
// anything. An explicit `update` is required afterward.
func RunSourcesSet(name string) error {
	return withStateLock(func() error {
		s, err := state.Load(install.StatePath())
		if err != nil {
			return err
		}
		s.Source = name
		if err := state.Save(install.StatePath(), s); err != nil {
			return err
		}
		Printer.Printf("source set to %s. Run 'update' to apply.\n", name)
		return nil
	})
}
