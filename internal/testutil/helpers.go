// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package testutil

import (
	"os"
	"testing"
)

// RequireVM skips the test if the MACBLOCK_VM_TEST environment variable is
// not set. Tests that touch the real host (networksetup, scutil, launchd)
// only run in a dedicated macOS test VM, never on a developer machine whose
// DNS they would rewrite.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("MACBLOCK_VM_TEST") == "" {
		t.Skip("Skipping test: requires MACBLOCK_VM_TEST environment")
	}
}
