// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"os"
	"runtime"

	"github.com/spyicydev/macblock/internal/errors"
)

// RequireRoot returns a KindPrivilege error if the process isn't running
// as root.
func RequireRoot() error {
	if os.Geteuid() != 0 {
		return errors.New(errors.KindPrivilege, "this command must be run as root")
	}
	return nil
}

// RequireMacOS returns a KindPlatform error on any OS other than macOS:
// this whole control plane assumes networksetup/scutil/launchd exist.
func RequireMacOS() error {
	if runtime.GOOS != "darwin" {
		return errors.Errorf(errors.KindPlatform, "macblock requires macOS, found %s", runtime.GOOS)
	}
	return nil
}

// escalationAllowlist is the minimal environment passed across a
// self-reexec under a privilege elevator: terminal/locale variables plus
// the recursion marker, nothing that affects binary discovery like PATH
// or MACBLOCK_*_BIN.
var escalationAllowlist = []string{"TERM", "LANG", "LC_ALL", "LC_CTYPE"}

// EscalationMarker is set in the child's environment to detect and refuse
// recursive self-reexec.
const EscalationMarker = "MACBLOCK_ESCALATED"

// EscalationEnv builds the minimal environment for a re-exec under a
// privilege elevator (e.g. `sudo`), deliberately dropping everything not
// on escalationAllowlist so an attacker-controlled MACBLOCK_BIN or
// MACBLOCK_DNSMASQ_BIN inherited from the calling shell can never redirect
// which binary a privileged child runs.
func EscalationEnv() []string {
	env := []string{EscalationMarker + "=1"}
	for _, k := range escalationAllowlist {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}
	return env
}

// AlreadyEscalated reports whether this process is itself the re-exec'd
// child, so the re-exec path never recurses.
func AlreadyEscalated() bool {
	return os.Getenv(EscalationMarker) != ""
}
