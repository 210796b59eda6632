// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"fmt"

	"github.com/spyicydev/macblock/internal/diagnostics"
	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
)

func markerPaths() diagnostics.MarkerPaths {
	return diagnostics.MarkerPaths{
		StatePath:       install.StatePath(),
		DaemonPIDPath:   install.DaemonPIDPath(),
		ResolverPIDPath: install.DnsmasqPIDPath(),
		LastApplyPath:   install.DaemonLastApplyPath(),
		MetricsPath:     install.MetricsPath(),
	}
}

// RunStatus prints the daemon's current state. It is strictly read-only:
// it exits nonzero with a repair hint on corrupt state and never touches
// state, markers, or DNS.
func RunStatus() error {
	r := diagnostics.Gather(markerPaths())
	Printer.Println(diagnostics.RenderStatus(r))
	if r.StateErr != nil {
		return errors.Wrap(r.StateErr, errors.GetKind(r.StateErr), "status")
	}
	return nil
}

// RunDoctor extends RunStatus with the daemon's metrics snapshot and a
// port-53 ownership probe. Probes are read-only; a foreign listener is
// reported, never acted on.
func RunDoctor() error {
	r := diagnostics.Gather(markerPaths())
	if blocker, err := install.CheckPort53(context.Background()); err == nil && blocker != nil {
		r.PortBlocked = true
		r.PortBlockerInfo = fmt.Sprintf("held by %s (pid %d), not our resolver", blocker.Command, blocker.PID)
	}
	out, err := diagnostics.RenderDoctor(r)
	Printer.Println(out)
	if r.StateErr != nil {
		return errors.Wrap(r.StateErr, errors.GetKind(r.StateErr), "doctor")
	}
	return err
}
