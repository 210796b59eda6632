// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the optional daemon tuning file (daemon.hcl). It
// carries only knobs that are legitimately environment-specific and not
// part of desired state: state.json owns desired state, this file owns
// timing and threshold tuning.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/spyicydev/macblock/internal/errors"
)

// Daemon holds the daemon's tunable knobs, decoded from HCL. Zero value
// (no file present) means "use the documented defaults" — see Defaults().
type Daemon struct {
	ReconcileTick           string `hcl:"reconcile_tick,optional"`
	NetworkReadyTimeout     string `hcl:"network_ready_timeout,optional"`
	ConsecutiveFailureLimit int    `hcl:"consecutive_failure_limit,optional"`
	DownloadTimeout         string `hcl:"download_timeout,optional"`
	CustomSafetyFloor       int    `hcl:"custom_safety_floor,optional"`
}

// Defaults returns the built-in tuning values used when daemon.hcl is
// absent or silent on a knob.
func Defaults() Daemon {
	return Daemon{
		ReconcileTick:           "30s",
		NetworkReadyTimeout:     "15s",
		ConsecutiveFailureLimit: 5,
		DownloadTimeout:         "20s",
		CustomSafetyFloor:       0, // 0 means "not configured"; built-ins always use their own floor.
	}
}

// LoadDaemon reads path and merges it over Defaults(). A missing file is
// not an error: the defaults are returned unchanged.
func LoadDaemon(path string) (Daemon, error) {
	d := Defaults()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, errors.Wrapf(err, errors.KindUser, "stat %s", path)
	}

	var parsed Daemon
	if err := hclsimple.DecodeFile(path, nil, &parsed); err != nil {
		return d, errors.Wrapf(err, errors.KindUser, "parse %s", path)
	}

	if parsed.ReconcileTick != "" {
		d.ReconcileTick = parsed.ReconcileTick
	}
	if parsed.NetworkReadyTimeout != "" {
		d.NetworkReadyTimeout = parsed.NetworkReadyTimeout
	}
	if parsed.ConsecutiveFailureLimit != 0 {
		d.ConsecutiveFailureLimit = parsed.ConsecutiveFailureLimit
	}
	if parsed.DownloadTimeout != "" {
		d.DownloadTimeout = parsed.DownloadTimeout
	}
	if parsed.CustomSafetyFloor != 0 {
		d.CustomSafetyFloor = parsed.CustomSafetyFloor
	}

	return d, nil
}

// ReconcileTickDuration parses ReconcileTick, falling back to the default
// on a malformed value rather than failing daemon startup over a typo.
func (d Daemon) ReconcileTickDuration() time.Duration {
	return parseDurationOr(d.ReconcileTick, 30*time.Second)
}

// NetworkReadyTimeoutDuration parses NetworkReadyTimeout with the same
// fallback behavior.
func (d Daemon) NetworkReadyTimeoutDuration() time.Duration {
	return parseDurationOr(d.NetworkReadyTimeout, 15*time.Second)
}

// DownloadTimeoutDuration parses DownloadTimeout with the same fallback
// behavior.
func (d Daemon) DownloadTimeoutDuration() time.Duration {
	return parseDurationOr(d.DownloadTimeout, 20*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return dur
}

// String renders the effective config for doctor's diagnostic output.
func (d Daemon) String() string {
	return fmt.Sprintf("reconcile_tick=%s network_ready_timeout=%s consecutive_failure_limit=%d download_timeout=%s custom_safety_floor=%d",
		d.ReconcileTick, d.NetworkReadyTimeout, d.ConsecutiveFailureLimit, d.DownloadTimeout, d.CustomSafetyFloor)
}
