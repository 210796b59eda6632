// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"regexp"
	"strconv"
	"time"

	"github.com/spyicydev/macblock/internal/clock"
	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/state"
)

// durationPattern is the accepted `pause <duration>` grammar.
// time.ParseDuration has no "d" unit, so this command parses the grammar
// itself rather than delegating to it.
var durationPattern = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// ParsePauseDuration parses a `<n>(s|m|h|d)` duration into a
// time.Duration, returning a KindUser error for anything that doesn't
// match.
func ParsePauseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Errorf(errors.KindUser, "invalid duration %q: must match ^\\d+(s|m|h|d)$", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, errors.KindUser, "invalid duration %q", s)
	}
	unit := map[string]time.Duration{
		"s": time.Second,
		"m": time.Minute,
		"h": time.Hour,
		"d": 24 * time.Hour,
	}[m[2]]
	return time.Duration(n) * unit, nil
}

// RunPause sets state.paused_until = now + duration.
func RunPause(duration string) error {
	d, err := ParsePauseDuration(duration)
	if err != nil {
		return err
	}
	return withStateLock(func() error {
		s, err := state.Load(install.StatePath())
		if err != nil {
			return err
		}
		until := clock.Now().Add(d)
		s.PausedUntil = &until
		if err := state.Save(install.StatePath(), s); err != nil {
			return err
		}
		if err := notifyDaemon(); err != nil {
			return err
		}
		Printer.Printf("macblock paused until %s.\n", until.Format(time.RFC3339))
		return nil
	})
}

// RunResume clears state.paused_until.
func RunResume() error {
	return withStateLock(func() error {
		s, err := state.Load(install.StatePath())
		if err != nil {
			return err
		}
		s.PausedUntil = nil
		if err := state.Save(install.StatePath(), s); err != nil {
			return err
		}
		if err := notifyDaemon(); err != nil {
			return err
		}
		Printer.Println("macblock resumed.")
		return nil
	})
}
