// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package blocklist implements the blocklist compile pipeline:
// download a hosts-format source, verify it, normalize and merge it with
// the allow/deny lists, and emit the two files dnsmasq consumes.
package blocklist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/fsatomic"
)

// FileMode is the mode both output files are written with.
const FileMode = 0o644

// DefaultSafetyFloor is the minimum domain count a named built-in source
// must produce. Built-in sources always enforce it; custom URLs may lower
// it via the daemon tuning file's custom_safety_floor knob.
const DefaultSafetyFloor = 1000

// CompileInput bundles everything Compile needs. RawSource is the
// already-downloaded and (if pinned) checksum-verified hosts-format bytes.
type CompileInput struct {
	RawSource   []byte
	Allowlist   []string
	Denylist    []string
	SafetyFloor int
}

// CompileResult is the merged domain set ready to be written to disk.
type CompileResult struct {
	Domains []string
}

// ErrBelowSafetyFloor is returned when the parsed source has fewer
// domains than the safety floor. The caller must not touch
// blocklist.conf, last_update_at, or trigger a reload.
type ErrBelowSafetyFloor struct {
	Got  int
	Want int
}

func (e *ErrBelowSafetyFloor) Error() string {
	return fmt.Sprintf("blocklist source has %d domains, below safety floor of %d", e.Got, e.Want)
}

// Compile runs the in-memory portion of the pipeline: parse, safety-floor
// check, subtract allowlist, union denylist. It does not download, verify
// checksums, write files, or trigger a reload — those are the caller's
// responsibility (the control plane) so a failed compile never touches the
// existing compiled output.
func Compile(in CompileInput) (*CompileResult, error) {
	floor := in.SafetyFloor
	if floor <= 0 {
		floor = DefaultSafetyFloor
	}

	parsed := ParseHosts(in.RawSource)
	if len(parsed) < floor {
		return nil, &ErrBelowSafetyFloor{Got: len(parsed), Want: floor}
	}

	allow := make(map[string]bool, len(in.Allowlist))
	for _, d := range in.Allowlist {
		allow[d] = true
	}

	merged := map[string]bool{}
	for _, d := range parsed {
		if !allow[d] {
			merged[d] = true
		}
	}
	for _, d := range in.Denylist {
		merged[d] = true
	}

	out := make([]string, 0, len(merged))
	for d := range merged {
		out = append(out, d)
	}
	sort.Strings(out)

	return &CompileResult{Domains: out}, nil
}

// WriteFiles atomically emits blocklist.raw (one domain per line, sorted)
// then blocklist.conf (`address=/<domain>/` NXDOMAIN rules), in that
// order, so the resolver is only ever signalled after both are in place.
func WriteFiles(rawPath, confPath string, domains []string) error {
	var raw strings.Builder
	for _, d := range domains {
		raw.WriteString(d)
		raw.WriteByte('\n')
	}
	if err := fsatomic.WriteFile(rawPath, []byte(raw.String()), FileMode); err != nil {
		return errors.Wrap(err, errors.KindTransientIO, "write blocklist.raw")
	}

	var conf strings.Builder
	for _, d := range domains {
		conf.WriteString("address=/")
		conf.WriteString(d)
		conf.WriteString("/\n")
	}
	if err := fsatomic.WriteFile(confPath, []byte(conf.String()), FileMode); err != nil {
		return errors.Wrap(err, errors.KindTransientIO, "write blocklist.conf")
	}

	return nil
}
