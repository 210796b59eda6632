// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package state holds the desired-state record: the single JSON file that
// drives the reconcile daemon. It is the only package that writes
// state.json; both the control-plane commands and the daemon's reconcile
// pass save through it.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spyicydev/macblock/internal/clock"
	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/fsatomic"
)

// CurrentSchemaVersion is bumped whenever the on-disk shape of State changes
// in a way callers should know about. Older files load with a warning;
// newer files load best-effort (see Load).
const CurrentSchemaVersion = 1

// FileMode is the mode state.json is always written with. Modes are
// pinned explicitly, never left to umask.
const FileMode = 0o644

// Empty is the sentinel BackupEntry value meaning "this service had no DNS
// servers configured" (DHCP defaults), distinct from an empty list.
var Empty = BackupEntry{isEmpty: true}

// BackupEntry is a tagged union: either the literal "Empty" sentinel or an
// ordered list of IPs, matching the dns_backup JSON shape.
type BackupEntry struct {
	isEmpty bool
	ips     []string
}

// NewBackupEntry wraps an ordered IP list as a non-empty backup entry.
func NewBackupEntry(ips []string) BackupEntry {
	return BackupEntry{ips: append([]string(nil), ips...)}
}

// IsEmpty reports whether this entry is the "Empty" sentinel.
func (b BackupEntry) IsEmpty() bool { return b.isEmpty }

// IPs returns the backed-up server list, or nil if IsEmpty.
func (b BackupEntry) IPs() []string { return b.ips }

// MarshalJSON renders the sentinel as the bare JSON string "Empty" and
// everything else as a JSON array of strings.
func (b BackupEntry) MarshalJSON() ([]byte, error) {
	if b.isEmpty {
		return json.Marshal("Empty")
	}
	if b.ips == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(b.ips)
}

// UnmarshalJSON accepts either the bare string "Empty" or a JSON array of
// strings.
func (b *BackupEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "Empty" {
			return fmt.Errorf("state: unrecognized backup sentinel %q", s)
		}
		*b = Empty
		return nil
	}
	var ips []string
	if err := json.Unmarshal(data, &ips); err != nil {
		return fmt.Errorf("state: backup entry neither \"Empty\" nor string array: %w", err)
	}
	*b = NewBackupEntry(ips)
	return nil
}

// State is the typed, versioned desired-state record. Default returns the
// first-run value: disabled, no backups, no managed services.
type State struct {
	SchemaVersion   int                    `json:"schema_version"`
	Enabled         bool                   `json:"enabled"`
	PausedUntil     *time.Time             `json:"paused_until"`
	Source          string                 `json:"source"`
	LastUpdateAt    *time.Time             `json:"last_update_at"`
	DNSBackup       map[string]BackupEntry `json:"dns_backup"`
	ManagedServices []string               `json:"managed_services"`
	Allowlist       []string               `json:"allowlist"`
	Denylist        []string               `json:"denylist"`

	// unknown preserves fields from newer/older schema versions verbatim
	// so they survive a load/save round-trip untouched.
	unknown map[string]json.RawMessage `json:"-"`
}

// Default returns the first-run record: created at install with defaults.
func Default() *State {
	return &State{
		SchemaVersion:   CurrentSchemaVersion,
		Source:          "stevenblack",
		DNSBackup:       map[string]BackupEntry{},
		ManagedServices: []string{},
		Allowlist:       []string{},
		Denylist:        []string{},
	}
}

// EffectiveOn reports whether blocking should be active right now: enabled
// and not within an unexpired pause window.
func (s *State) EffectiveOn() bool {
	if !s.Enabled {
		return false
	}
	if s.PausedUntil == nil {
		return true
	}
	return !clock.Now().Before(*s.PausedUntil)
}

// ClearExpiredPause clears PausedUntil if it has already passed, returning
// true if it changed anything.
func (s *State) ClearExpiredPause() bool {
	if s.PausedUntil == nil {
		return false
	}
	if clock.Now().Before(*s.PausedUntil) {
		return false
	}
	s.PausedUntil = nil
	return true
}

// sortedCopy returns a deduplicated, sorted copy of ss.
func sortedCopy(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Normalize sorts and deduplicates the set-typed fields so on-disk
// representation is deterministic.
func (s *State) Normalize() {
	s.ManagedServices = sortedCopy(s.ManagedServices)
	s.Allowlist = sortedCopy(s.Allowlist)
	s.Denylist = sortedCopy(s.Denylist)
}

// Load reads and parses the state file at path. A missing file returns the
// first-run default. Any other read/parse failure, a non-object top
// level, or a non-integer schema_version is a KindStateCorrupt error
// naming path and carrying a repair hint.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, errors.KindStateCorrupt,
			"read %s: administrator must repair or delete state.json", path)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, errors.KindStateCorrupt,
			"%s is not a well-formed JSON object: administrator must repair or delete state.json", path)
	}

	if svRaw, ok := raw["schema_version"]; ok {
		var sv int
		if err := json.Unmarshal(svRaw, &sv); err != nil {
			return nil, errors.Errorf(errors.KindStateCorrupt,
				"%s: schema_version is not an integer: administrator must repair or delete state.json", path)
		}
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, errors.KindStateCorrupt,
			"%s: administrator must repair or delete state.json", path)
	}

	if s.DNSBackup == nil {
		s.DNSBackup = map[string]BackupEntry{}
	}

	known := map[string]bool{
		"schema_version": true, "enabled": true, "paused_until": true,
		"source": true, "last_update_at": true, "dns_backup": true,
		"managed_services": true, "allowlist": true, "denylist": true,
	}
	unknown := map[string]json.RawMessage{}
	for k, v := range raw {
		if !known[k] {
			unknown[k] = v
		}
	}
	s.unknown = unknown

	if s.SchemaVersion > CurrentSchemaVersion {
		// Warn, best-effort: fields this build knows about were already
		// decoded above; unrecognized ones ride along in s.unknown.
		fmt.Fprintf(os.Stderr, "warn: %s has schema_version %d, newer than %d understood by this build; reading known fields only\n",
			path, s.SchemaVersion, CurrentSchemaVersion)
	} else if s.SchemaVersion < CurrentSchemaVersion {
		fmt.Fprintf(os.Stderr, "warn: %s has schema_version %d, older than %d used by this build\n",
			path, s.SchemaVersion, CurrentSchemaVersion)
	}

	return &s, nil
}

// Save serializes s deterministically and writes it atomically with
// FileMode, preserving any unknown fields captured at Load time.
func Save(path string, s *State) error {
	s.Normalize()

	out := map[string]json.RawMessage{}
	for k, v := range s.unknown {
		out[k] = v
	}

	type alias State
	b, err := json.Marshal((*alias)(s))
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshal state")
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(b, &known); err != nil {
		return errors.Wrap(err, errors.KindInternal, "re-decode state for merge")
	}
	for k, v := range known {
		out[k] = v
	}

	data, err := json.MarshalIndent(sortedRawMessageMap(out), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshal merged state")
	}
	data = append(data, '\n')

	if err := fsatomic.WriteFile(path, data, FileMode); err != nil {
		return errors.Wrap(err, errors.KindTransientIO, "write state.json")
	}
	return nil
}

// sortedRawMessageMap is a json.Marshaler that emits map keys in sorted
// order; encoding/json already sorts string-keyed maps, but this makes the
// guarantee explicit and keeps the round-trip independent of map field
// marshaling order changes upstream.
type sortedRawMessageMap map[string]json.RawMessage

func (m sortedRawMessageMap) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, m[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}
