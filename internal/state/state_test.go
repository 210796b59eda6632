// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyicydev/macblock/internal/clock"
	"github.com/spyicydev/macblock/internal/errors"
)

func TestLoadMissingReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.Equal(t, CurrentSchemaVersion, s.SchemaVersion)
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s := Default()
	s.Enabled = true
	s.Source = "custom"
	s.ManagedServices = []string{"Wi-Fi", "Ethernet"}
	s.Allowlist = []string{"example.com"}
	s.Denylist = []string{"ads.example.net"}
	s.DNSBackup = map[string]BackupEntry{
		"Wi-Fi":    NewBackupEntry([]string{"1.1.1.1", "8.8.8.8"}),
		"Ethernet": Empty,
	}

	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, s.Enabled, loaded.Enabled)
	assert.Equal(t, s.Source, loaded.Source)
	assert.Equal(t, []string{"Ethernet", "Wi-Fi"}, loaded.ManagedServices)
	assert.Equal(t, s.Allowlist, loaded.Allowlist)
	assert.Equal(t, s.Denylist, loaded.Denylist)
	assert.True(t, loaded.DNSBackup["Ethernet"].IsEmpty())
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, loaded.DNSBackup["Wi-Fi"].IPs())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), info.Mode())
}

func TestLoadCorruptSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"enabled":true,"schema_version":"two"}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.KindStateCorrupt, errors.GetKind(err))
	assert.Contains(t, err.Error(), "state.json")
}

func TestLoadNonObjectTopLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2,3]`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.KindStateCorrupt, errors.GetKind(err))
}

func TestUnknownFieldsPreserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"schema_version": 1,
		"enabled": false,
		"paused_until": null,
		"source": "stevenblack",
		"last_update_at": null,
		"dns_backup": {},
		"managed_services": [],
		"allowlist": [],
		"denylist": [],
		"future_field": {"nested": true}
	}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, Save(path, s))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"future_field"`)
}

func TestEffectiveOnPauseExpiry(t *testing.T) {
	clock.Freeze(time.Unix(1000, 0))
	defer clock.Unfreeze()

	s := Default()
	s.Enabled = true
	future := clock.Now().Add(10 * time.Second)
	s.PausedUntil = &future

	assert.False(t, s.EffectiveOn())

	clock.Advance(11 * time.Second)
	assert.True(t, s.EffectiveOn())
	assert.True(t, s.ClearExpiredPause())
	assert.Nil(t, s.PausedUntil)
}
