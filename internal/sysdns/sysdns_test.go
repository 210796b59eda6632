// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sysdns

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyicydev/macblock/internal/state"
)

func TestParseGetDNSServersEmpty(t *testing.T) {
	got := parseGetDNSServers("There aren't any DNS Servers set on Wi-Fi.")
	assert.True(t, got.IsEmpty())
}

func TestParseGetDNSServersList(t *testing.T) {
	got := parseGetDNSServers("1.1.1.1\n8.8.8.8\n")
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, got.IPs())
}

// fakeReader is an in-memory Reader for testing Enable/Disable ordering
// without shelling out to networksetup.
type fakeReader struct {
	current map[string]state.BackupEntry
	failSet map[string]bool
	failGet map[string]bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{current: map[string]state.BackupEntry{}, failSet: map[string]bool{}, failGet: map[string]bool{}}
}

func (f *fakeReader) Read(_ context.Context, service string) (state.BackupEntry, error) {
	if f.failGet[service] {
		return state.BackupEntry{}, errors.New("boom")
	}
	if e, ok := f.current[service]; ok {
		return e, nil
	}
	return state.Empty, nil
}

func (f *fakeReader) SetLoopback(_ context.Context, service string) error {
	if f.failSet[service] {
		return errors.New("boom")
	}
	f.current[service] = state.NewBackupEntry(Loopback)
	return nil
}

func (f *fakeReader) Restore(_ context.Context, service string, backup state.BackupEntry) error {
	if f.failSet[service] {
		return errors.New("boom")
	}
	f.current[service] = backup
	return nil
}

func TestEnableCapturesBackupBeforeOverride(t *testing.T) {
	r := newFakeReader()
	r.current["Wi-Fi"] = state.NewBackupEntry([]string{"10.0.0.1"})

	backups := map[string]state.BackupEntry{}
	res := Enable(context.Background(), r, []string{"Wi-Fi"}, backups)

	assert.Empty(t, res.Failures)
	require.Contains(t, backups, "Wi-Fi")
	assert.Equal(t, []string{"10.0.0.1"}, backups["Wi-Fi"].IPs())
	assert.Equal(t, Loopback, r.current["Wi-Fi"].IPs())
}

func TestEnableSkipsCaptureWhenBackupAlreadyExists(t *testing.T) {
	r := newFakeReader()
	backups := map[string]state.BackupEntry{"Ethernet": state.Empty}

	res := Enable(context.Background(), r, []string{"Ethernet"}, backups)
	assert.Empty(t, res.Failures)
	assert.True(t, backups["Ethernet"].IsEmpty())
}

func TestEnableDoesNotOverrideWhenBackupCaptureFails(t *testing.T) {
	r := newFakeReader()
	r.failGet["Wi-Fi"] = true
	backups := map[string]state.BackupEntry{}

	res := Enable(context.Background(), r, []string{"Wi-Fi"}, backups)
	assert.Len(t, res.Failures, 1)
	assert.NotContains(t, backups, "Wi-Fi")
	assert.NotContains(t, r.current, "Wi-Fi")
}

func TestDisableRestoresAndClearsBackup(t *testing.T) {
	r := newFakeReader()
	backups := map[string]state.BackupEntry{"Wi-Fi": state.NewBackupEntry([]string{"1.1.1.1"})}

	res := Disable(context.Background(), r, backups)
	assert.Empty(t, res.Failures)
	assert.NotContains(t, backups, "Wi-Fi")
	assert.Equal(t, []string{"1.1.1.1"}, r.current["Wi-Fi"].IPs())
}

func TestDisableKeepsBackupOnFailure(t *testing.T) {
	r := newFakeReader()
	r.failSet["Wi-Fi"] = true
	backups := map[string]state.BackupEntry{"Wi-Fi": state.NewBackupEntry([]string{"1.1.1.1"})}

	res := Disable(context.Background(), r, backups)
	assert.Len(t, res.Failures, 1)
	assert.Contains(t, backups, "Wi-Fi")
}
