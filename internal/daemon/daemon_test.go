// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package daemon

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyicydev/macblock/internal/resolverctl"
	"github.com/spyicydev/macblock/internal/state"
)

func init() {
	signal.Ignore(syscall.SIGHUP)
}

// fakeDNS is an in-memory sysdns.Reader: services start with a fixed
// backup and Set* calls just record the last applied value, so reconcile
// ordering can be asserted without shelling out to networksetup.
type fakeDNS struct {
	backups map[string]state.BackupEntry
	current map[string][]string
	fail    map[string]bool
}

func newFakeDNS() *fakeDNS {
	return &fakeDNS{
		backups: map[string]state.BackupEntry{},
		current: map[string][]string{},
		fail:    map[string]bool{},
	}
}

func (f *fakeDNS) Read(_ context.Context, service string) (state.BackupEntry, error) {
	if b, ok := f.backups[service]; ok {
		return b, nil
	}
	return state.Empty, nil
}

func (f *fakeDNS) SetLoopback(_ context.Context, service string) error {
	if f.fail[service] {
		return assertErr
	}
	f.current[service] = []string{"127.0.0.1"}
	return nil
}

func (f *fakeDNS) Restore(_ context.Context, service string, backup state.BackupEntry) error {
	if f.fail[service] {
		return assertErr
	}
	f.current[service] = backup.IPs()
	return nil
}

var assertErr = &fakeError{"simulated networksetup failure"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }

func newTestDaemon(t *testing.T, dns *fakeDNS) (*Daemon, Paths) {
	t.Helper()
	dir := t.TempDir()
	paths := Paths{
		StatePath:        filepath.Join(dir, "state.json"),
		ExcludePath:      filepath.Join(dir, "dns.exclude_services"),
		FallbacksPath:    filepath.Join(dir, "upstream.fallbacks"),
		UpstreamConfPath: filepath.Join(dir, "upstream.conf"),
		PIDPath:          filepath.Join(dir, "daemon.pid"),
		ReadyPath:        filepath.Join(dir, "daemon.ready"),
		LastApplyPath:    filepath.Join(dir, "daemon.last_apply"),
		ResolverPIDPath:  filepath.Join(dir, "dnsmasq.pid"),
	}
	require.NoError(t, os.WriteFile(paths.ResolverPIDPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644))

	resolv := resolverctl.New(paths.ResolverPIDPath, time.Millisecond, nil)
	d := New(paths, Tuning{ReconcileTick: time.Hour, NetworkReadyTimeout: time.Millisecond}, dns, resolv)
	return d, paths
}

func TestReconcileOnceEnablesNewBackups(t *testing.T) {
	dns := newFakeDNS()
	d, paths := newTestDaemon(t, dns)

	s := state.Default()
	s.Enabled = true
	s.ManagedServices = []string{"Wi-Fi"}
	require.NoError(t, state.Save(paths.StatePath, s))

	dns.backups["Wi-Fi"] = state.NewBackupEntry([]string{"1.1.1.1"})

	outcome := d.reconcileOnce(context.Background(), d.log)
	require.NoError(t, outcome.err)

	reloaded, err := state.Load(paths.StatePath)
	require.NoError(t, err)
	assert.Contains(t, reloaded.DNSBackup, "Wi-Fi")
}

func TestReconcileOnceDisablesRestoresBackups(t *testing.T) {
	dns := newFakeDNS()
	d, paths := newTestDaemon(t, dns)

	s := state.Default()
	s.Enabled = false
	s.DNSBackup["Wi-Fi"] = state.NewBackupEntry([]string{"8.8.8.8"})
	require.NoError(t, state.Save(paths.StatePath, s))

	outcome := d.reconcileOnce(context.Background(), d.log)
	require.NoError(t, outcome.err)

	assert.Equal(t, []string{"8.8.8.8"}, dns.current["Wi-Fi"])

	reloaded, err := state.Load(paths.StatePath)
	require.NoError(t, err)
	assert.NotContains(t, reloaded.DNSBackup, "Wi-Fi")
}

func TestReconcileOnceSurfacesCorruptState(t *testing.T) {
	dns := newFakeDNS()
	d, paths := newTestDaemon(t, dns)
	require.NoError(t, os.WriteFile(paths.StatePath, []byte(`{"enabled": true, "schema_version": "two"}`), 0o644))

	outcome := d.reconcileOnce(context.Background(), d.log)
	require.Error(t, outcome.err)
}

func TestForgetUnmanagedSplitsBackups(t *testing.T) {
	backups := map[string]state.BackupEntry{
		"Wi-Fi":    state.NewBackupEntry([]string{"1.1.1.1"}),
		"Ethernet": state.NewBackupEntry([]string{"2.2.2.2"}),
	}
	forgotten := forgetUnmanaged(backups, []string{"Wi-Fi"})

	assert.Contains(t, backups, "Wi-Fi")
	assert.NotContains(t, backups, "Ethernet")
	assert.Contains(t, forgotten, "Ethernet")
}

func TestAtomicWriteMarkerFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.last_apply")
	require.NoError(t, atomicWriteMarker(path, 1700000000))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1700000000\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode())
}

func TestNetworkChangeSourcesIncludesStateDir(t *testing.T) {
	paths := Paths{StatePath: "/usr/local/etc/macblock/state.json"}
	sources := networkChangeSources(paths)
	assert.Contains(t, sources, "/etc/resolv.conf")
	assert.Contains(t, sources, "/usr/local/etc/macblock")
}
