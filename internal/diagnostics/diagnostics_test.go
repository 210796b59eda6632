// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package diagnostics

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyicydev/macblock/internal/state"
)

func TestGatherToleratesMissingMarkers(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	s := state.Default()
	s.Enabled = true
	require.NoError(t, state.Save(statePath, s))

	r := Gather(MarkerPaths{
		StatePath:       statePath,
		DaemonPIDPath:   filepath.Join(dir, "daemon.pid"),
		ResolverPIDPath: filepath.Join(dir, "dnsmasq.pid"),
		LastApplyPath:   filepath.Join(dir, "daemon.last_apply"),
	})

	require.NoError(t, r.StateErr)
	assert.True(t, r.EffectiveOn)
	assert.False(t, r.DaemonAlive)
	assert.False(t, r.LastApplyOK)
}

func TestGatherToleratesMalformedMarkers(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	require.NoError(t, state.Save(statePath, state.Default()))

	daemonPID := filepath.Join(dir, "daemon.pid")
	require.NoError(t, os.WriteFile(daemonPID, []byte("not-a-pid\n"), 0o644))

	r := Gather(MarkerPaths{StatePath: statePath, DaemonPIDPath: daemonPID})
	require.NoError(t, r.StateErr)
	assert.Equal(t, 0, r.DaemonPID)
	assert.False(t, r.DaemonAlive)
}

func TestGatherReportsCorruptState(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte(`{"schema_version": "two"}`), 0o644))

	r := Gather(MarkerPaths{StatePath: statePath})
	assert.Error(t, r.StateErr)
}

func TestGatherDetectsLiveProcess(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	require.NoError(t, state.Save(statePath, state.Default()))

	daemonPID := filepath.Join(dir, "daemon.pid")
	require.NoError(t, os.WriteFile(daemonPID, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644))

	r := Gather(MarkerPaths{StatePath: statePath, DaemonPIDPath: daemonPID})
	assert.True(t, r.DaemonAlive)
	assert.Equal(t, os.Getpid(), r.DaemonPID)
}

func TestRenderStatusShowsOffWhenDisabled(t *testing.T) {
	r := Report{State: state.Default()}
	out := RenderStatus(r)
	assert.Contains(t, out, "mode:")
	assert.Contains(t, out, "off")
}

func TestRenderStatusReportsCorruptState(t *testing.T) {
	r := Report{StateErr: assertCorruptErr}
	out := RenderStatus(r)
	assert.Contains(t, out, "FAIL")
}

var assertCorruptErr = &corruptErr{}

type corruptErr struct{}

func (e *corruptErr) Error() string { return "state.json malformed" }
