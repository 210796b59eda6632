// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/listfile"
	"github.com/spyicydev/macblock/internal/state"
)

// setupCompileEnv points the config/run dirs at a temp directory, serves
// hosts as the blocklist source from a local HTTP server, and lowers the
// custom-URL safety floor so the compile pipeline runs end to end without
// the network or a real dnsmasq (the reload is deferred: no PID file).
func setupCompileEnv(t *testing.T, hosts string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MACBLOCK_CONFIG_DIR", dir)
	t.Setenv("MACBLOCK_RUN_DIR", dir)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, hosts)
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, os.WriteFile(install.DaemonHCLPath(), []byte("custom_safety_floor = 1\n"), 0o644))

	s := state.Default()
	s.Source = srv.URL
	require.NoError(t, state.Save(install.StatePath(), s))
}

func TestRunAllowAddRecompilesAndRemoveRestores(t *testing.T) {
	setupCompileEnv(t, "0.0.0.0 ads.example.com\n0.0.0.0 keep.example.com\n")
	ctx := context.Background()

	require.NoError(t, RunAllowAdd(ctx, "ads.example.com"))

	domains, _, err := listfile.Read(install.AllowlistPath())
	require.NoError(t, err)
	assert.Contains(t, domains, "ads.example.com")

	raw, err := os.ReadFile(install.BlocklistRawPath())
	require.NoError(t, err)
	assert.Equal(t, "keep.example.com\n", string(raw))

	conf, err := os.ReadFile(install.BlocklistConfPath())
	require.NoError(t, err)
	assert.NotContains(t, string(conf), "ads.example.com")

	require.NoError(t, RunAllowRemove(ctx, "ads.example.com"))

	raw, err = os.ReadFile(install.BlocklistRawPath())
	require.NoError(t, err)
	assert.Equal(t, "ads.example.com\nkeep.example.com\n", string(raw))
}

func TestRunDenyAddTakesEffectImmediately(t *testing.T) {
	setupCompileEnv(t, "0.0.0.0 ads.example.com\n")
	ctx := context.Background()

	require.NoError(t, RunDenyAdd(ctx, "extra.example.net"))

	raw, err := os.ReadFile(install.BlocklistRawPath())
	require.NoError(t, err)
	assert.Equal(t, "ads.example.com\nextra.example.net\n", string(raw))

	conf, err := os.ReadFile(install.BlocklistConfPath())
	require.NoError(t, err)
	assert.Contains(t, string(conf), "address=/extra.example.net/\n")
}

func TestRunListAddNoopSkipsRecompile(t *testing.T) {
	setupCompileEnv(t, "0.0.0.0 ads.example.com\n")
	ctx := context.Background()

	require.NoError(t, RunDenyAdd(ctx, "extra.example.net"))
	require.NoError(t, os.Remove(install.BlocklistRawPath()))

	// Re-adding the same domain changes nothing, so no compile runs and
	// the removed output file stays absent.
	require.NoError(t, RunDenyAdd(ctx, "extra.example.net"))
	_, err := os.Stat(install.BlocklistRawPath())
	assert.True(t, os.IsNotExist(err))
}

func TestRunUpdatePersistsLastUpdateOnDeferredReload(t *testing.T) {
	setupCompileEnv(t, "0.0.0.0 ads.example.com\n")

	require.NoError(t, RunUpdate(context.Background(), ""))

	s, err := state.Load(install.StatePath())
	require.NoError(t, err)
	assert.NotNil(t, s.LastUpdateAt)

	conf, err := os.ReadFile(install.BlocklistConfPath())
	require.NoError(t, err)
	assert.Equal(t, "address=/ads.example.com/\n", string(conf))
}
