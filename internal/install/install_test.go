// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLsofOutputNoListener(t *testing.T) {
	assert.Nil(t, parseLsofOutput(1, ""))
	assert.Nil(t, parseLsofOutput(0, ""))
}

func TestParseLsofOutputFindsListener(t *testing.T) {
	out := "COMMAND   PID   USER   FD   TYPE DEVICE SIZE/OFF NODE NAME\n" +
		"mDNSRespo 123   root   10u  IPv4 0x123      0t0  UDP 127.0.0.1:53\n"
	blocker := parseLsofOutput(0, out)
	require.NotNil(t, blocker)
	assert.Equal(t, 123, blocker.PID)
	assert.Equal(t, "mDNSRespo", blocker.Command)
}

func TestRenderDnsmasqConfContract(t *testing.T) {
	t.Setenv("MACBLOCK_RUN_DIR", "/tmp/macblock-run")
	conf := RenderDnsmasqConf()
	assert.Contains(t, conf, "listen-address=127.0.0.1")
	assert.Contains(t, conf, "port=53")
	assert.Contains(t, conf, "user="+DedicatedUser)
	assert.Contains(t, conf, "servers-file=/tmp/macblock-run/upstream.conf")
	assert.Contains(t, conf, "conf-file=/tmp/macblock-run/blocklist.conf")
}

func TestRenderPlistsContainLabelsAndArgs(t *testing.T) {
	daemon, err := DaemonPlist("/usr/local/bin/macblockd")
	require.NoError(t, err)
	assert.Contains(t, string(daemon), DaemonLabel)
	assert.Contains(t, string(daemon), "/usr/local/bin/macblockd")
	assert.Contains(t, string(daemon), "<key>KeepAlive</key>")

	resolver, err := ResolverPlist("/usr/local/sbin/dnsmasq")
	require.NoError(t, err)
	assert.Contains(t, string(resolver), ResolverLabel)
	assert.Contains(t, string(resolver), "/usr/local/sbin/dnsmasq")
}

func TestWritePlistsAtomic(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MACBLOCK_LAUNCH_DIR", dir)
	t.Setenv("MACBLOCK_LOG_DIR", dir)
	t.Setenv("MACBLOCK_RUN_DIR", dir)

	require.NoError(t, WritePlists("/usr/local/bin/macblockd", "/usr/local/sbin/dnsmasq"))

	_, err := os.Stat(filepath.Join(dir, DaemonLabel+".plist"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ResolverLabel+".plist"))
	require.NoError(t, err)
}

func TestPathsHonorEnvOverrides(t *testing.T) {
	t.Setenv("MACBLOCK_CONFIG_DIR", "/tmp/cfg")
	assert.Equal(t, "/tmp/cfg/state.json", StatePath())
}

func TestEscalationEnvDropsUnlistedVars(t *testing.T) {
	t.Setenv("MACBLOCK_DNSMASQ_BIN", "/evil/dnsmasq")
	t.Setenv("TERM", "xterm-256color")

	env := EscalationEnv()
	joined := ""
	for _, e := range env {
		joined += e + "\n"
	}
	assert.NotContains(t, joined, "MACBLOCK_DNSMASQ_BIN")
	assert.Contains(t, joined, "TERM=xterm-256color")
	assert.Contains(t, joined, EscalationMarker+"=1")
}
