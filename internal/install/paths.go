// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package install lays down and tears down macblock's privileged
// footprint: the dedicated resolver user, root-owned directories, the
// dnsmasq static config, and the two launchd manifests.
package install

import (
	"os"
	"path/filepath"
)

// Canonical absolute paths. Overridable by
// environment variables so tests and --prefix-style local runs never touch
// the real system paths.
var (
	DefaultConfigDir = "/usr/local/etc/macblock"
	DefaultRunDir    = "/usr/local/var/run/macblock"
	DefaultLogDir    = "/usr/local/var/log/macblock"
	DefaultLaunchDir = "/Library/LaunchDaemons"
)

// DedicatedUser and DedicatedGroup are the unprivileged identity the
// resolver process runs as.
const (
	DedicatedUser  = "_macblock"
	DedicatedGroup = "_macblock"
)

// Launchd service labels; the plist file names derive from these.
const (
	DaemonLabel   = "com.spyicydev.macblock.daemon"
	ResolverLabel = "com.spyicydev.macblock.dnsmasq"
)

// File names within their owning directory. Other tooling knows these
// names, so they are fixed.
const (
	StateFileName          = "state.json"
	AllowlistFileName      = "whitelist.txt"
	DenylistFileName       = "blacklist.txt"
	ExcludeServicesFile    = "dns.exclude_services"
	FallbacksFileName      = "upstream.fallbacks"
	DaemonHCLFileName      = "daemon.hcl"
	UpstreamConfFileName   = "upstream.conf"
	BlocklistRawFileName   = "blocklist.raw"
	BlocklistConfFileName  = "blocklist.conf"
	DaemonPIDFileName      = "daemon.pid"
	DaemonReadyFileName    = "daemon.ready"
	DaemonLastApplyFile    = "daemon.last_apply"
	DnsmasqConfFileName    = "dnsmasq.conf"
	MetricsFileName        = "metrics.prom"
	DnsmasqPIDFileName     = "dnsmasq.pid"
)

// ConfigDir returns the configuration directory, honoring
// MACBLOCK_CONFIG_DIR for tests and non-standard installs.
func ConfigDir() string {
	if v := os.Getenv("MACBLOCK_CONFIG_DIR"); v != "" {
		return v
	}
	return DefaultConfigDir
}

// RunDir returns the runtime directory for PID/ready/marker files and the
// generated dnsmasq config.
func RunDir() string {
	if v := os.Getenv("MACBLOCK_RUN_DIR"); v != "" {
		return v
	}
	return DefaultRunDir
}

// LogDir returns the log directory.
func LogDir() string {
	if v := os.Getenv("MACBLOCK_LOG_DIR"); v != "" {
		return v
	}
	return DefaultLogDir
}

// LaunchDir returns the directory launchd manifests are installed into.
func LaunchDir() string {
	if v := os.Getenv("MACBLOCK_LAUNCH_DIR"); v != "" {
		return v
	}
	return DefaultLaunchDir
}

func StatePath() string { return filepath.Join(ConfigDir(), StateFileName) }
func AllowlistPath() string { return filepath.Join(ConfigDir(), AllowlistFileName) }
func DenylistPath() string { return filepath.Join(ConfigDir(), DenylistFileName) }
func ExcludePath() string { return filepath.Join(ConfigDir(), ExcludeServicesFile) }
func FallbacksPath() string { return filepath.Join(ConfigDir(), FallbacksFileName) }
func DaemonHCLPath() string { return filepath.Join(ConfigDir(), DaemonHCLFileName) }
func UpstreamConfPath() string { return filepath.Join(RunDir(), UpstreamConfFileName) }
func BlocklistRawPath() string { return filepath.Join(RunDir(), BlocklistRawFileName) }
func BlocklistConfPath() string { return filepath.Join(RunDir(), BlocklistConfFileName) }
func DaemonPIDPath() string { return filepath.Join(RunDir(), DaemonPIDFileName) }
func DaemonReadyPath() string { return filepath.Join(RunDir(), DaemonReadyFileName) }
func DaemonLastApplyPath() string { return filepath.Join(RunDir(), DaemonLastApplyFile) }
func DnsmasqConfPath() string { return filepath.Join(RunDir(), DnsmasqConfFileName) }
func MetricsPath() string { return filepath.Join(RunDir(), MetricsFileName) }
func DnsmasqPIDPath() string { return filepath.Join(RunDir(), DnsmasqPIDFileName) }
func DaemonLogPath() string { return filepath.Join(LogDir(), "macblockd.log") }
func ResolverLogPath() string { return filepath.Join(LogDir(), "dnsmasq.log") }

func DaemonPlistPath() string {
	return filepath.Join(LaunchDir(), DaemonLabel+".plist")
}

func ResolverPlistPath() string {
	return filepath.Join(LaunchDir(), ResolverLabel+".plist")
}
