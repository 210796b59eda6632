// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sysdns is the system DNS controller: reads and sets
// per-service DNS servers via networksetup, and classifies the "no servers
// configured" case with the Empty sentinel distinct from an empty list.
package sysdns

import (
	"context"
	"strings"
	"time"

	"github.com/spyicydev/macblock/internal/procrun"
	"github.com/spyicydev/macblock/internal/state"
)

// Loopback is the single-member server list that represents "intercepted":
// DNS for this service is pointed at the local resolver.
var Loopback = []string{"127.0.0.1"}

const defaultTimeout = 5 * time.Second

// emptyMarker is what `networksetup -getdnsservers` prints when no DNS
// servers are configured for a service (DHCP defaults in effect).
const emptyMarker = "There aren't any DNS Servers set on"

// Reader reads and writes per-service DNS servers. *Controller is the real
// implementation; tests substitute a fake so Enable/Disable's ordering can
// be exercised without shelling out to networksetup.
type Reader interface {
	Read(ctx context.Context, service string) (state.BackupEntry, error)
	SetLoopback(ctx context.Context, service string) error
	Restore(ctx context.Context, service string, backup state.BackupEntry) error
}

// Controller wraps networksetup invocations with a per-call timeout:
// Timeout when positive, otherwise defaultTimeout. daemon.hcl has no knob
// for it; New uses the default.
type Controller struct {
	Timeout time.Duration
}

var _ Reader = (*Controller)(nil)

// New returns a Controller using the default command timeout.
func New() *Controller {
	return &Controller{Timeout: defaultTimeout}
}

// Read returns the current DNS servers configured for service, in order, or
// state.Empty if none are set.
func (c *Controller) Read(ctx context.Context, service string) (state.BackupEntry, error) {
	res, err := procrun.Run(ctx, c.timeout(), "networksetup", "-getdnsservers", service)
	if err != nil {
		return state.BackupEntry{}, err
	}
	return parseGetDNSServers(res.Stdout), nil
}

// parseGetDNSServers interprets `networksetup -getdnsservers` output.
func parseGetDNSServers(out string) state.BackupEntry {
	out = strings.TrimSpace(out)
	if out == "" || strings.HasPrefix(out, emptyMarker) {
		return state.Empty
	}
	lines := strings.Split(out, "\n")
	ips := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			ips = append(ips, l)
		}
	}
	if len(ips) == 0 {
		return state.Empty
	}
	return state.NewBackupEntry(ips)
}

// Set writes ips as the DNS servers for service. An empty ips list is
// rejected by networksetup's own Empty argument form; callers that want to
// clear DNS should call Restore with state.Empty instead.
func (c *Controller) Set(ctx context.Context, service string, ips []string) error {
	args := append([]string{"-setdnsservers", service}, ips...)
	res, err := procrun.Run(ctx, c.timeout(), "networksetup", args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &CommandError{Service: service, Stderr: res.Stderr, ExitCode: res.ExitCode}
	}
	return nil
}

// SetLoopback points service's DNS at the loopback resolver.
func (c *Controller) SetLoopback(ctx context.Context, service string) error {
	return c.Set(ctx, service, Loopback)
}

// Restore writes backup back onto service. state.Empty restores DHCP
// defaults by clearing the service's DNS servers list.
func (c *Controller) Restore(ctx context.Context, service string, backup state.BackupEntry) error {
	if backup.IsEmpty() {
		return c.Set(ctx, service, []string{"Empty"})
	}
	return c.Set(ctx, service, backup.IPs())
}

func (c *Controller) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// CommandError reports a per-service networksetup failure. It's not a
// terminal error on its own: callers accumulate these into a failures list
// and continue with the remaining services.
type CommandError struct {
	Service  string
	Stderr   string
	ExitCode int
}

func (e *CommandError) Error() string {
	return "networksetup failed for " + e.Service + ": " + e.Stderr
}

// ApplyResult reports per-service failures from an Enable/Disable pass. The
// caller (internal/daemon) aggregates this into a KindPartialFailure
// error without inventing or clearing any backup for a failed service.
type ApplyResult struct {
	Failures map[string]error
}

func newApplyResult() *ApplyResult { return &ApplyResult{Failures: map[string]error{}} }

// Enable captures a backup for every managed service that lacks one, then
// points each at the loopback resolver, strictly in that order: a service
// is never overridden before its backup exists. backups is mutated in
// place.
func Enable(ctx context.Context, r Reader, services []string, backups map[string]state.BackupEntry) *ApplyResult {
	res := newApplyResult()
	for _, svc := range services {
		if _, ok := backups[svc]; !ok {
			backup, err := r.Read(ctx, svc)
			if err != nil {
				res.Failures[svc] = err
				continue
			}
			backups[svc] = backup
		}
	}
	for _, svc := range services {
		if _, hasBackup := backups[svc]; !hasBackup {
			// Backup capture failed above; don't override without one.
			continue
		}
		if err := r.SetLoopback(ctx, svc); err != nil {
			res.Failures[svc] = err
		}
	}
	return res
}

// Disable restores every service in backups to its pre-intercept DNS, then
// clears the backup entry only on successful restore.
func Disable(ctx context.Context, r Reader, backups map[string]state.BackupEntry) *ApplyResult {
	res := newApplyResult()
	for svc, backup := range backups {
		if err := r.Restore(ctx, svc, backup); err != nil {
			res.Failures[svc] = err
			continue
		}
		delete(backups, svc)
	}
	return res
}
