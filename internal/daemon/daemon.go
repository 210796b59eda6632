// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package daemon implements the reconcile daemon: a
// single-threaded event loop that watches for network changes, signals,
// and timers, and brings host DNS state into agreement with state.json.
package daemon

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/spyicydev/macblock/internal/clock"
	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/fsatomic"
	"github.com/spyicydev/macblock/internal/logging"
	"github.com/spyicydev/macblock/internal/metrics"
	"github.com/spyicydev/macblock/internal/resolverconf"
	"github.com/spyicydev/macblock/internal/resolverctl"
	"github.com/spyicydev/macblock/internal/state"
	"github.com/spyicydev/macblock/internal/svcselect"
	"github.com/spyicydev/macblock/internal/sysdns"
	"github.com/spyicydev/macblock/internal/upstreams"
)

// Paths bundles the on-disk locations the daemon reads, writes, or
// watches. All are absolute; internal/install owns the canonical values.
type Paths struct {
	StatePath        string
	ExcludePath      string
	FallbacksPath    string
	UpstreamConfPath string
	BlocklistRawPath string
	PIDPath          string
	ReadyPath        string
	LastApplyPath    string
	MetricsPath      string
	ResolverPIDPath  string
}

// Tuning bundles the timing knobs internal/config's daemon.hcl supplies.
type Tuning struct {
	ReconcileTick           time.Duration
	NetworkReadyTimeout     time.Duration
	ConsecutiveFailureLimit int
}

// Daemon owns the long-lived pieces a reconcile pass needs across calls:
// the DNS controller, resolver signaller, and in-memory failure counter.
// It holds no lock across subprocess calls.
type Daemon struct {
	Paths  Paths
	Tuning Tuning
	DNS    sysdns.Reader
	Resolv *resolverctl.Controller

	log                 logging.Logger
	consecutiveFailures int
	watcher             *fsnotify.Watcher
}

// New constructs a Daemon ready to Run. dns and resolv are injected so
// tests can substitute fakes; production callers pass sysdns.New() and a
// resolverctl.Controller built from Paths.ResolverPIDPath.
func New(paths Paths, tuning Tuning, dns sysdns.Reader, resolv *resolverctl.Controller) *Daemon {
	return &Daemon{
		Paths:  paths,
		Tuning: tuning,
		DNS:    dns,
		Resolv: resolv,
		log:    logging.New("daemon"),
	}
}

// networkChangeSources are the files/directories whose writes approximate
// an OS network-change subscription: fsnotify
// has no native SCDynamicStore subscription, so the daemon watches the
// file the system resolver updates on every network change, plus its own
// state directory as a fallback in case a SIGUSR1 delivery is ever missed.
func networkChangeSources(paths Paths) []string {
	sources := []string{"/etc/resolv.conf"}
	if dir := dirOf(paths.StatePath); dir != "" {
		sources = append(sources, dir)
	}
	return sources
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// Run drives the event loop until ctx is cancelled (SIGTERM/SIGINT are
// expected to cancel ctx from cmd/macblockd's main). It writes the pid and
// ready markers on entry and removes them on clean exit. Shutdown never
// restores DNS; that is reserved for an explicit disable or uninstall.
func (d *Daemon) Run(ctx context.Context, sigusr1 <-chan os.Signal) error {
	if err := d.writePID(); err != nil {
		return err
	}
	defer d.removeMarkers()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.KindPlatform, "create fsnotify watcher")
	}
	d.watcher = watcher
	defer watcher.Close()

	for _, src := range networkChangeSources(d.Paths) {
		if err := watcher.Add(src); err != nil {
			d.log.Warn("could not watch network-change source", "path", src, "err", err)
		}
	}

	tick := time.NewTicker(d.tickInterval())
	defer tick.Stop()

	dirty := false
	runID := uuid.NewString()
	d.log.Info("daemon starting", "run_id", runID)

	if err := d.reconcile(ctx); err != nil {
		d.log.Error("initial reconcile failed", "err", err)
	}
	if err := atomicWriteMarker(d.Paths.ReadyPath, int(clock.Now().Unix())); err != nil {
		d.log.Warn("failed to write ready marker", "err", err)
	}

	pauseTimer := time.NewTimer(d.pauseDelay())
	defer pauseTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("daemon shutting down", "reason", ctx.Err())
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				continue
			}
			d.log.Debug("network-change notification", "event", ev.String())
			dirty = true

		case err, ok := <-watcher.Errors:
			if !ok {
				continue
			}
			d.log.Warn("fsnotify watcher error", "err", err)

		case <-sigusr1:
			d.log.Debug("SIGUSR1 received, immediate reconcile")
			dirty = true

		case <-tick.C:
			dirty = true

		case <-pauseTimer.C:
			d.log.Debug("pause-expiry timer fired")
			dirty = true
			pauseTimer.Reset(d.pauseDelay())
		}

		if !dirty {
			continue
		}
		dirty = false

		if err := d.reconcile(ctx); err != nil {
			d.log.Error("reconcile failed", "err", err)
			if d.consecutiveFailures >= d.Tuning.failureLimit() {
				return errors.Wrap(err, errors.KindTransientIO, "daemon exiting after repeated reconcile failures")
			}
		}
		pauseTimer.Reset(d.pauseDelay())
	}
}

func (d *Daemon) tickInterval() time.Duration {
	if d.Tuning.ReconcileTick <= 0 {
		return 30 * time.Second
	}
	return d.Tuning.ReconcileTick
}

func (t Tuning) failureLimit() int {
	if t.ConsecutiveFailureLimit <= 0 {
		return 5
	}
	return t.ConsecutiveFailureLimit
}

// pauseDelay computes how long until the state's paused_until is due,
// re-read fresh each call so edits from the control plane take effect
// without restarting the daemon. With no pause pending, or state
// unreadable, it returns the tick interval; a pause that is already due
// yields 1ms so the timer fires at once.
func (d *Daemon) pauseDelay() time.Duration {
	s, err := state.Load(d.Paths.StatePath)
	if err != nil || s.PausedUntil == nil {
		return d.tickInterval()
	}
	delay := s.PausedUntil.Sub(clock.Now())
	if delay <= 0 {
		return time.Millisecond
	}
	return delay
}

func (d *Daemon) writePID() error {
	return atomicWriteMarker(d.Paths.PIDPath, os.Getpid())
}

// removeMarkers deletes the pid and ready files on shutdown. Errors are
// logged, not
// fatal: the process is exiting regardless.
func (d *Daemon) removeMarkers() {
	for _, p := range []string{d.Paths.PIDPath, d.Paths.ReadyPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			d.log.Warn("failed to remove marker on shutdown", "path", p, "err", err)
		}
	}
}

// reconcile runs one full pass: load state, apply DNS, refresh
// upstreams, write markers, track failures. It never holds a
// lock across a subprocess call. Besides the upstream file and the
// markers, which only the daemon writes, it saves state.json (backups,
// managed services, an expired pause) without taking the control-plane
// lock.
func (d *Daemon) reconcile(ctx context.Context) error {
	runID := uuid.NewString()
	log := logging.WithRunID(d.log, runID)

	result := d.reconcileOnce(ctx, log)
	if result.err != nil {
		d.consecutiveFailures++
		metrics.ReconcileTotal.WithLabelValues("failure").Inc()
		metrics.ConsecutiveFailures.Set(float64(d.consecutiveFailures))
		return result.err
	}

	d.consecutiveFailures = 0
	metrics.ReconcileTotal.WithLabelValues("success").Inc()
	metrics.ConsecutiveFailures.Set(0)
	if err := atomicWriteMarker(d.Paths.LastApplyPath, int(clock.Now().Unix())); err != nil {
		log.Warn("failed to write last-apply marker", "err", err)
	} else {
		metrics.LastApplyTimestamp.Set(float64(clock.Now().Unix()))
	}
	if result.partial != nil {
		log.Warn("reconcile applied with partial failures", "failures", len(result.partial.Failures))
	}
	if n, ok := countBlocklistDomains(d.Paths.BlocklistRawPath); ok {
		metrics.BlocklistDomains.Set(float64(n))
	}
	d.snapshotMetrics(log)
	return nil
}

// countBlocklistDomains counts the lines of the compiled raw blocklist so
// the gauge tracks what the resolver is actually serving, regardless of
// which process ran the compile.
func countBlocklistDomains(path string) (int, bool) {
	if path == "" {
		return 0, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return bytes.Count(data, []byte("\n")), true
}

// snapshotMetrics dumps the in-process registry to the metrics file so
// status/doctor, which run in their own short-lived processes, can show
// the daemon's counters instead of an empty registry of their own.
func (d *Daemon) snapshotMetrics(log logging.Logger) {
	if d.Paths.MetricsPath == "" {
		return
	}
	text, err := metrics.RenderText()
	if err != nil {
		log.Warn("could not render metrics snapshot", "err", err)
		return
	}
	if err := fsatomic.WriteFile(d.Paths.MetricsPath, []byte(text), markerFileMode); err != nil {
		log.Warn("could not write metrics snapshot", "err", err)
	}
}

type reconcileOutcome struct {
	err     error
	partial *sysdns.ApplyResult
}

// reconcileOnce is the apply portion of a pass, split out from reconcile
// so the failure-counting and marker-writing wrapper logic stays in one
// place regardless of which step failed.
func (d *Daemon) reconcileOnce(ctx context.Context, log logging.Logger) reconcileOutcome {
	s, err := state.Load(d.Paths.StatePath)
	if err != nil {
		return reconcileOutcome{err: err}
	}
	s.ClearExpiredPause()

	effectiveOn := s.EffectiveOn()

	if effectiveOn {
		d.awaitNetworkReady(ctx, log)
	}

	services, err := d.refreshManagedServices(ctx)
	if err != nil {
		log.Warn("could not refresh managed services, using previous set", "err", err)
		services = s.ManagedServices
	} else {
		s.ManagedServices = services
	}

	var partial *sysdns.ApplyResult
	if effectiveOn {
		res := sysdns.Enable(ctx, d.DNS, services, s.DNSBackup)
		if len(res.Failures) > 0 {
			partial = res
		}
		forgotten := forgetUnmanaged(s.DNSBackup, services)
		if len(forgotten) > 0 {
			res2 := sysdns.Disable(ctx, d.DNS, forgotten)
			for svc, b := range forgotten {
				if _, failed := res2.Failures[svc]; !failed {
					continue
				}
				s.DNSBackup[svc] = b
			}
		}
	} else {
		res := sysdns.Disable(ctx, d.DNS, s.DNSBackup)
		if len(res.Failures) > 0 {
			partial = res
		}
	}

	if err := state.Save(d.Paths.StatePath, s); err != nil {
		return reconcileOutcome{err: err}
	}

	if err := d.refreshUpstreams(ctx, log); err != nil {
		return reconcileOutcome{err: err, partial: partial}
	}

	if partial != nil {
		return reconcileOutcome{err: errors.Errorf(errors.KindPartialFailure,
			"%d service(s) failed to apply", len(partial.Failures)), partial: partial}
	}
	return reconcileOutcome{}
}

// forgetUnmanaged splits backups into those still in managed and removes
// (in place) the ones that fell out of the managed set, returning the
// removed subset so the caller can restore+forget them.
func forgetUnmanaged(backups map[string]state.BackupEntry, managed []string) map[string]state.BackupEntry {
	keep := map[string]bool{}
	for _, svc := range managed {
		keep[svc] = true
	}
	forgotten := map[string]state.BackupEntry{}
	for svc, b := range backups {
		if !keep[svc] {
			forgotten[svc] = b
			delete(backups, svc)
		}
	}
	return forgotten
}

// refreshManagedServices lists the host's current services and applies
// svcselect's filter plus the override file.
func (d *Daemon) refreshManagedServices(ctx context.Context) ([]string, error) {
	hostServices, err := svcselect.ListHost(ctx)
	if err != nil {
		return nil, err
	}

	overrides := map[string]bool{}
	if f, ferr := os.Open(d.Paths.ExcludePath); ferr == nil {
		overrides, err = svcselect.ParseOverrides(f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	selected := svcselect.Select(hostServices, overrides)
	names := make([]string, 0, len(selected))
	for _, svc := range selected {
		names = append(names, svc.Name)
	}
	return names, nil
}

// awaitNetworkReady blocks (bounded) until the OS resolver table reports
// a default upstream, approximating "the default route has IPv4 or
// IPv6". It applies anyway on timeout, logging a warning.
func (d *Daemon) awaitNetworkReady(ctx context.Context, log logging.Logger) {
	deadline := clock.Now().Add(d.networkReadyTimeout())
	for {
		table, err := resolverconf.Read(ctx, 5*time.Second)
		if err == nil && len(table.Default) > 0 {
			return
		}
		if clock.Now().After(deadline) {
			log.Warn("network not ready within timeout, applying anyway", "timeout", d.networkReadyTimeout())
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (d *Daemon) networkReadyTimeout() time.Duration {
	if d.Tuning.NetworkReadyTimeout <= 0 {
		return 15 * time.Second
	}
	return d.Tuning.NetworkReadyTimeout
}

// refreshUpstreams re-reads the OS resolver table, renders it to the
// upstream file, and signals the resolver to reload. The write always
// completes before the signal, so a reload never observes a stale file.
func (d *Daemon) refreshUpstreams(ctx context.Context, log logging.Logger) error {
	table, err := resolverconf.Read(ctx, 5*time.Second)
	if err != nil {
		log.Warn("could not read resolver table, reusing fallbacks only", "err", err)
		table = resolverconf.Table{PerDomain: map[string][]string{}}
	}

	fallbacks, err := upstreams.ReadFallbacks(d.Paths.FallbacksPath)
	if err != nil {
		log.Warn("could not read fallback upstreams", "err", err)
	}

	if err := upstreams.Write(d.Paths.UpstreamConfPath, table, fallbacks); err != nil {
		return errors.Wrap(err, errors.KindTransientIO, "write upstream config")
	}

	if err := d.Resolv.Reload(ctx, ""); err != nil {
		var retryable *resolverctl.ErrRetryable
		if errors.As(err, &retryable) {
			log.Warn("resolver reload deferred", "err", err)
			return nil
		}
		return err
	}
	return nil
}
