// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package diagnostics implements the read-only `status`/`doctor`
// surface: it never mutates state, markers, or DNS, and tolerates
// missing or malformed marker files rather than failing.
package diagnostics

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/spyicydev/macblock/internal/metrics"
	"github.com/spyicydev/macblock/internal/state"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Report is everything status/doctor can show, gathered read-only.
type Report struct {
	State           *state.State
	StateErr        error
	EffectiveOn     bool
	DaemonPID       int
	DaemonAlive     bool
	ResolverPID     int
	ResolverAlive   bool
	LastApply       time.Time
	LastApplyOK     bool
	ManagedServices []string
	MetricsText     string
	PortBlocked     bool
	PortBlockerInfo string
}

// MarkerPaths bundles the state, pid, last_apply and metrics file
// locations Gather reads.
type MarkerPaths struct {
	StatePath       string
	DaemonPIDPath   string
	ResolverPIDPath string
	LastApplyPath   string
	MetricsPath     string
}

// Gather reads every marker it can and fills in what's available,
// tolerating any individual file being missing or malformed.
func Gather(paths MarkerPaths) Report {
	var r Report

	s, err := state.Load(paths.StatePath)
	if err != nil {
		r.StateErr = err
	} else {
		r.State = s
		r.EffectiveOn = s.EffectiveOn()
		r.ManagedServices = s.ManagedServices
	}

	if pid, ok := readMarkerInt(paths.DaemonPIDPath); ok {
		r.DaemonPID = pid
		r.DaemonAlive = processAlive(pid)
	}
	if pid, ok := readMarkerInt(paths.ResolverPIDPath); ok {
		r.ResolverPID = pid
		r.ResolverAlive = processAlive(pid)
	}
	if ts, ok := readMarkerInt(paths.LastApplyPath); ok {
		r.LastApply = time.Unix(int64(ts), 0)
		r.LastApplyOK = true
	}

	if paths.MetricsPath != "" {
		if data, err := os.ReadFile(paths.MetricsPath); err == nil {
			r.MetricsText = string(data)
		}
	}

	return r
}

// readMarkerInt parses a marker file as a single decimal integer,
// tolerating a missing or malformed file by returning ok=false rather than
// an error.
func readMarkerInt(path string) (int, bool) {
	if path == "" {
		return 0, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// processAlive reports whether pid names a live process, using signal 0
// (no-op probe, never actually delivered) per the conventional Unix idiom.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// RenderStatus formats Report as the `status` command's human-readable
// output: a compact summary, colorized when the invariant holds.
func RenderStatus(r Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("macblock status"))
	b.WriteString("\n")

	if r.StateErr != nil {
		fmt.Fprintf(&b, "%s state.json: %v\n", failStyle.Render("FAIL"), r.StateErr)
		return b.String()
	}

	mode := "off"
	style := failStyle
	if r.EffectiveOn {
		mode = "on"
		style = okStyle
	}
	fmt.Fprintf(&b, "mode: %s\n", style.Render(mode))

	if r.State.PausedUntil != nil {
		fmt.Fprintf(&b, "paused_until: %s\n", r.State.PausedUntil.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "source: %s\n", r.State.Source)
	fmt.Fprintf(&b, "managed services: %s\n", strings.Join(r.ManagedServices, ", "))
	fmt.Fprintf(&b, "backed-up services: %d\n", len(r.State.DNSBackup))

	renderProcessLine(&b, "daemon", r.DaemonPID, r.DaemonAlive)
	renderProcessLine(&b, "resolver", r.ResolverPID, r.ResolverAlive)

	if r.LastApplyOK {
		fmt.Fprintf(&b, "last apply: %s\n", r.LastApply.Format(time.RFC3339))
	} else {
		fmt.Fprintf(&b, "last apply: %s\n", warnStyle.Render("unknown (no marker)"))
	}

	return b.String()
}

func renderProcessLine(b *strings.Builder, name string, pid int, alive bool) {
	if pid == 0 {
		fmt.Fprintf(b, "%s: %s\n", name, warnStyle.Render("not running (no pid marker)"))
		return
	}
	if alive {
		fmt.Fprintf(b, "%s: %s (pid %d)\n", name, okStyle.Render("running"), pid)
	} else {
		fmt.Fprintf(b, "%s: %s (stale pid %d)\n", name, failStyle.Render("not running"), pid)
	}
}

// RenderDoctor extends RenderStatus with the daemon's metrics snapshot.
// The snapshot file is what the daemon last wrote; without one (daemon
// never ran, or an old install) this process's own registry is rendered
// so the section is never absent.
func RenderDoctor(r Report) (string, error) {
	var b strings.Builder
	b.WriteString(RenderStatus(r))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("metrics"))
	b.WriteString("\n")

	if r.PortBlocked {
		fmt.Fprintf(&b, "%s port 53: %s\n", failStyle.Render("FAIL"), r.PortBlockerInfo)
	}

	if r.MetricsText != "" {
		b.WriteString(r.MetricsText)
		return b.String(), nil
	}
	text, err := metrics.RenderText()
	if err != nil {
		return b.String(), err
	}
	b.WriteString(text)
	return b.String(), nil
}
