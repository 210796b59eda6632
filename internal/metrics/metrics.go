// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics holds in-process Prometheus counters/gauges gathered and
// rendered as text by doctor. No HTTP listener is opened: these
// never leave the host, keeping the single-host security model intact.
package metrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Registry is the process-local metrics registry. It is not the global
// prometheus.DefaultRegisterer, so registering it never conflicts with
// anything else in the process and nothing can scrape it remotely.
var Registry = prometheus.NewRegistry()

var (
	// ReconcileTotal counts reconcile passes by outcome ("success" or
	// "failure"), letting doctor report the daemon's health history.
	ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "macblock_reconcile_total",
		Help: "Total reconcile passes by outcome.",
	}, []string{"outcome"})

	// ConsecutiveFailures mirrors the daemon's in-memory failure counter
	// so doctor can show how close the daemon is to its restart
	// threshold.
	ConsecutiveFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "macblock_consecutive_reconcile_failures",
		Help: "Consecutive failed reconcile passes since the last success.",
	})

	// BlocklistDomains is the size of the most recently compiled blocklist.
	BlocklistDomains = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "macblock_blocklist_domains",
		Help: "Number of domains in the most recently compiled blocklist.",
	})

	// LastApplyTimestamp is the Unix epoch seconds of the last successful
	// reconcile apply.
	LastApplyTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "macblock_last_apply_timestamp_seconds",
		Help: "Unix timestamp of the last successful reconcile apply.",
	})
)

func init() {
	Registry.MustRegister(ReconcileTotal, ConsecutiveFailures, BlocklistDomains, LastApplyTimestamp)
}

// RenderText gathers the registry and formats it in Prometheus text
// exposition format, for diagnostics to embed in `doctor` output.
func RenderText() (string, error) {
	families, err := Registry.Gather()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
