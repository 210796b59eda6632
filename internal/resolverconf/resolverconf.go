// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package resolverconf parses the OS resolver table (`scutil --dns` output
// on macOS) into the default and per-domain upstream server lists the
// upstream renderer needs.
package resolverconf

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/spyicydev/macblock/internal/procrun"
)

// Table is the parsed result: the default (global) upstream list and any
// per-domain (scoped, split-DNS) upstream lists, keyed by domain with
// trailing dots stripped.
type Table struct {
	Default   []string
	PerDomain map[string][]string
}

// loopbackAddrs are never propagated as an upstream: we are the loopback
// resolver, so seeing ourselves in scutil's table (e.g. right after we set
// it) must not be rendered back into dnsmasq's own upstream file.
var loopbackAddrs = map[string]bool{
	"127.0.0.1": true,
	"::1":       true,
	"0.0.0.0":   true,
	"::":        true,
}

// Read runs `scutil --dns` and parses its output.
func Read(ctx context.Context, timeout time.Duration) (Table, error) {
	res, err := procrun.Run(ctx, timeout, "scutil", "--dns")
	if err != nil {
		return Table{}, err
	}
	return Parse(res.Stdout), nil
}

// Parse parses scutil --dns-format text. Each "resolver #N" section either
// carries a "domain : X" line (a scoped resolver) or not (a default
// resolver); each carries zero or more "nameserver[N] : IP" lines. Order of
// first appearance is preserved within each bucket and duplicates within a
// bucket are dropped.
func Parse(text string) Table {
	t := Table{PerDomain: map[string][]string{}}

	defaultSeen := map[string]bool{}
	var domain string
	var domainSeen map[string]bool

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "resolver #") {
			domain = ""
			domainSeen = nil
			continue
		}

		if rest, ok := cutField(line, "domain"); ok {
			domain = strings.TrimSuffix(rest, ".")
			if _, exists := t.PerDomain[domain]; !exists {
				t.PerDomain[domain] = []string{}
			}
			domainSeen = map[string]bool{}
			for _, ip := range t.PerDomain[domain] {
				domainSeen[ip] = true
			}
			continue
		}

		if rest, ok := cutField(line, "nameserver"); ok {
			ip := rest
			if loopbackAddrs[ip] {
				continue
			}
			if domain != "" {
				if domainSeen == nil {
					domainSeen = map[string]bool{}
				}
				if !domainSeen[ip] {
					domainSeen[ip] = true
					t.PerDomain[domain] = append(t.PerDomain[domain], ip)
				}
			} else {
				if !defaultSeen[ip] {
					defaultSeen[ip] = true
					t.Default = append(t.Default, ip)
				}
			}
		}
	}

	return t
}

// cutField matches lines of the form "<field>[N] : value" or
// "<field> : value" (scutil prefixes nameserver/search lines with an index
// in brackets) and returns the trimmed value.
func cutField(line, field string) (string, bool) {
	if !strings.HasPrefix(line, field) {
		return "", false
	}
	rest := line[len(field):]
	rest = strings.TrimLeft(rest, "[0123456789]")
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.TrimSpace(rest[1:]), true
}
