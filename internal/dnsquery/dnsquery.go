// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dnsquery performs DNS queries against the loopback resolver,
// for the `test <domain>` command and the post-reload canary probe.
package dnsquery

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// DefaultAddress is the loopback resolver's listen address, matching the
// listen-address/port lines in the generated dnsmasq config.
const DefaultAddress = "127.0.0.1:53"

// DefaultTimeout bounds how long a single query waits for a response.
const DefaultTimeout = 3 * time.Second

// Result is the outcome of a single A-record query.
type Result struct {
	Rcode      string
	IsNXDOMAIN bool
	Answers    []string
	RTT        time.Duration
}

// Query sends an A-record query for domain to address and reports the
// response code and any A-record answers.
func Query(ctx context.Context, address, domain string) (Result, error) {
	if address == "" {
		address = DefaultAddress
	}
	fqdn := dns.Fqdn(domain)

	m := new(dns.Msg)
	m.SetQuestion(fqdn, dns.TypeA)
	m.RecursionDesired = true

	c := new(dns.Client)
	c.Timeout = DefaultTimeout

	deadline, ok := ctx.Deadline()
	if ok {
		c.Timeout = time.Until(deadline)
	}

	resp, rtt, err := c.ExchangeContext(ctx, m, address)
	if err != nil {
		return Result{}, fmt.Errorf("dnsquery: exchange with %s: %w", address, err)
	}

	res := Result{
		Rcode:      dns.RcodeToString[resp.Rcode],
		IsNXDOMAIN: resp.Rcode == dns.RcodeNameError,
		RTT:        rtt,
	}
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			res.Answers = append(res.Answers, a.A.String())
		}
	}
	return res, nil
}

// Canary matches resolverctl.CanaryFunc: it reports whether domain resolved
// to NXDOMAIN against the loopback resolver, confirming a reload took
// effect.
func Canary(ctx context.Context, domain string) (bool, error) {
	res, err := Query(ctx, DefaultAddress, domain)
	if err != nil {
		return false, err
	}
	return res.IsNXDOMAIN, nil
}
