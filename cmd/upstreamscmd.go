// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"net"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/upstreams"
)

// RunUpstreamsList prints the persisted fallback upstream IPs.
func RunUpstreamsList() error {
	ips, err := upstreams.ReadFallbacks(install.FallbacksPath())
	if err != nil {
		return errors.Wrap(err, errors.KindUser, "read fallback upstreams")
	}
	for _, ip := range ips {
		Printer.Println(ip)
	}
	return nil
}

// RunUpstreamsSet replaces the fallback upstream list. Each argument must
// be a valid IP literal.
func RunUpstreamsSet(ips []string) error {
	for _, ip := range ips {
		if net.ParseIP(ip) == nil {
			return errors.Errorf(errors.KindUser, "invalid IP address %q", ip)
		}
	}
	return withStateLock(func() error {
		if err := upstreams.WriteFallbacks(install.FallbacksPath(), ips); err != nil {
			return err
		}
		if err := notifyDaemon(); err != nil {
			return err
		}
		Printer.Printf("fallback upstreams set to %v.\n", ips)
		return nil
	})
}

// RunUpstreamsReset clears the fallback upstream list.
func RunUpstreamsReset() error {
	return withStateLock(func() error {
		if err := upstreams.WriteFallbacks(install.FallbacksPath(), nil); err != nil {
			return err
		}
		if err := notifyDaemon(); err != nil {
			return err
		}
		Printer.Println("fallback upstreams reset.")
		return nil
	})
}
