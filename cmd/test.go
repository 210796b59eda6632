// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"

	"github.com/spyicydev/macblock/internal/dnsquery"
	"github.com/spyicydev/macblock/internal/errors"
)

// RunTest queries the loopback resolver for domain and reports whether it
// resolved or was blocked.
func RunTest(ctx context.Context, domain string) error {
	res, err := dnsquery.Query(ctx, dnsquery.DefaultAddress, domain)
	if err != nil {
		return errors.Wrap(err, errors.KindTransientIO, "query loopback resolver")
	}

	if res.IsNXDOMAIN {
		Printer.Printf("%s: blocked (NXDOMAIN)\n", domain)
		return nil
	}
	Printer.Printf("%s: %s (%v)\n", domain, res.Rcode, res.Answers)
	return nil
}
