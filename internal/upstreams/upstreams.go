// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package upstreams renders the OS resolver table into dnsmasq `server=`
// lines, falling back to a persisted known-good IP list when
// the OS has no usable default upstreams.
package upstreams

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/spyicydev/macblock/internal/fsatomic"
	"github.com/spyicydev/macblock/internal/resolverconf"
)

// FileMode is the mode the rendered upstream file is written with.
const FileMode = 0o644

var loopbackAddrs = map[string]bool{
	"127.0.0.1": true,
	"::1":       true,
	"0.0.0.0":   true,
	"::":        true,
}

// Render produces dnsmasq server= / server=/domain/ lines from table,
// falling back to fallbackIPs when table.Default is empty.
func Render(table resolverconf.Table, fallbackIPs []string) string {
	var b strings.Builder

	defaults := table.Default
	if len(defaults) == 0 {
		defaults = fallbackIPs
	}
	for _, ip := range defaults {
		if loopbackAddrs[ip] {
			continue
		}
		b.WriteString("server=")
		b.WriteString(ip)
		b.WriteByte('\n')
	}

	domains := make([]string, 0, len(table.PerDomain))
	for d := range table.PerDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	for _, d := range domains {
		for _, ip := range table.PerDomain[d] {
			if loopbackAddrs[ip] {
				continue
			}
			b.WriteString("server=/")
			b.WriteString(d)
			b.WriteString("/")
			b.WriteString(ip)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// Write atomically writes the rendered upstream config to path.
func Write(path string, table resolverconf.Table, fallbackIPs []string) error {
	return fsatomic.WriteFile(path, []byte(Render(table, fallbackIPs)), FileMode)
}

// ReadFallbacks parses the persisted fallback file: one IP per line,
// blank lines ignored. A missing file yields an empty list, not an error.
func ReadFallbacks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var ips []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ip := strings.TrimSpace(scanner.Text())
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips, scanner.Err()
}

// WriteFallbacks atomically replaces the persisted fallback file.
func WriteFallbacks(path string, ips []string) error {
	var b strings.Builder
	for _, ip := range ips {
		b.WriteString(ip)
		b.WriteByte('\n')
	}
	return fsatomic.WriteFile(path, []byte(b.String()), FileMode)
}
