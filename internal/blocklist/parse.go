// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package blocklist

import (
	"bufio"
	"bytes"
	"sort"
	"strings"

	"github.com/spyicydev/macblock/internal/domainnorm"
)

// ParseHosts reads hosts-format text: lines of `IP host [host...]` (IP
// discarded, hostnames kept) or a bare `host`, comments stripped. Each
// hostname is normalized; lines that don't normalize to a valid domain are
// silently dropped (hosts files routinely carry "localhost",
// "broadcasthost", and similar bare-label entries that are not useful
// blocklist domains).
func ParseHosts(data []byte) []string {
	seen := map[string]bool{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		var hosts []string
		if len(fields) >= 2 && isIPLike(fields[0]) {
			hosts = fields[1:]
		} else {
			hosts = fields
		}

		for _, h := range hosts {
			norm, err := domainnorm.Normalize(h)
			if err != nil {
				continue
			}
			seen[norm] = true
		}
	}

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// isIPLike is a cheap syntactic check (no DNS resolution, no strict IPv4/v6
// validation) good enough to distinguish "0.0.0.0 ads.example.com" from a
// bare "ads.example.com" line: does it contain a digit and a dot/colon.
func isIPLike(s string) bool {
	if s == "" {
		return false
	}
	hasDigit, hasSep := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == ':':
			hasSep = true
		case r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			// hex digits, valid in IPv6
		default:
			return false
		}
	}
	return hasDigit && hasSep
}
