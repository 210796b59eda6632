// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package domainnorm normalizes domain names to the single canonical form
// used across the allow/deny lists and the blocklist compiler: lowercase
// IDNA-ASCII with the trailing dot stripped and invalid labels rejected.
package domainnorm

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

var profile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.VerifyDNSLength(true),
)

// Normalize lowercases, IDNA-ASCII-encodes, and strips the trailing dot
// from domain. It returns an error if domain doesn't parse as a valid DNS
// name.
func Normalize(domain string) (string, error) {
	d := strings.TrimSpace(domain)
	d = strings.TrimSuffix(d, ".")
	if d == "" {
		return "", fmt.Errorf("domainnorm: empty domain")
	}

	ascii, err := profile.ToASCII(d)
	if err != nil {
		return "", fmt.Errorf("domainnorm: %q: %w", domain, err)
	}
	ascii = strings.ToLower(ascii)

	if !strings.Contains(ascii, ".") {
		return "", fmt.Errorf("domainnorm: %q: not a fully-qualified domain", domain)
	}
	for _, label := range strings.Split(ascii, ".") {
		if label == "" {
			return "", fmt.Errorf("domainnorm: %q: empty label", domain)
		}
	}
	return ascii, nil
}
