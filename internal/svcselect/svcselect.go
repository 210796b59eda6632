// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package svcselect chooses which network services the DNS controller is
// allowed to touch: a default keyword/prefix exclusion
// heuristic, overridable by a user-supplied exclusion file.
package svcselect

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/spyicydev/macblock/internal/procrun"
)

const listTimeout = 5 * time.Second

// Service describes one network service the OS reports, as parsed from
// `networksetup -listnetworkserviceorder`: its name plus the device it
// maps to.
type Service struct {
	Name   string
	Device string
}

// excludedNameTokens are matched case-insensitively anywhere in the service
// name.
var excludedNameTokens = []string{"vpn", "tailscale", "wireguard"}

// excludedDevicePrefixes are matched case-insensitively against the start
// of the device name.
var excludedDevicePrefixes = []string{"utun", "ppp", "ipsec"}

// DefaultExcluded reports whether svc is excluded by the built-in
// heuristic, before considering the override file.
func DefaultExcluded(svc Service) bool {
	name := strings.ToLower(svc.Name)
	for _, tok := range excludedNameTokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	device := strings.ToLower(svc.Device)
	for _, prefix := range excludedDevicePrefixes {
		if strings.HasPrefix(device, prefix) {
			return true
		}
	}
	return false
}

// ParseOverrides reads the user override file: one service name per line,
// `#` comments, blank lines ignored. This format is stable; it is the
// user's escape hatch from the default filter.
func ParseOverrides(r io.Reader) (map[string]bool, error) {
	excluded := map[string]bool{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		excluded[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return excluded, nil
}

// ListHost runs `networksetup -listnetworkserviceorder` and parses it into
// Service descriptors. This is the host's full service set, before the
// default filter or override exclusions are applied.
func ListHost(ctx context.Context) ([]Service, error) {
	res, err := procrun.Run(ctx, listTimeout, "networksetup", "-listnetworkserviceorder")
	if err != nil {
		return nil, err
	}
	return parseServiceOrder(res.Stdout), nil
}

// parseServiceOrder interprets `networksetup -listnetworkserviceorder`
// output: each enabled service is a two-line pair, "(N) Name" followed by
// "(Hardware Port: X, Device: Y)". Disabled services are prefixed with a
// ("*N) marker and are skipped: they have no live DNS configuration to
// manage.
func parseServiceOrder(out string) []Service {
	var services []Service
	lines := strings.Split(out, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "(") {
			continue
		}
		if strings.HasPrefix(line, "(*") {
			continue
		}
		closeParen := strings.Index(line, ")")
		if closeParen < 0 {
			continue
		}
		name := strings.TrimSpace(line[closeParen+1:])
		if name == "" || i+1 >= len(lines) {
			continue
		}
		device := deviceFromHardwarePortLine(strings.TrimSpace(lines[i+1]))
		if device == "" {
			continue
		}
		services = append(services, Service{Name: name, Device: device})
		i++
	}
	return services
}

// deviceFromHardwarePortLine extracts Y from "(Hardware Port: X, Device: Y)".
func deviceFromHardwarePortLine(line string) string {
	const marker = "Device: "
	idx := strings.Index(line, marker)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(marker):]
	rest = strings.TrimSuffix(rest, ")")
	return strings.TrimSpace(rest)
}

// Select returns the subset of services that should be managed: those that
// pass the default filter and are not named in the override exclusion set.
func Select(services []Service, overrideExclusions map[string]bool) []Service {
	var out []Service
	for _, svc := range services {
		if DefaultExcluded(svc) {
			continue
		}
		if overrideExclusions[svc.Name] {
			continue
		}
		out = append(out, svc)
	}
	return out
}
