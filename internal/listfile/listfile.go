// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package listfile implements the tolerant allow/deny list file format:
// one normalized domain per line, `#` comments, invalid lines
// warned about but never fatal.
package listfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spyicydev/macblock/internal/domainnorm"
	"github.com/spyicydev/macblock/internal/fsatomic"
)

// FileMode is the mode allow/deny files are always written with.
const FileMode = 0o644

// Warning describes one line the reader could not parse as a valid domain.
type Warning struct {
	File string
	Line int
	Text string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: skipping invalid line %q", w.File, w.Line, w.Text)
}

// Read parses path into a sorted, deduplicated set of normalized domains.
// A missing file is treated as empty, not an error. Invalid lines are
// collected as Warnings and skipped; Read never fails because of them.
func Read(path string) ([]string, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	defer f.Close()
	return parse(path, f)
}

func parse(path string, r io.Reader) ([]string, []Warning, error) {
	domains := map[string]bool{}
	var warnings []Warning

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := raw
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		norm, err := domainnorm.Normalize(line)
		if err != nil {
			warnings = append(warnings, Warning{File: path, Line: lineNo, Text: raw})
			fmt.Fprintln(os.Stderr, Warning{File: path, Line: lineNo, Text: raw}.String())
			continue
		}
		domains[norm] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, err
	}

	out := make([]string, 0, len(domains))
	for d := range domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, warnings, nil
}

// Write atomically replaces path's contents with domains, one per line,
// sorted.
func Write(path string, domains []string) error {
	sorted := append([]string(nil), domains...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, d := range sorted {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return fsatomic.WriteFile(path, []byte(b.String()), FileMode)
}

// Add reads path, adds domain (normalized), and writes it back. Returns the
// normalized domain and whether it was newly added.
func Add(path, domain string) (string, bool, error) {
	norm, err := domainnorm.Normalize(domain)
	if err != nil {
		return "", false, err
	}
	domains, _, err := Read(path)
	if err != nil {
		return "", false, err
	}
	for _, d := range domains {
		if d == norm {
			return norm, false, nil
		}
	}
	domains = append(domains, norm)
	if err := Write(path, domains); err != nil {
		return "", false, err
	}
	return norm, true, nil
}

// Remove reads path, removes domain (normalized) if present, and writes it
// back. Returns whether anything was removed.
func Remove(path, domain string) (bool, error) {
	norm, err := domainnorm.Normalize(domain)
	if err != nil {
		return false, err
	}
	domains, _, err := Read(path)
	if err != nil {
		return false, err
	}
	out := make([]string, 0, len(domains))
	removed := false
	for _, d := range domains {
		if d == norm {
			removed = true
			continue
		}
		out = append(out, d)
	}
	if !removed {
		return false, nil
	}
	if err := Write(path, out); err != nil {
		return false, err
	}
	return true, nil
}
