// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package blocklist

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Source describes one named built-in blocklist source: a hosts-format URL
// and an optional pinned SHA-256, verified before parsing.
type Source struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	SHA256 string `yaml:"sha256,omitempty"`
}

//go:embed sources.yaml
var catalogYAML []byte

// LoadCatalog parses the embedded built-in source catalog.
func LoadCatalog() ([]Source, error) {
	var sources []Source
	if err := yaml.Unmarshal(catalogYAML, &sources); err != nil {
		return nil, fmt.Errorf("blocklist: parse embedded catalog: %w", err)
	}
	return sources, nil
}

// Lookup returns the named built-in source, or ok=false if name isn't in
// the catalog (in which case the caller should treat it as a custom URL).
func Lookup(name string) (Source, bool, error) {
	sources, err := LoadCatalog()
	if err != nil {
		return Source{}, false, err
	}
	for _, s := range sources {
		if s.Name == name {
			return s, true, nil
		}
	}
	return Source{}, false, nil
}
