// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package upstreams

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyicydev/macblock/internal/resolverconf"
)

func TestRenderDefaultAndScoped(t *testing.T) {
	table := resolverconf.Table{
		Default:   []string{"1.1.1.1"},
		PerDomain: map[string][]string{"corp.example": {"10.0.0.53"}},
	}
	got := Render(table, nil)
	assert.Equal(t, "server=1.1.1.1\nserver=/corp.example/10.0.0.53\n", got)
}

func TestRenderFallsBackWhenNoDefaults(t *testing.T) {
	table := resolverconf.Table{PerDomain: map[string][]string{}}
	got := Render(table, []string{"9.9.9.9", "1.0.0.1"})
	assert.Equal(t, "server=9.9.9.9\nserver=1.0.0.1\n", got)
}

func TestRenderDeduplicatesLoopback(t *testing.T) {
	table := resolverconf.Table{Default: []string{"1.1.1.1"}, PerDomain: map[string][]string{
		"corp.example": {"127.0.0.1", "10.0.0.53"},
	}}
	got := Render(table, nil)
	assert.Equal(t, "server=1.1.1.1\nserver=/corp.example/10.0.0.53\n", got)
}

func TestFallbacksRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upstream.fallbacks")

	require.NoError(t, WriteFallbacks(path, []string{"1.1.1.1", "8.8.8.8"}))
	got, err := ReadFallbacks(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), info.Mode())
}

func TestReadFallbacksMissing(t *testing.T) {
	dir := t.TempDir()
	got, err := ReadFallbacks(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
