// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package blocklist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHosts(t *testing.T) {
	data := []byte(`# header comment
0.0.0.0 ads.example.com
0.0.0.0 tracker.example.com tracker2.example.com
127.0.0.1 localhost
bare.example.org
`)
	got := ParseHosts(data)
	assert.Equal(t, []string{"ads.example.com", "bare.example.org", "tracker.example.com", "tracker2.example.com"}, got)
}

func TestCompileBelowSafetyFloor(t *testing.T) {
	var lines []string
	for i := 0; i < 42; i++ {
		lines = append(lines, "0.0.0.0 ads"+string(rune('a'+i%26))+".example.com")
	}
	data := []byte(strings.Join(lines, "\n"))

	_, err := Compile(CompileInput{RawSource: data, SafetyFloor: 1000})
	require.Error(t, err)
	var floorErr *ErrBelowSafetyFloor
	require.ErrorAs(t, err, &floorErr)
	assert.Less(t, floorErr.Got, floorErr.Want)
}

func TestCompileSubtractsAllowlistAndAddsDenylist(t *testing.T) {
	data := []byte("0.0.0.0 ads.example.com\n0.0.0.0 safe.example.com\n")
	in := CompileInput{
		RawSource:   data,
		Allowlist:   []string{"safe.example.com"},
		Denylist:    []string{"extra.example.net"},
		SafetyFloor: 1,
	}
	res, err := Compile(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example.com", "extra.example.net"}, res.Domains)
}

func TestWriteFilesFormat(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "blocklist.raw")
	confPath := filepath.Join(dir, "blocklist.conf")

	require.NoError(t, WriteFiles(rawPath, confPath, []string{"a.example.com", "b.example.com"}))

	raw, err := os.ReadFile(rawPath)
	require.NoError(t, err)
	assert.Equal(t, "a.example.com\nb.example.com\n", string(raw))

	conf, err := os.ReadFile(confPath)
	require.NoError(t, err)
	assert.Equal(t, "address=/a.example.com/\naddress=/b.example.com/\n", string(conf))

	info, err := os.Stat(rawPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), info.Mode())
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, looksLikeHTML([]byte("<!DOCTYPE html><html><head><title>Oops</title></head></html>")))
	assert.False(t, looksLikeHTML([]byte("0.0.0.0 ads.example.com\n0.0.0.0 tracker.example.com\n")))
}

func TestVerifySHA256(t *testing.T) {
	data := []byte("hello world")
	// sha256("hello world")
	const sum = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	assert.NoError(t, VerifySHA256(data, sum))
	assert.Error(t, VerifySHA256(data, "deadbeef"))
	assert.NoError(t, VerifySHA256(data, ""))
}

func TestLoadCatalogHasBuiltins(t *testing.T) {
	sources, err := LoadCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, sources)

	src, ok, err := Lookup("stevenblack")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, src.URL, "https://")

	_, ok, err = Lookup("not-a-real-source")
	require.NoError(t, err)
	assert.False(t, ok)
}
