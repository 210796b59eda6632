// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package diagnostics

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpTailMissingFileIsNotError(t *testing.T) {
	var buf bytes.Buffer
	err := DumpTail(&buf, filepath.Join(t.TempDir(), "missing.log"), 10)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestDumpTailReturnsLastNLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macblockd.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, DumpTail(&buf, path, 2))
	assert.Equal(t, "three\nfour\n", buf.String())
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macblockd.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, &buf, path) }()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("new line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	time.Sleep(700 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "new line\n", buf.String())
}
