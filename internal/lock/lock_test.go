// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireThenTryAcquireFails(t *testing.T) {
	dir := t.TempDir()

	h, err := Acquire(dir)
	require.NoError(t, err)
	defer h.Release()

	_, err = TryAcquire(dir)
	assert.Error(t, err)
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	h, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, h.Release())

	h2, err := TryAcquire(dir)
	require.NoError(t, err)
	require.NoError(t, h2.Release())
}
