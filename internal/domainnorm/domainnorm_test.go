// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package domainnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLowercasesAndStripsTrailingDot(t *testing.T) {
	got, err := Normalize("Example.COM.")
	require.NoError(t, err)
	assert.Equal(t, "example.com", got)
}

func TestNormalizeIDNA(t *testing.T) {
	got, err := Normalize("müller.de")
	require.NoError(t, err)
	assert.Equal(t, "xn--mller-kva.de", got)
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	_, err := Normalize("")
	assert.Error(t, err)
}

func TestNormalizeRejectsBareLabel(t *testing.T) {
	_, err := Normalize("localhost")
	assert.Error(t, err)
}

func TestNormalizeRejectsEmptyLabel(t *testing.T) {
	_, err := Normalize("ads..example.com")
	assert.Error(t, err)
}
