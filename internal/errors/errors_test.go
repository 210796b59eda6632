// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 2, KindPlatform.ExitCode())
	assert.Equal(t, 2, KindPrivilege.ExitCode())
	assert.Equal(t, 1, KindUser.ExitCode())
	assert.Equal(t, 1, KindStateCorrupt.ExitCode())
	assert.Equal(t, 1, KindConflict.ExitCode())
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindUser, "x"))
	assert.Nil(t, Wrapf(nil, KindUser, "x %d", 1))
	assert.Nil(t, Attr(nil, "k", "v"))
}

func TestGetKindUnwrapsChain(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(base, KindTransientIO, "download failed")
	assert.Equal(t, KindTransientIO, GetKind(wrapped))
	assert.ErrorIs(t, wrapped, base)
}

func TestAttrAccumulatesAcrossChain(t *testing.T) {
	err := New(KindPartialFailure, "some services failed")
	err = Attr(err, "failed_services", []string{"Wi-Fi"})
	err = Wrap(err, KindPartialFailure, "apply incomplete")
	err = Attr(err, "attempt", 2)

	attrs := GetAttributes(err)
	assert.Equal(t, []string{"Wi-Fi"}, attrs["failed_services"])
	assert.Equal(t, 2, attrs["attempt"])
}

func TestAttrWrapsPlainError(t *testing.T) {
	err := Attr(errors.New("plain"), "k", "v")
	assert.Equal(t, KindInternal, GetKind(err))
	assert.Equal(t, "v", GetAttributes(err)["k"])
}
