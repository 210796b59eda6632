// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFreezeAndAdvance(t *testing.T) {
	defer Unfreeze()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	Freeze(base)
	assert.Equal(t, base, Now())

	Advance(48 * time.Hour)
	assert.Equal(t, base.Add(48*time.Hour), Now())
}

func TestUnfreezeRestoresWallClock(t *testing.T) {
	Freeze(time.Unix(0, 0))
	Unfreeze()
	assert.WithinDuration(t, time.Now(), Now(), time.Second)
}
