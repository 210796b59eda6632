// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package daemon

import (
	"strconv"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/fsatomic"
)

const markerFileMode = 0o644

// atomicWriteMarker writes value as a decimal integer plus trailing
// newline, the shared format of the pid/ready/last_apply marker files.
func atomicWriteMarker(path string, value int) error {
	data := []byte(strconv.Itoa(value) + "\n")
	if err := fsatomic.WriteFile(path, data, markerFileMode); err != nil {
		return errors.Wrapf(err, errors.KindTransientIO, "write marker %s", path)
	}
	return nil
}
