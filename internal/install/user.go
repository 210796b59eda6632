// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"context"
	"fmt"
	"os/user"
	"strconv"
	"time"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/procrun"
)

const userOpTimeout = 10 * time.Second

// baseUID is where UID/GID allocation for the dedicated user starts when
// scanning for a free slot in the system range.
const baseUID = 240

// EnsureDedicatedUser creates DedicatedGroup and DedicatedUser via dscl if
// they don't already exist. Safe to call repeatedly.
func EnsureDedicatedUser(ctx context.Context) error {
	if _, err := user.Lookup(DedicatedUser); err == nil {
		return nil
	}

	uid, err := findFreeSystemID(ctx)
	if err != nil {
		return err
	}

	steps := [][]string{
		{"-create", "/Groups/" + DedicatedGroup},
		{"-create", "/Groups/" + DedicatedGroup, "PrimaryGroupID", strconv.Itoa(uid)},
		{"-create", "/Users/" + DedicatedUser},
		{"-create", "/Users/" + DedicatedUser, "UniqueID", strconv.Itoa(uid)},
		{"-create", "/Users/" + DedicatedUser, "PrimaryGroupID", strconv.Itoa(uid)},
		{"-create", "/Users/" + DedicatedUser, "UserShell", "/usr/bin/false"},
		{"-create", "/Users/" + DedicatedUser, "NFSHomeDirectory", "/var/empty"},
		{"-create", "/Users/" + DedicatedUser, "RealName", "macblock resolver"},
		{"-create", "/Users/" + DedicatedUser, "Password", "*"},
	}

	for _, args := range steps {
		res, err := procrun.Run(ctx, userOpTimeout, "dscl", append([]string{"."}, args...)...)
		if err != nil {
			return errors.Wrap(err, errors.KindPrivilege, "dscl: "+fmt.Sprint(args))
		}
		if res.ExitCode != 0 {
			return errors.Errorf(errors.KindPrivilege, "dscl %v failed: %s", args, res.Stderr)
		}
	}
	return nil
}

// RemoveDedicatedUser deletes DedicatedUser and DedicatedGroup,
// best-effort. Only uninstall --force calls this.
func RemoveDedicatedUser(ctx context.Context) error {
	if _, err := procrun.Run(ctx, userOpTimeout, "dscl", ".", "-delete", "/Users/"+DedicatedUser); err != nil {
		return err
	}
	if _, err := procrun.Run(ctx, userOpTimeout, "dscl", ".", "-delete", "/Groups/"+DedicatedGroup); err != nil {
		return err
	}
	return nil
}

// findFreeSystemID scans dscl for an unused UID at or above baseUID.
func findFreeSystemID(ctx context.Context) (int, error) {
	res, err := procrun.Run(ctx, userOpTimeout, "dscl", ".", "-list", "/Users", "UniqueID")
	if err != nil {
		return 0, errors.Wrap(err, errors.KindPlatform, "dscl -list Users")
	}

	used := map[int]bool{}
	for _, line := range splitLines(res.Stdout) {
		fields := splitFields(line)
		if len(fields) < 2 {
			continue
		}
		if id, convErr := strconv.Atoi(fields[len(fields)-1]); convErr == nil {
			used[id] = true
		}
	}

	for id := baseUID; id < baseUID+100; id++ {
		if !used[id] {
			return id, nil
		}
	}
	return 0, errors.New(errors.KindPlatform, "no free system UID found for dedicated user")
}
