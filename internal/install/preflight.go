// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/procrun"
)

const preflightTimeout = 5 * time.Second

// PortBlocker describes a foreign process already bound to loopback:53.
type PortBlocker struct {
	PID     int
	Command string
}

// CheckPort53 refuses install if something other than our own previously
// installed resolver is already listening on 127.0.0.1:53. A nil, nil
// result means the port is free or already owned by
// our own dnsmasq instance (matched by DnsmasqPIDPath).
func CheckPort53(ctx context.Context) (*PortBlocker, error) {
	res, err := procrun.Run(ctx, preflightTimeout, "lsof", "-nP", "-i", ":53")
	if err != nil {
		// lsof missing entirely is a platform problem, not a conflict;
		// let the caller decide whether that's fatal.
		return nil, errors.Wrap(err, errors.KindPlatform, "run lsof to preflight port 53")
	}
	blocker := parseLsofOutput(res.ExitCode, res.Stdout)
	if blocker == nil {
		return nil, nil
	}

	if ourPID, err := readPID(DnsmasqPIDPath()); err == nil && ourPID == blocker.PID {
		return nil, nil
	}

	return blocker, nil
}

// parseLsofOutput interprets `lsof -nP -i :53` output: a header line
// followed by one line per socket bound to port 53. Only the first is
// reported; any is enough to refuse install.
func parseLsofOutput(exitCode int, stdout string) *PortBlocker {
	if exitCode != 0 || strings.TrimSpace(stdout) == "" {
		return nil
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) < 2 {
		return nil
	}

	// lsof's default columns: COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME
	fields := strings.Fields(lines[1])
	if len(fields) < 2 {
		return nil
	}
	pid, _ := strconv.Atoi(fields[1])
	return &PortBlocker{PID: pid, Command: fields[0]}
}

func readPID(path string) (int, error) {
	data, err := readFileTrimmed(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(data)
}
