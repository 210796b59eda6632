// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package resolverctl signals the dnsmasq resolver process to reload and
// verifies liveness.
package resolverctl

import (
	"context"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/logging"
)

// Controller reloads the resolver by PID-file SIGHUP, rate-limited so a
// burst of network-change notifications can't flood it with reloads.
type Controller struct {
	PIDPath string
	limiter *rate.Limiter
	log     logging.Logger
	canary  CanaryFunc
}

// CanaryFunc performs the optional post-reload NXDOMAIN probe.
// internal/dnsquery supplies the real implementation; tests inject a stub.
type CanaryFunc func(ctx context.Context, domain string) (nxdomain bool, err error)

// New returns a Controller that reloads at most once per minInterval, with
// a one-reload burst allowance for the common case of a single isolated
// trigger.
func New(pidPath string, minInterval time.Duration, canary CanaryFunc) *Controller {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Controller{
		PIDPath: pidPath,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		log:     logging.New("resolverctl"),
		canary:  canary,
	}
}

// ErrRetryable marks a reload failure the caller should retry on the next
// reconcile tick rather than treat as fatal.
type ErrRetryable struct{ msg string }

func (e *ErrRetryable) Error() string { return e.msg }

// Reload reads the resolver's PID file and sends SIGHUP. A missing or
// unparseable PID file, or ESRCH on the signal, is reported as a
// retryable "not running"/"stale PID" failure rather than a hard error.
// When canaryDomain is non-empty, a best-effort NXDOMAIN
// probe follows: its failure is logged but never blocks reload reporting.
func (c *Controller) Reload(ctx context.Context, canaryDomain string) error {
	if !c.limiter.Allow() {
		c.log.Debug("reload rate-limited, coalescing", "pid_path", c.PIDPath)
		return nil
	}

	pid, err := c.readPID()
	if err != nil {
		return &ErrRetryable{msg: "resolver not running: " + err.Error()}
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return &ErrRetryable{msg: "resolver not running: " + err.Error()}
	}

	if err := proc.Signal(syscall.SIGHUP); err != nil {
		if err == syscall.ESRCH {
			return &ErrRetryable{msg: "stale resolver PID " + strconv.Itoa(pid)}
		}
		return errors.Wrap(err, errors.KindTransientIO, "signal resolver")
	}

	if canaryDomain != "" && c.canary != nil {
		nx, probeErr := c.canary(ctx, canaryDomain)
		switch {
		case probeErr != nil:
			c.log.Warn("canary probe failed", "domain", canaryDomain, "err", probeErr)
		case !nx:
			c.log.Warn("canary probe did not return NXDOMAIN", "domain", canaryDomain)
		default:
			c.log.Debug("canary probe confirmed NXDOMAIN", "domain", canaryDomain)
		}
	}

	return nil
}

func (c *Controller) readPID() (int, error) {
	data, err := os.ReadFile(c.PIDPath)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(text)
	if err != nil {
		return 0, err
	}
	return pid, nil
}
