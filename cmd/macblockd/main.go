// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command macblockd is the reconcile daemon. launchd supervises it; it is
// not meant to be started by hand except when debugging with -tick and a
// MACBLOCK_*_DIR environment pointing at a scratch prefix.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spyicydev/macblock/internal/config"
	"github.com/spyicydev/macblock/internal/daemon"
	"github.com/spyicydev/macblock/internal/dnsquery"
	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/install"
	"github.com/spyicydev/macblock/internal/logging"
	"github.com/spyicydev/macblock/internal/resolverctl"
	"github.com/spyicydev/macblock/internal/sysdns"
)

func main() {
	tick := flag.Duration("tick", 0, "override the reconcile tick interval (debugging)")
	flag.Parse()

	if err := run(*tick); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(errors.GetKind(err).ExitCode())
	}
}

func run(tickOverride time.Duration) error {
	cfg, err := config.LoadDaemon(install.DaemonHCLPath())
	if err != nil {
		return err
	}

	closeLog, err := logging.Init(install.DaemonLogPath())
	if err != nil {
		return errors.Wrapf(err, errors.KindPlatform, "open log file %s", install.DaemonLogPath())
	}
	defer closeLog()

	tuning := daemon.Tuning{
		ReconcileTick:           cfg.ReconcileTickDuration(),
		NetworkReadyTimeout:     cfg.NetworkReadyTimeoutDuration(),
		ConsecutiveFailureLimit: cfg.ConsecutiveFailureLimit,
	}
	if tickOverride > 0 {
		tuning.ReconcileTick = tickOverride
	}

	paths := daemon.Paths{
		StatePath:        install.StatePath(),
		ExcludePath:      install.ExcludePath(),
		FallbacksPath:    install.FallbacksPath(),
		UpstreamConfPath: install.UpstreamConfPath(),
		BlocklistRawPath: install.BlocklistRawPath(),
		PIDPath:          install.DaemonPIDPath(),
		ReadyPath:        install.DaemonReadyPath(),
		LastApplyPath:    install.DaemonLastApplyPath(),
		MetricsPath:      install.MetricsPath(),
		ResolverPIDPath:  install.DnsmasqPIDPath(),
	}

	resolv := resolverctl.New(paths.ResolverPIDPath, time.Second, dnsquery.Canary)
	d := daemon.New(paths, tuning, sysdns.New(), resolv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)

	return d.Run(ctx, usr1)
}
