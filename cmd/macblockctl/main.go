// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command macblockctl is the control surface for the macblock daemon:
// enable/disable/pause blocking, manage the allow/deny lists and blocklist
// sources, and inspect daemon health. Each subcommand maps onto one Run*
// function in the cmd package.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spyicydev/macblock/cmd"
)

const usage = `usage: macblockctl <command> [args]

commands:
  install [--force] [--skip-update]   set up the resolver and daemon (root)
  uninstall [--force]                 restore DNS and remove everything (root)
  enable | disable                    turn blocking on or off
  pause <duration>                    suspend blocking (e.g. 30m, 2h, 1d)
  resume                              end a pause early
  update [--source <name|url>]        download and compile the blocklist
  sources list | set <name>           choose the blocklist source
  allow add|remove|list [<domain>]    domains never blocked
  deny add|remove|list [<domain>]     domains always blocked
  upstreams list|set|reset [<ip>...]  fallback DNS upstreams
  status | doctor                     daemon and resolver health
  logs [--follow] [--stream <s>]      daemon log output
  test <domain>                       query the local resolver for a domain
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx := context.Background()
	err := dispatch(ctx, os.Args[1], os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}

func dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "install":
		fs := flag.NewFlagSet("install", flag.ExitOnError)
		force := fs.Bool("force", false, "overwrite an existing installation")
		skipUpdate := fs.Bool("skip-update", false, "defer the first blocklist compile")
		fs.Parse(args)
		return cmd.RunInstall(ctx, *force, *skipUpdate)

	case "uninstall":
		fs := flag.NewFlagSet("uninstall", flag.ExitOnError)
		force := fs.Bool("force", false, "continue past per-file removal failures")
		fs.Parse(args)
		return cmd.RunUninstall(ctx, *force)

	case "enable":
		return cmd.RunEnable()
	case "disable":
		return cmd.RunDisable()

	case "pause":
		if len(args) != 1 {
			return usageError("pause <duration>")
		}
		return cmd.RunPause(args[0])
	case "resume":
		return cmd.RunResume()

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		source := fs.String("source", "", "blocklist source name or URL")
		fs.Parse(args)
		return cmd.RunUpdate(ctx, *source)

	case "sources":
		if len(args) >= 1 && args[0] == "list" {
			return cmd.RunSourcesList()
		}
		if len(args) == 2 && args[0] == "set" {
			return cmd.RunSourcesSet(args[1])
		}
		return usageError("sources list | sources set <name>")

	case "allow":
		return dispatchList(ctx, args, cmd.RunAllowAdd, cmd.RunAllowRemove, cmd.RunAllowList)
	case "deny":
		return dispatchList(ctx, args, cmd.RunDenyAdd, cmd.RunDenyRemove, cmd.RunDenyList)

	case "upstreams":
		if len(args) >= 1 {
			switch args[0] {
			case "list":
				return cmd.RunUpstreamsList()
			case "set":
				if len(args) < 2 {
					return usageError("upstreams set <ip> [<ip>...]")
				}
				return cmd.RunUpstreamsSet(args[1:])
			case "reset":
				return cmd.RunUpstreamsReset()
			}
		}
		return usageError("upstreams list | set <ip>... | reset")

	case "status":
		return cmd.RunStatus()
	case "doctor":
		return cmd.RunDoctor()

	case "logs":
		fs := flag.NewFlagSet("logs", flag.ExitOnError)
		follow := fs.Bool("follow", false, "keep tailing as new lines arrive")
		stream := fs.String("stream", "auto", "stdout, stderr, or auto")
		fs.Parse(args)
		return cmd.RunLogs(ctx, *follow, *stream)

	case "test":
		if len(args) != 1 {
			return usageError("test <domain>")
		}
		return cmd.RunTest(ctx, args[0])

	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", command)
}

// dispatchList handles the shared add|remove|list shape of the allow and
// deny subcommands.
func dispatchList(ctx context.Context, args []string, add, remove func(context.Context, string) error, list func() error) error {
	if len(args) >= 1 {
		switch args[0] {
		case "add":
			if len(args) == 2 {
				return add(ctx, args[1])
			}
		case "remove":
			if len(args) == 2 {
				return remove(ctx, args[1])
			}
		case "list":
			return list()
		}
	}
	return usageError("add <domain> | remove <domain> | list")
}

func usageError(want string) error {
	return fmt.Errorf("usage: macblockctl %s", want)
}
