package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wesm/historysync/internal/config"
	"github.com/wesm/historysync/internal/pull"
)

// PullConfig holds parsed CLI options for the pull command.
type PullConfig struct {
	Hosts    []string
	Port     int
	Identity string
	DryRun   bool
	Claude   bool
	Cursor   bool
}

func parsePullFlags(
	args []string,
) (PullConfig, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("pull", flag.ContinueOnError)
	config.RegisterOutputFlag(fs)
	port := fs.Int("port", 22, "SSH port")
	identity := fs.String("identity", "", "SSH identity file")
	dryRun := fs.Bool(
		"dry-run", false,
		"Print the rsync commands without running them",
	)
	noClaude := fs.Bool(
		"no-claude", false, "Skip Claude Code histories",
	)
	noCursor := fs.Bool(
		"no-cursor", false, "Skip Cursor histories",
	)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(),
			"Usage: historysync pull HOST... [flags]")
		fmt.Fprintln(fs.Output(),
			"\nHosts are user@host or bare host names.")
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return PullConfig{}, nil, err
	}

	// flag stops at the first positional argument, so in
	// "pull HOST --no-cursor" the flag would land in Args().
	// Take one host at a time and re-parse the remainder.
	var hosts []string
	rest := fs.Args()
	for len(rest) > 0 {
		hosts = append(hosts, rest[0])
		if err := fs.Parse(rest[1:]); err != nil {
			return PullConfig{}, nil, err
		}
		rest = fs.Args()
	}
	if len(hosts) == 0 {
		return PullConfig{}, nil, fmt.Errorf(
			"at least one host is required",
		)
	}
	if *port <= 0 || *port > 65535 {
		return PullConfig{}, nil, fmt.Errorf(
			"invalid port %d", *port,
		)
	}
	if *noClaude && *noCursor {
		return PullConfig{}, nil, fmt.Errorf(
			"nothing to sync with both --no-claude and --no-cursor",
		)
	}

	return PullConfig{
		Hosts:    hosts,
		Port:     *port,
		Identity: *identity,
		DryRun:   *dryRun,
		Claude:   !*noClaude,
		Cursor:   !*noCursor,
	}, fs, nil
}

func runPull(args []string) {
	pc, fs, err := parsePullFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "historysync pull: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	hosts := make([]pull.Host, 0, len(pc.Hosts))
	for _, h := range pc.Hosts {
		hosts = append(
			hosts, pull.ParseHost(h, pc.Port, pc.Identity),
		)
	}

	puller := &pull.Puller{
		Runner: pull.ExecRunner{},
		Out:    os.Stdout,
		Opts: pull.Options{
			OutputDir:         cfg.OutputDir,
			DryRun:            pc.DryRun,
			Claude:            pc.Claude,
			Cursor:            pc.Cursor,
			RemoteClaudePaths: cfg.RemoteClaudePaths,
			RemoteCursorPaths: cfg.RemoteCursorPaths,
			RsyncCommand:      cfg.RsyncCommand,
			SSHCommand:        cfg.SSHCommand,
		},
	}

	summary := puller.PullAll(hosts)
	if summary.Failed() {
		os.Exit(1)
	}
}
