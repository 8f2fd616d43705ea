package main

import (
	"fmt"
	"os"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "discover":
		runDiscover(os.Args[2:])
	case "consolidate":
		runConsolidate(os.Args[2:])
	case "pull":
		runPull(os.Args[2:])
	case "update":
		runUpdate(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("historysync %s (commit %s, built %s)\n",
			version, commit, buildDate)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(
			os.Stderr, "unknown command %q\n\n", os.Args[1],
		)
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Printf(`historysync %s - consolidate AI coding-assistant histories

Discovers Claude Code and Cursor conversation history on local
and remote machines, symlinks local data into one tree, and
pulls remote data with rsync over SSH.

Usage:
  historysync discover [flags]      Report what exists on this host
  historysync consolidate [flags]   Symlink local histories into the tree
  historysync pull HOST... [flags]  Rsync histories from remote hosts
  historysync update [flags]        Check for and install updates
  historysync version               Show version information
  historysync help                  Show this help

Discover flags:
  --json              Output as JSON
  --home DIR          Override home directory

Consolidate flags:
  --output DIR        Output directory (default ~/.history-sync)
  --force             Replace symlinks that point elsewhere
  --list              List the consolidated tree, change nothing

Pull flags:
  --output DIR        Output directory (default ~/.history-sync)
  --dry-run           Print the rsync commands without running them
  --port N            SSH port (default 22)
  --identity FILE     SSH identity file
  --no-claude         Skip Claude Code histories
  --no-cursor         Skip Cursor histories

Update flags:
  --check             Check for updates without installing
  --yes               Install without confirmation prompt
  --force             Force check (ignore cache)

Environment variables:
  CLAUDE_DIR                Claude Code data directory
  CURSOR_DIR                Cursor user-data directory
  HISTORYSYNC_OUTPUT_DIR    Consolidated tree location
  HISTORYSYNC_DATA_DIR      Config/cache directory

The consolidated tree lives in ~/.history-sync by default.
`, version)
}
