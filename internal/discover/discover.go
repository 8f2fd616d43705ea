// Package discover probes the well-known Claude Code and Cursor
// history locations on the local machine and reports what exists.
// Discovery never mutates anything and treats absence as a normal
// result rather than an error.
package discover

import (
	"os"

	"github.com/wesm/historysync/internal/config"
)

// All runs a full discovery pass using the directories from cfg.
func All(cfg config.Config) Report {
	hostname := Hostname()

	claudeLocs, claudeBase := DiscoverClaude(
		cfg.ClaudeDir, hostname,
	)
	cursorLocs, cursorBase, warnings := DiscoverCursor(
		cfg.CursorDirs, hostname,
	)

	return Report{
		Hostname:   hostname,
		ClaudeBase: claudeBase,
		CursorBase: cursorBase,
		Locations:  append(claudeLocs, cursorLocs...),
		Warnings:   warnings,
	}
}

// Hostname returns the local hostname, or "unknown" when the
// OS won't say.
func Hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}
