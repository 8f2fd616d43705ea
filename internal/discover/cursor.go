package discover

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// cursorChatKeys are the two ItemTable keys Cursor uses for
// chat data. Presence of either one means the workspace has
// conversation history worth syncing.
var cursorChatKeys = []string{
	"aiService.prompts",
	"workbench.panel.aichat.view.aichat.chatdata",
}

// DiscoverCursor probes the candidate Cursor user-data dirs for
// workspace storage and file history. It returns the discovered
// locations, the base directory to symlink ("" when nothing was
// found), and warnings for workspaces whose embedded database
// could not be read. A corrupt database never aborts discovery.
func DiscoverCursor(
	userDirs []string, hostname string,
) ([]Location, string, []string) {
	var locations []Location
	var warnings []string
	base := ""

	for _, userDir := range userDirs {
		found := false

		wsDir := filepath.Join(userDir, "workspaceStorage")
		wsLocs, wsWarnings := scanWorkspaceStorage(
			wsDir, hostname,
		)
		if len(wsLocs) > 0 {
			found = true
		}
		locations = append(locations, wsLocs...)
		warnings = append(warnings, wsWarnings...)

		histDir := filepath.Join(userDir, "History")
		if loc, ok := scanFileHistory(histDir, hostname); ok {
			locations = append(locations, loc)
			found = true
		}

		if found && base == "" {
			base = CursorBaseFor(userDir)
		}
	}

	sort.Slice(locations, func(i, j int) bool {
		return locations[i].Path < locations[j].Path
	})
	return locations, base, warnings
}

// scanWorkspaceStorage walks a workspaceStorage directory and
// returns one location per workspace, inspecting each embedded
// state database for chat keys.
func scanWorkspaceStorage(
	wsDir, hostname string,
) ([]Location, []string) {
	entries, err := os.ReadDir(wsDir)
	if err != nil {
		return nil, nil
	}

	var locations []Location
	var warnings []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		wsPath := filepath.Join(wsDir, entry.Name())
		dbPath := filepath.Join(wsPath, "state.vscdb")

		loc := Location{
			Tool:    ToolCursor,
			Host:    hostname,
			Kind:    KindLocal,
			Path:    wsPath,
			Project: shortWorkspaceName(entry.Name()),
		}

		if _, err := os.Stat(dbPath); err == nil {
			loc.SessionCount = 1
			hasChat, err := hasChatData(dbPath)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf(
					"skipping state db %s: %v", dbPath, err,
				))
			}
			loc.HasChatData = hasChat
		}
		locations = append(locations, loc)
	}
	return locations, warnings
}

// scanFileHistory checks a User/History directory and returns a
// single aggregate location when it contains history entries.
func scanFileHistory(
	histDir, hostname string,
) (Location, bool) {
	entries, err := os.ReadDir(histDir)
	if err != nil {
		return Location{}, false
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() {
			n++
		}
	}
	if n == 0 {
		return Location{}, false
	}
	return Location{
		Tool:         ToolCursor,
		Host:         hostname,
		Kind:         KindLocal,
		Path:         histDir,
		Project:      "_file_history",
		SessionCount: n,
	}, true
}

// hasChatData opens a state.vscdb read-only and reports whether
// either known chat key is present in ItemTable. The database is
// never written.
func hasChatData(dbPath string) (bool, error) {
	db, err := sql.Open(
		"sqlite3", fmt.Sprintf("file:%s?mode=ro", dbPath),
	)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer db.Close()

	var n int
	err = db.QueryRow(
		`SELECT COUNT(*) FROM ItemTable WHERE key IN (?, ?)`,
		cursorChatKeys[0], cursorChatKeys[1],
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", dbPath, err)
	}
	return n > 0, nil
}

// shortWorkspaceName abbreviates a workspace storage hash for
// display, matching the report format.
func shortWorkspaceName(name string) string {
	if len(name) <= 12 {
		return name
	}
	return name[:12] + "..."
}

// CursorBaseFor maps a User data dir back to the installation
// base directory that consolidation should symlink. The
// cursor-server layout nests User under data/.
func CursorBaseFor(userDir string) string {
	sep := string(filepath.Separator)
	if strings.HasSuffix(
		userDir, sep+filepath.Join("data", "User"),
	) {
		return filepath.Dir(filepath.Dir(userDir))
	}
	if strings.HasSuffix(userDir, sep+"User") {
		return filepath.Dir(userDir)
	}
	return userDir
}
