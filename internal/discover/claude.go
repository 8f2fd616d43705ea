package discover

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// maxIndexLineSize bounds a single history.jsonl line. Index
// entries are small; 1 MiB is generous headroom.
const maxIndexLineSize = 1 << 20

// DiscoverClaude probes claudeDir for Claude Code history data.
// It returns the discovered locations and the base directory
// ("" when claudeDir does not exist). An absent or unreadable
// path is not an error; it simply yields no locations.
func DiscoverClaude(claudeDir, hostname string) ([]Location, string) {
	info, err := os.Stat(claudeDir)
	if err != nil || !info.IsDir() {
		return nil, ""
	}

	var locations []Location

	indexPath := filepath.Join(claudeDir, "history.jsonl")
	if n, ok := countIndexEntries(indexPath); ok {
		locations = append(locations, Location{
			Tool:         ToolClaude,
			Host:         hostname,
			Kind:         KindLocal,
			Path:         indexPath,
			Project:      "_index",
			SessionCount: n,
		})
	}

	projectsDir := filepath.Join(claudeDir, "projects")
	entries, err := os.ReadDir(projectsDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() ||
				strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			projDir := filepath.Join(projectsDir, entry.Name())
			n := countSessionFiles(projDir)
			if n == 0 {
				continue
			}
			locations = append(locations, Location{
				Tool:         ToolClaude,
				Host:         hostname,
				Kind:         KindLocal,
				Path:         projDir,
				Project:      DecodeProjectDir(entry.Name()),
				SessionCount: n,
			})
		}
	}

	sort.Slice(locations, func(i, j int) bool {
		return locations[i].Path < locations[j].Path
	})
	return locations, claudeDir
}

// countIndexEntries counts history.jsonl lines that look like
// real index entries (a JSON object with a display field).
// Returns ok=false when the file does not exist or is unreadable.
func countIndexEntries(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	n := 0
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), maxIndexLineSize)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if gjson.Get(line, "display").Exists() {
			n++
		}
	}
	// An oversized line aborts the scan; an undercounted index
	// is worse than no index.
	if s.Err() != nil {
		return 0, false
	}
	return n, true
}

// countSessionFiles counts JSONL session files directly under
// a project directory, excluding subagent files.
func countSessionFiles(projDir string) int {
	entries, err := os.ReadDir(projDir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		if strings.HasPrefix(name, "agent-") {
			continue
		}
		n++
	}
	return n
}

// DecodeProjectDir recovers a project path from the hyphen
// encoding Claude Code uses for project directory names, e.g.
// "-home-user-src-myapp" becomes "home/user/src/myapp".
func DecodeProjectDir(dirName string) string {
	name := strings.ReplaceAll(dirName, "-", "/")
	return strings.TrimPrefix(name, "/")
}
