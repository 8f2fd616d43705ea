package discover

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverClaude_Missing(t *testing.T) {
	home := t.TempDir()
	locs, base := DiscoverClaude(
		filepath.Join(home, ".claude"), "myhost",
	)
	assert.Empty(t, locs)
	assert.Equal(t, "", base)
}

func TestDiscoverClaude_IndexAndProjects(t *testing.T) {
	home := t.TempDir()
	claudeDir := filepath.Join(home, ".claude")

	// Two real index entries, one blank line, one junk line.
	writeFile(t, filepath.Join(claudeDir, "history.jsonl"),
		`{"display": "fix the tests", "project": "/home/u/src/app"}

not json
{"display": "add logging", "project": "/home/u/src/app"}
`)

	projDir := filepath.Join(
		claudeDir, "projects", "-home-u-src-app",
	)
	writeFile(t, filepath.Join(projDir, "abc123.jsonl"), "{}\n")
	writeFile(t, filepath.Join(projDir, "def456.jsonl"), "{}\n")
	// Subagent files don't count as sessions.
	writeFile(t, filepath.Join(projDir, "agent-xyz.jsonl"), "{}\n")
	// Non-JSONL files are ignored.
	writeFile(t, filepath.Join(projDir, "notes.txt"), "hi\n")

	// Hidden and empty project dirs produce no locations.
	writeFile(t, filepath.Join(
		claudeDir, "projects", ".hidden", "x.jsonl",
	), "{}\n")
	require.NoError(t, os.MkdirAll(filepath.Join(
		claudeDir, "projects", "-home-u-src-empty",
	), 0o755))

	locs, base := DiscoverClaude(claudeDir, "myhost")
	assert.Equal(t, claudeDir, base)
	require.Len(t, locs, 2)

	index := locs[0]
	assert.Equal(t, ToolClaude, index.Tool)
	assert.Equal(t, KindLocal, index.Kind)
	assert.Equal(t, "_index", index.Project)
	assert.Equal(t, 2, index.SessionCount)

	proj := locs[1]
	assert.Equal(t, "home/u/src/app", proj.Project)
	assert.Equal(t, 2, proj.SessionCount)
	assert.Equal(t, projDir, proj.Path)
	assert.Equal(t, "myhost", proj.Host)
}

func TestDiscoverClaude_NoIndex(t *testing.T) {
	home := t.TempDir()
	claudeDir := filepath.Join(home, ".claude")
	projDir := filepath.Join(
		claudeDir, "projects", "-tmp-scratch",
	)
	writeFile(t, filepath.Join(projDir, "s1.jsonl"), "{}\n")

	locs, base := DiscoverClaude(claudeDir, "h")
	assert.Equal(t, claudeDir, base)
	require.Len(t, locs, 1)
	assert.Equal(t, "tmp/scratch", locs[0].Project)
}

func TestCountIndexEntries_OversizedLine(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "history.jsonl")

	// A line past the scanner's buffer limit aborts the scan.
	// The index must read as unreadable, not undercounted.
	huge := `{"display": "` +
		strings.Repeat("x", maxIndexLineSize+1) + `"}`
	writeFile(t, path,
		`{"display": "first"}
`+huge+`
{"display": "last"}
`)

	n, ok := countIndexEntries(path)
	assert.False(t, ok)
	assert.Equal(t, 0, n)
}

func TestDecodeProjectDir(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"-home-u-src-app", "home/u/src/app"},
		{"relative-path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(
			t, tt.want, DecodeProjectDir(tt.in),
			"input %q", tt.in,
		)
	}
}
