package discover

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createStateDB writes a minimal state.vscdb with the given
// ItemTable keys.
func createStateDB(t *testing.T, path string, keys ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(
		`CREATE TABLE ItemTable (key TEXT PRIMARY KEY, value BLOB)`,
	)
	require.NoError(t, err)
	for _, key := range keys {
		_, err = db.Exec(
			`INSERT INTO ItemTable (key, value) VALUES (?, ?)`,
			key, "[]",
		)
		require.NoError(t, err)
	}
}

func TestDiscoverCursor_Missing(t *testing.T) {
	home := t.TempDir()
	locs, base, warnings := DiscoverCursor(
		[]string{filepath.Join(home, ".config", "Cursor", "User")},
		"myhost",
	)
	assert.Empty(t, locs)
	assert.Equal(t, "", base)
	assert.Empty(t, warnings)
}

func TestDiscoverCursor_Workspaces(t *testing.T) {
	home := t.TempDir()
	userDir := filepath.Join(home, ".config", "Cursor", "User")
	wsDir := filepath.Join(userDir, "workspaceStorage")

	// Workspace with chat data.
	createStateDB(t,
		filepath.Join(wsDir, "aaaa1111bbbb2222", "state.vscdb"),
		"aiService.prompts",
	)
	// Workspace with a state db but no chat keys.
	createStateDB(t,
		filepath.Join(wsDir, "cccc3333dddd4444", "state.vscdb"),
		"some.other.key",
	)
	// Workspace with no state db at all.
	require.NoError(t, os.MkdirAll(
		filepath.Join(wsDir, "eeee5555ffff6666"), 0o755,
	))

	locs, base, warnings := DiscoverCursor(
		[]string{userDir}, "myhost",
	)
	assert.Empty(t, warnings)
	assert.Equal(
		t, filepath.Join(home, ".config", "Cursor"), base,
	)
	require.Len(t, locs, 3)

	byName := map[string]Location{}
	for _, loc := range locs {
		byName[filepath.Base(loc.Path)] = loc
	}

	withChat := byName["aaaa1111bbbb2222"]
	assert.True(t, withChat.HasChatData)
	assert.Equal(t, 1, withChat.SessionCount)
	assert.Equal(t, "aaaa1111bbbb...", withChat.Project)

	noChat := byName["cccc3333dddd4444"]
	assert.False(t, noChat.HasChatData)
	assert.Equal(t, 1, noChat.SessionCount)

	noDB := byName["eeee5555ffff6666"]
	assert.False(t, noDB.HasChatData)
	assert.Equal(t, 0, noDB.SessionCount)
}

func TestDiscoverCursor_CorruptDB(t *testing.T) {
	home := t.TempDir()
	userDir := filepath.Join(home, ".cursor-server", "data", "User")
	dbPath := filepath.Join(
		userDir, "workspaceStorage", "broken01", "state.vscdb",
	)
	writeFile(t, dbPath, "this is not a sqlite database at all")

	locs, base, warnings := DiscoverCursor(
		[]string{userDir}, "myhost",
	)
	require.Len(t, locs, 1)
	assert.False(t, locs[0].HasChatData)
	assert.Equal(t, 1, locs[0].SessionCount)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "state.vscdb")
	// Corrupt data still counts as a cursor installation.
	assert.Equal(
		t, filepath.Join(home, ".cursor-server"), base,
	)
}

func TestDiscoverCursor_FileHistory(t *testing.T) {
	home := t.TempDir()
	userDir := filepath.Join(home, ".config", "Cursor", "User")
	histDir := filepath.Join(userDir, "History")
	require.NoError(t, os.MkdirAll(
		filepath.Join(histDir, "-12ab34cd"), 0o755,
	))
	require.NoError(t, os.MkdirAll(
		filepath.Join(histDir, "-56ef78ab"), 0o755,
	))
	// Stray files under History don't count.
	writeFile(t, filepath.Join(histDir, "entries.json"), "{}")

	locs, base, warnings := DiscoverCursor(
		[]string{userDir}, "myhost",
	)
	assert.Empty(t, warnings)
	assert.Equal(
		t, filepath.Join(home, ".config", "Cursor"), base,
	)
	require.Len(t, locs, 1)
	assert.Equal(t, "_file_history", locs[0].Project)
	assert.Equal(t, 2, locs[0].SessionCount)
}

func TestCursorBaseFor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			filepath.Join("/h", ".config", "Cursor", "User"),
			filepath.Join("/h", ".config", "Cursor"),
		},
		{
			filepath.Join("/h", ".cursor-server", "data", "User"),
			filepath.Join("/h", ".cursor-server"),
		},
		{
			filepath.Join(
				"/h", "Library", "Application Support",
				"Cursor", "User",
			),
			filepath.Join(
				"/h", "Library", "Application Support", "Cursor",
			),
		},
		{filepath.Join("/h", "odd-layout"),
			filepath.Join("/h", "odd-layout")},
	}
	for _, tt := range tests {
		assert.Equal(
			t, tt.want, CursorBaseFor(tt.in),
			"input %q", tt.in,
		)
	}
}
