// Package tree manages the consolidated history tree: per-host
// symlinks for local tool data, the generated .gitignore that
// keeps copied host data out of version control, and a read-only
// listing of what the tree contains.
package tree

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wesm/historysync/internal/discover"
)

// LinkStatus describes the outcome of one symlink operation.
type LinkStatus string

const (
	LinkCreated  LinkStatus = "created"
	LinkSkipped  LinkStatus = "skipped"
	LinkReplaced LinkStatus = "replaced"
)

// Result summarizes a consolidation run.
type Result struct {
	HostDir  string
	Created  []string
	Skipped  []string
	Failures []string
}

// Failed reports whether any symlink could not be created.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Consolidate creates (or refreshes) the local host's tool
// symlinks under outputDir and rewrites the tree's .gitignore.
// A failure on one tool is recorded and does not stop the other.
func Consolidate(
	outputDir string,
	rep discover.Report,
	force bool,
	w io.Writer,
) (Result, error) {
	hostDir := filepath.Join(outputDir, rep.Hostname)
	if err := os.MkdirAll(hostDir, 0o755); err != nil {
		return Result{}, fmt.Errorf(
			"creating host dir: %w", err,
		)
	}
	res := Result{HostDir: hostDir}

	type link struct {
		tool   discover.Tool
		target string
	}
	var links []link
	if rep.ClaudeBase != "" {
		links = append(links, link{
			discover.ToolClaude, rep.ClaudeBase,
		})
	}
	if rep.CursorBase != "" {
		links = append(links, link{
			discover.ToolCursor, rep.CursorBase,
		})
	}
	if len(links) == 0 {
		fmt.Fprintln(w, "  No local histories found.")
	}

	for _, l := range links {
		path := filepath.Join(hostDir, string(l.tool))
		status, err := ensureSymlink(path, l.target, force)
		if err != nil {
			res.Failures = append(res.Failures, fmt.Sprintf(
				"%s: %v", l.tool, err,
			))
			fmt.Fprintf(w, "  %s: %v\n", l.tool, err)
			continue
		}
		switch status {
		case LinkSkipped:
			res.Skipped = append(res.Skipped, string(l.tool))
			fmt.Fprintf(
				w, "  %s: already exists, skipped\n", l.tool,
			)
		case LinkReplaced:
			res.Created = append(res.Created, string(l.tool))
			fmt.Fprintf(
				w, "  Replaced symlink: %s -> %s\n",
				path, l.target,
			)
		default:
			res.Created = append(res.Created, string(l.tool))
			fmt.Fprintf(
				w, "  Created symlink: %s -> %s\n",
				path, l.target,
			)
		}
	}

	if err := EnsureGitignore(outputDir); err != nil {
		return res, fmt.Errorf("writing .gitignore: %w", err)
	}
	return res, nil
}

// ensureSymlink makes path a symlink to target. An existing link
// that already points at target is left alone. Anything else in
// the way is replaced only when force is set.
func ensureSymlink(
	path, target string, force bool,
) (LinkStatus, error) {
	info, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		return LinkCreated, os.Symlink(target, path)
	case err != nil:
		return "", err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		existing, err := os.Readlink(path)
		if err == nil && existing == target {
			return LinkSkipped, nil
		}
	}
	if !force {
		return "", fmt.Errorf(
			"%s exists and does not point to %s (use --force)",
			path, target,
		)
	}
	if err := os.Remove(path); err != nil {
		return "", err
	}
	return LinkReplaced, os.Symlink(target, path)
}

// EnsureGitignore rewrites <outputDir>/.gitignore so that every
// copied host directory is excluded from version control while
// symlink-only hosts stay tracked.
func EnsureGitignore(outputDir string) error {
	copied, err := copiedHosts(outputDir)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(
		"# Generated by historysync.\n" +
			"# Copied remote host data stays out of version" +
			" control;\n# local symlink entries are tracked.\n\n",
	)
	for _, host := range copied {
		fmt.Fprintf(&b, "%s/\n", host)
	}
	b.WriteString(
		"\n# Pulled archives and platform noise\n" +
			"*.tar.gz\n*.zip\n.DS_Store\n",
	)

	path := filepath.Join(outputDir, ".gitignore")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// copiedHosts returns the sorted names of host directories that
// contain real (copied) tool directories rather than symlinks.
func copiedHosts(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, entry := range entries {
		if !entry.IsDir() ||
			strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		hostDir := filepath.Join(outputDir, entry.Name())
		tools, err := os.ReadDir(hostDir)
		if err != nil {
			continue
		}
		for _, tool := range tools {
			if tool.Type()&os.ModeSymlink != 0 {
				continue
			}
			if tool.IsDir() {
				hosts = append(hosts, entry.Name())
				break
			}
		}
	}
	sort.Strings(hosts)
	return hosts, nil
}

// List walks the consolidated tree and prints its hosts and
// tools without mutating anything.
func List(outputDir string, w io.Writer) error {
	entries, err := os.ReadDir(outputDir)
	if os.IsNotExist(err) {
		fmt.Fprintln(w, "No consolidated histories found.")
		fmt.Fprintf(
			w, "Run: historysync consolidate to create %s\n",
			outputDir,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", outputDir, err)
	}

	fmt.Fprintf(w, "\nConsolidated Histories: %s\n", outputDir)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if !entry.IsDir() ||
			strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fmt.Fprintf(w, "\n%s/\n", entry.Name())

		hostDir := filepath.Join(outputDir, entry.Name())
		tools, err := os.ReadDir(hostDir)
		if err != nil {
			fmt.Fprintf(w, "  (unreadable: %v)\n", err)
			continue
		}
		for _, tool := range tools {
			path := filepath.Join(hostDir, tool.Name())
			if tool.Type()&os.ModeSymlink != 0 {
				target, err := os.Readlink(path)
				if err != nil {
					target = "?"
				}
				fmt.Fprintf(
					w, "  %s -> %s (symlink)\n",
					tool.Name(), target,
				)
				continue
			}
			if tool.IsDir() {
				fmt.Fprintf(
					w, "  %s/ (%d files)\n",
					tool.Name(), countFiles(path),
				)
			}
		}
	}
	return nil
}

// countFiles counts regular files under dir recursively.
func countFiles(dir string) int {
	n := 0
	_ = filepath.WalkDir(dir, func(
		_ string, d fs.DirEntry, err error,
	) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	return n
}
