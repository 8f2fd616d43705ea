package discover

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WriteJSON writes the report as indented JSON. Locations is
// always an array, never null, so empty discoveries serialize
// as an empty list.
func WriteJSON(w io.Writer, r Report) error {
	out := r
	if out.Locations == nil {
		out.Locations = []Location{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteText writes a human-readable discovery report.
func WriteText(w io.Writer, r Report) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "History Discovery Report - %s\n", r.Hostname)
	fmt.Fprintf(w, "%s\n\n", rule)

	writeToolSection(
		w, "Claude Code", r.ClaudeBase, r.ByTool(ToolClaude),
	)
	fmt.Fprintln(w)
	writeToolSection(
		w, "Cursor", r.CursorBase, r.ByTool(ToolCursor),
	)
	fmt.Fprintln(w)

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func writeToolSection(
	w io.Writer, label, base string, locs []Location,
) {
	if base == "" {
		fmt.Fprintf(w, "%s: Not found\n", label)
		return
	}
	fmt.Fprintf(w, "%s Base: %s\n", label, base)
	fmt.Fprintf(w, "  Found %d location(s):\n", len(locs))
	for _, loc := range locs {
		fmt.Fprintf(
			w, "    - %s: %d session(s)\n",
			loc.Project, loc.SessionCount,
		)
	}
}
