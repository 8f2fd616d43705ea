package discover

// Tool identifies a supported coding assistant.
type Tool string

const (
	ToolClaude Tool = "claude-code"
	ToolCursor Tool = "cursor"
)

// Kind says whether a location lives on this machine or was
// copied here from a remote one.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Location is one discovered history location.
type Location struct {
	Tool         Tool   `json:"tool"`
	Host         string `json:"host,omitempty"`
	Kind         Kind   `json:"kind"`
	Path         string `json:"path"`
	Project      string `json:"project_name,omitempty"`
	SessionCount int    `json:"session_count"`
	HasChatData  bool   `json:"has_chat_data,omitempty"`
}

// Report holds the results of a discovery pass over one host.
type Report struct {
	Hostname   string     `json:"hostname"`
	ClaudeBase string     `json:"claude_code_base,omitempty"`
	CursorBase string     `json:"cursor_base,omitempty"`
	Locations  []Location `json:"locations"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// ByTool returns the locations matching tool, in report order.
func (r *Report) ByTool(tool Tool) []Location {
	var out []Location
	for _, loc := range r.Locations {
		if loc.Tool == tool {
			out = append(out, loc)
		}
	}
	return out
}
