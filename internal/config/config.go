package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	OutputDir string `json:"output_dir"`
	DataDir   string `json:"data_dir"`

	ClaudeDir  string   `json:"claude_dir"`
	CursorDirs []string `json:"cursor_dirs,omitempty"`

	// Remote candidate paths probed over SSH before syncing.
	// These are fixed literal paths (with ~ expanded by the
	// remote shell), not derived from remote OS detection.
	RemoteClaudePaths []string `json:"remote_claude_paths,omitempty"`
	RemoteCursorPaths []string `json:"remote_cursor_paths,omitempty"`

	// Full command strings for the external transports, split
	// with shlex before use. Overridable for non-standard rsync
	// or ssh wrappers.
	RsyncCommand string `json:"rsync_command,omitempty"`
	SSHCommand   string `json:"ssh_command,omitempty"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return DefaultForHome(home), nil
}

// DefaultForHome returns the default Config rooted at an
// explicit home directory. Used by discover --home and tests.
func DefaultForHome(home string) Config {
	return Config{
		OutputDir: filepath.Join(home, ".history-sync"),
		DataDir:   filepath.Join(home, ".historysync"),
		ClaudeDir: filepath.Join(home, ".claude"),
		CursorDirs: []string{
			// Linux desktop
			filepath.Join(home, ".config", "Cursor", "User"),
			// Linux server / remote (cursor-server)
			filepath.Join(home, ".cursor-server", "data", "User"),
			// macOS
			filepath.Join(
				home, "Library", "Application Support",
				"Cursor", "User",
			),
		},
		RemoteClaudePaths: []string{"~/.claude"},
		RemoteCursorPaths: []string{
			"~/.cursor-server",
			"~/.config/Cursor",
			"~/.cursor",
		},
		RsyncCommand: "rsync -avz --progress --delete",
		SSHCommand:   "ssh",
	}
}

// Load builds a Config by layering: defaults < config file < env < flags.
// The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, env, and config file,
// without applying CLI flags. Use this for subcommands that manage
// their own flag sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	cfg.loadEnv()

	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		OutputDir         string   `json:"output_dir"`
		ClaudeDir         string   `json:"claude_dir"`
		CursorDirs        []string `json:"cursor_dirs"`
		RemoteClaudePaths []string `json:"remote_claude_paths"`
		RemoteCursorPaths []string `json:"remote_cursor_paths"`
		RsyncCommand      string   `json:"rsync_command"`
		SSHCommand        string   `json:"ssh_command"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	// loadEnv runs before loadFile; a set env var wins over
	// the corresponding file value.
	if file.OutputDir != "" && os.Getenv("HISTORYSYNC_OUTPUT_DIR") == "" {
		c.OutputDir = file.OutputDir
	}
	if file.ClaudeDir != "" && os.Getenv("CLAUDE_DIR") == "" {
		c.ClaudeDir = file.ClaudeDir
	}
	if len(file.CursorDirs) > 0 && os.Getenv("CURSOR_DIR") == "" {
		c.CursorDirs = file.CursorDirs
	}
	if len(file.RemoteClaudePaths) > 0 {
		c.RemoteClaudePaths = file.RemoteClaudePaths
	}
	if len(file.RemoteCursorPaths) > 0 {
		c.RemoteCursorPaths = file.RemoteCursorPaths
	}
	if file.RsyncCommand != "" {
		c.RsyncCommand = file.RsyncCommand
	}
	if file.SSHCommand != "" {
		c.SSHCommand = file.SSHCommand
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("HISTORYSYNC_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("HISTORYSYNC_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CLAUDE_DIR"); v != "" {
		c.ClaudeDir = v
	}
	if v := os.Getenv("CURSOR_DIR"); v != "" {
		c.CursorDirs = []string{v}
	}
}

// RegisterOutputFlag registers the shared --output flag on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterOutputFlag(fs *flag.FlagSet) {
	fs.String(
		"output", "",
		"Output directory for consolidated histories",
	)
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "output" && f.Value.String() != "" {
			cfg.OutputDir = f.Value.String()
		}
	})
}

// ResolveDataDir returns the effective data directory by applying
// defaults and environment overrides, without reading any files.
func ResolveDataDir() (string, error) {
	cfg, err := Default()
	if err != nil {
		return "", err
	}
	if v := os.Getenv("HISTORYSYNC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	return cfg.DataDir, nil
}
