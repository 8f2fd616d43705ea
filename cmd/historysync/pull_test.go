package main

import (
	"strings"
	"testing"
)

func TestParsePullFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, cfg PullConfig)
	}{
		{
			name:    "no hosts",
			args:    []string{},
			wantErr: "at least one host",
		},
		{
			name: "single host defaults",
			args: []string{"fiona@devbox"},
			check: func(t *testing.T, cfg PullConfig) {
				t.Helper()
				if len(cfg.Hosts) != 1 ||
					cfg.Hosts[0] != "fiona@devbox" {
					t.Errorf("Hosts = %v", cfg.Hosts)
				}
				if cfg.Port != 22 {
					t.Errorf("Port = %d", cfg.Port)
				}
				if !cfg.Claude || !cfg.Cursor {
					t.Error("both tools should default on")
				}
				if cfg.DryRun {
					t.Error("DryRun should default off")
				}
			},
		},
		{
			name: "all flags and multiple hosts",
			args: []string{
				"--port", "2222",
				"--identity", "/k",
				"--dry-run",
				"--no-cursor",
				"alpha", "beta",
			},
			check: func(t *testing.T, cfg PullConfig) {
				t.Helper()
				if len(cfg.Hosts) != 2 {
					t.Errorf("Hosts = %v", cfg.Hosts)
				}
				if cfg.Port != 2222 {
					t.Errorf("Port = %d", cfg.Port)
				}
				if cfg.Identity != "/k" {
					t.Errorf("Identity = %q", cfg.Identity)
				}
				if !cfg.DryRun {
					t.Error("DryRun should be true")
				}
				if cfg.Cursor {
					t.Error("Cursor should be skipped")
				}
				if !cfg.Claude {
					t.Error("Claude should stay enabled")
				}
			},
		},
		{
			name: "flags after host",
			args: []string{
				"fiona@devbox", "--no-cursor",
				"--output", "/tmp/hs",
			},
			check: func(t *testing.T, cfg PullConfig) {
				t.Helper()
				want := []string{"fiona@devbox"}
				if len(cfg.Hosts) != 1 ||
					cfg.Hosts[0] != want[0] {
					t.Errorf("Hosts = %v, want %v",
						cfg.Hosts, want)
				}
				if cfg.Cursor {
					t.Error("Cursor should be skipped")
				}
			},
		},
		{
			name: "hosts interleaved with flags",
			args: []string{
				"alpha", "--dry-run", "beta",
				"--port", "2222",
			},
			check: func(t *testing.T, cfg PullConfig) {
				t.Helper()
				if len(cfg.Hosts) != 2 ||
					cfg.Hosts[0] != "alpha" ||
					cfg.Hosts[1] != "beta" {
					t.Errorf("Hosts = %v", cfg.Hosts)
				}
				if !cfg.DryRun {
					t.Error("DryRun should be true")
				}
				if cfg.Port != 2222 {
					t.Errorf("Port = %d", cfg.Port)
				}
			},
		},
		{
			name:    "both tools skipped",
			args:    []string{"--no-claude", "--no-cursor", "h"},
			wantErr: "nothing to sync",
		},
		{
			name:    "invalid port",
			args:    []string{"--port", "0", "h"},
			wantErr: "invalid port",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus", "h"},
			wantErr: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, err := parsePullFlags(tt.args)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf(
						"expected error containing %q",
						tt.wantErr,
					)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf(
						"error = %q, want substring %q",
						err, tt.wantErr,
					)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
