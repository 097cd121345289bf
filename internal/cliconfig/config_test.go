package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bft-labs/volumetrize/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tool != "colmap" {
		t.Errorf("Tool = %v, want colmap", cfg.Tool)
	}
	if cfg.Direction != "forward" {
		t.Errorf("Direction = %v, want forward", cfg.Direction)
	}
	if cfg.FramePrefix != domain.DefaultFramePrefix {
		t.Errorf("FramePrefix = %v, want %v", cfg.FramePrefix, domain.DefaultFramePrefix)
	}
	if cfg.PostshotExe != DefaultPostshotExe {
		t.Errorf("PostshotExe = %v, want %v", cfg.PostshotExe, DefaultPostshotExe)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("LogFormat = %v, want console", cfg.LogFormat)
	}
}

// fakeExecutable creates an executable file and returns its path.
func fakeExecutable(t *testing.T, name string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("executable bit checks need a unix filesystem")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestConfig_Validate(t *testing.T) {
	colmap := fakeExecutable(t, "colmap")
	postshot := fakeExecutable(t, "postshot-cli")

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "valid colmap config",
			mutate: func(c *Config) { c.ColmapExe = colmap },
		},
		{
			name:   "valid training config",
			mutate: func(c *Config) { c.Tool = "postshot"; c.PostshotExe = postshot },
		},
		{
			name:      "missing project",
			mutate:    func(c *Config) { c.Project = "" },
			wantField: "project",
		},
		{
			name:      "unknown tool",
			mutate:    func(c *Config) { c.Tool = "meshroom" },
			wantField: "tool",
		},
		{
			name:      "unknown direction",
			mutate:    func(c *Config) { c.ColmapExe = colmap; c.Direction = "up" },
			wantField: "direction",
		},
		{
			name:      "unknown log format",
			mutate:    func(c *Config) { c.LogFormat = "xml" },
			wantField: "log-format",
		},
		{
			name:      "executable not found",
			mutate:    func(c *Config) { c.ColmapExe = filepath.Join(t.TempDir(), "missing") },
			wantField: "colmap-exe",
		},
		{
			name:      "only the selected tool is resolved",
			mutate:    func(c *Config) { c.Tool = "postshot"; c.PostshotExe = ""; c.ColmapExe = colmap },
			wantField: "postshot-exe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Project = t.TempDir()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}

			var ce *domain.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() error = %v, want ConfigurationError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %v, want %v", ce.Field, tt.wantField)
			}
		})
	}
}

func TestConfig_Library(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Project = "/data/shoot"
	cfg.Start = 4
	cfg.Count = 3
	cfg.Direction = "reverse"
	cfg.Yes = true
	cfg.ExportBucket = "mem://"

	lib := cfg.Library()
	if lib.Project != "/data/shoot" || lib.Start != 4 || lib.Count != 3 || lib.Direction != "reverse" {
		t.Errorf("Library() = %+v", lib)
	}
	if lib.ExportBucket != "mem://" {
		t.Errorf("ExportBucket = %v, want mem://", lib.ExportBucket)
	}
}
