package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config for the TOML file. The project and the plan
// window are per-invocation and only come from flags.
type FileConfig struct {
	Tool                 string `toml:"tool"`
	FramePrefix          string `toml:"frame_prefix"`
	Direction            string `toml:"direction"`
	Count                int    `toml:"count"`
	Yes                  *bool  `toml:"yes"`
	Resume               *bool  `toml:"resume"`
	Clean                *bool  `toml:"clean"`
	ColmapExe            string `toml:"colmap_exe"`
	RealityScanExe       string `toml:"rs_exe"`
	PostshotExe          string `toml:"postshot_exe"`
	RealityScanExportDir string `toml:"rs_export_dir"`
	RealityScanProfile   string `toml:"rs_profile"`
	OutputDir            string `toml:"output"`
	ToolConfig           string `toml:"tool_config"`
	StateDir             string `toml:"state_dir"`
	ExportBucket         string `toml:"export_bucket"`
	ExportPrefix         string `toml:"export_prefix"`
	LogLevel             string `toml:"log_level"`
	LogFormat            string `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.volumetrize/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".volumetrize", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("tool", fc.Tool, &cfg.Tool)
	s.setString("frame-prefix", fc.FramePrefix, &cfg.FramePrefix)
	s.setString("direction", fc.Direction, &cfg.Direction)
	s.setString("colmap-exe", fc.ColmapExe, &cfg.ColmapExe)
	s.setString("rs-exe", fc.RealityScanExe, &cfg.RealityScanExe)
	s.setString("postshot-exe", fc.PostshotExe, &cfg.PostshotExe)
	s.setString("rs-export-dir", fc.RealityScanExportDir, &cfg.RealityScanExportDir)
	s.setString("rs-profile", fc.RealityScanProfile, &cfg.RealityScanProfile)
	s.setString("output", fc.OutputDir, &cfg.OutputDir)
	s.setString("tool-config", fc.ToolConfig, &cfg.ToolConfig)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("export-bucket", fc.ExportBucket, &cfg.ExportBucket)
	s.setString("export-prefix", fc.ExportPrefix, &cfg.ExportPrefix)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	s.setInt("count", fc.Count, &cfg.Count)

	s.setBool("yes", fc.Yes, &cfg.Yes)
	s.setBool("resume", fc.Resume, &cfg.Resume)
	s.setBool("clean", fc.Clean, &cfg.Clean)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
