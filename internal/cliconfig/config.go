package cliconfig

import (
	"fmt"
	"os/exec"
	"strconv"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/strategy"
	"github.com/bft-labs/volumetrize/pkg/volumetrize"
)

// Default executable names looked up on PATH.
const (
	DefaultColmapExe      = "colmap"
	DefaultRealityScanExe = "RealityScan"
	DefaultPostshotExe    = "postshot-cli"
)

// Config holds CLI configuration for volumetrize.
type Config struct {
	Project     string
	Tool        string
	FramePrefix string

	Start     int
	Count     int
	Direction string
	Test      bool
	Yes       bool
	Resume    bool
	Clean     bool

	ColmapExe      string
	RealityScanExe string
	PostshotExe    string

	RealityScanExportDir string
	RealityScanProfile   string

	OutputDir    string
	ToolConfig   string
	StateDir     string
	ExportBucket string
	ExportPrefix string

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Tool:           strategy.ToolColmap,
		FramePrefix:    domain.DefaultFramePrefix,
		Direction:      domain.Forward.String(),
		ColmapExe:      DefaultColmapExe,
		RealityScanExe: DefaultRealityScanExe,
		PostshotExe:    DefaultPostshotExe,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Validate checks the configuration and resolves the selected tool's
// executable to an absolute path.
func (c *Config) Validate() error {
	if c.Project == "" {
		return &domain.ConfigurationError{Field: "project", Reason: "required"}
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return &domain.ConfigurationError{Field: "log-format", Reason: fmt.Sprintf("unknown format %q (want console or json)", c.LogFormat)}
	}
	if _, err := domain.ParseDirection(c.Direction); err != nil {
		return err
	}

	var err error
	switch c.Tool {
	case strategy.ToolColmap:
		c.ColmapExe, err = resolveExecutable("colmap-exe", c.ColmapExe)
	case strategy.ToolRealityScan:
		c.RealityScanExe, err = resolveExecutable("rs-exe", c.RealityScanExe)
	case strategy.ToolPostshot:
		c.PostshotExe, err = resolveExecutable("postshot-exe", c.PostshotExe)
	default:
		err = &domain.ConfigurationError{
			Field:  "tool",
			Reason: fmt.Sprintf("unknown tool %q (want one of %v)", c.Tool, strategy.Tools()),
		}
	}
	return err
}

// resolveExecutable finds exe directly or on PATH.
func resolveExecutable(flag, exe string) (string, error) {
	if exe == "" {
		return "", &domain.ConfigurationError{Field: flag, Reason: "required"}
	}
	path, err := exec.LookPath(exe)
	if err != nil {
		return "", &domain.ConfigurationError{Field: flag, Reason: fmt.Sprintf("%s not found: %v", exe, err)}
	}
	return path, nil
}

// Library converts the CLI configuration to the library's.
func (c Config) Library() volumetrize.Config {
	return volumetrize.Config{
		Project:              c.Project,
		Tool:                 c.Tool,
		FramePrefix:          c.FramePrefix,
		Start:                c.Start,
		Count:                c.Count,
		Direction:            c.Direction,
		Test:                 c.Test,
		Resume:               c.Resume,
		Clean:                c.Clean,
		ColmapExe:            c.ColmapExe,
		RealityScanExe:       c.RealityScanExe,
		PostshotExe:          c.PostshotExe,
		RealityScanExportDir: c.RealityScanExportDir,
		RealityScanProfile:   c.RealityScanProfile,
		OutputDir:            c.OutputDir,
		ToolConfig:           c.ToolConfig,
		StateDir:             c.StateDir,
		ExportBucket:         c.ExportBucket,
		ExportPrefix:         c.ExportPrefix,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings. A set variable wins
// even when it is 0, which for count means no limit. Negative values are
// rejected by the library Config.Validate.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
