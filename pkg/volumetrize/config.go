package volumetrize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/strategy"
	"github.com/bft-labs/volumetrize/internal/toolconfig"
)

// DefaultStateDirName is the state directory created inside the project.
const DefaultStateDirName = ".volumetrize"

// Config describes one batch over a project directory.
type Config struct {
	// Project is the directory holding the frame_<NNN> subdirectories.
	Project string

	// Tool selects the strategy: colmap, realityscan or postshot.
	Tool string

	// FramePrefix overrides the frame directory prefix (default "frame_").
	FramePrefix string

	// Plan selection
	Start     int
	Count     int
	Direction string
	Test      bool

	Resume bool
	Clean  bool

	// Executables. Empty values fall back to the tool's default name on PATH.
	ColmapExe      string
	RealityScanExe string
	PostshotExe    string

	RealityScanExportDir string
	RealityScanProfile   string

	// OutputDir receives trained splats.
	OutputDir string

	// ToolConfig is the YAML parameter file (default <project>/_config.yaml).
	ToolConfig string

	// StateDir holds the per-stage status files (default <project>/.volumetrize).
	StateDir string

	// ExportBucket is an optional gocloud blob URL trained outputs are copied to.
	ExportBucket string
	ExportPrefix string

	// RunID overrides the generated run identifier.
	RunID string
}

// SetDefaults fills in empty fields.
func (c *Config) SetDefaults() {
	if c.FramePrefix == "" {
		c.FramePrefix = domain.DefaultFramePrefix
	}
	if c.Direction == "" {
		c.Direction = domain.Forward.String()
	}
	if c.Project != "" {
		if c.ToolConfig == "" {
			c.ToolConfig = toolconfig.Path(c.Project)
		}
		if c.StateDir == "" {
			c.StateDir = filepath.Join(c.Project, DefaultStateDirName)
		}
	}
}

// Validate checks the configuration before any frame work starts.
func (c *Config) Validate() error {
	if c.Project == "" {
		return &domain.ConfigurationError{Field: "project", Reason: "required"}
	}
	info, err := os.Stat(c.Project)
	if err != nil {
		return &domain.ConfigurationError{Field: "project", Reason: err.Error()}
	}
	if !info.IsDir() {
		return &domain.ConfigurationError{Field: "project", Reason: fmt.Sprintf("%s is not a directory", c.Project)}
	}

	if _, err := domain.ParseDirection(c.Direction); err != nil {
		return err
	}
	if c.Start < 0 {
		return &domain.ConfigurationError{Field: "start", Reason: "must not be negative"}
	}
	if c.Count < 0 {
		return &domain.ConfigurationError{Field: "count", Reason: "must not be negative"}
	}

	switch c.Tool {
	case strategy.ToolColmap:
	case strategy.ToolRealityScan:
		if c.RealityScanExportDir == "" {
			return &domain.ConfigurationError{Field: "rs-export-dir", Reason: "required for realityscan"}
		}
		if c.RealityScanProfile == "" {
			return &domain.ConfigurationError{Field: "rs-profile", Reason: "required for realityscan"}
		}
	case strategy.ToolPostshot:
		if c.OutputDir == "" {
			return &domain.ConfigurationError{Field: "output", Reason: "required for training"}
		}
	default:
		return &domain.ConfigurationError{
			Field:  "tool",
			Reason: fmt.Sprintf("unknown tool %q (want one of %v)", c.Tool, strategy.Tools()),
		}
	}
	return nil
}

func (c *Config) plan() domain.BatchPlan {
	dir, _ := domain.ParseDirection(c.Direction)
	return domain.BatchPlan{
		Start:     c.Start,
		Count:     c.Count,
		Direction: dir,
		TestMode:  c.Test,
	}
}

func (c *Config) strategyOptions() strategy.Options {
	return strategy.Options{
		ColmapExe:          c.ColmapExe,
		RealityScanExe:     c.RealityScanExe,
		RealityScanExport:  c.RealityScanExportDir,
		RealityScanProfile: c.RealityScanProfile,
		PostshotExe:        c.PostshotExe,
		OutputDir:          c.OutputDir,
	}
}
