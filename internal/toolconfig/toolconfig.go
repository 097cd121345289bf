// Package toolconfig loads the per-project tool parameter file (_config.yaml).
package toolconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/volumetrize/internal/domain"
)

// DefaultFileName is the tool parameter file inside the project root.
const DefaultFileName = "_config.yaml"

var knownMatchers = map[string]bool{
	"exhaustive": true,
	"sequential": true,
	"vocab_tree": true,
	"spatial":    true,
	"transitive": true,
}

// File models _config.yaml. Pointers distinguish a missing key from a zero value.
type File struct {
	Profile      *string        `yaml:"profile"`
	Iterations   *int           `yaml:"iterations"`
	MaxNumSplats *int           `yaml:"maxNumSplats"`
	AntiAliasing *bool          `yaml:"antiAliasing"`
	Colmap       *Colmap        `yaml:"colmap"`
	Retries      map[string]int `yaml:"retries"`
}

// Colmap models the optional colmap section.
type Colmap struct {
	CameraModel  string `yaml:"cameraModel"`
	Matcher      string `yaml:"matcher"`
	SingleCamera bool   `yaml:"singleCamera"`
}

// Path returns the default tool file path for a project.
func Path(project string) string {
	return filepath.Join(project, DefaultFileName)
}

// Validate checks the keys the stage needs. Training needs every training key.
func (f *File) Validate(stage string) error {
	if stage == domain.StageTrain {
		if f.Profile == nil || *f.Profile == "" {
			return missing("profile")
		}
		if f.Iterations == nil {
			return missing("iterations")
		}
		if *f.Iterations <= 0 {
			return &domain.ConfigurationError{Field: "iterations", Reason: "must be positive"}
		}
		if f.MaxNumSplats == nil {
			return missing("maxNumSplats")
		}
		if f.AntiAliasing == nil {
			return missing("antiAliasing")
		}
	}
	if f.Colmap != nil && f.Colmap.Matcher != "" && !knownMatchers[f.Colmap.Matcher] {
		return &domain.ConfigurationError{
			Field:  "colmap.matcher",
			Reason: fmt.Sprintf("unknown matcher %q", f.Colmap.Matcher),
		}
	}
	for step, n := range f.Retries {
		if n < 0 {
			return &domain.ConfigurationError{Field: "retries." + step, Reason: "must not be negative"}
		}
	}
	return nil
}

// Params converts the file to domain parameters, filling defaults.
func (f *File) Params() domain.ToolParams {
	p := domain.DefaultToolParams()
	if f.Profile != nil {
		p.Profile = *f.Profile
	}
	if f.Iterations != nil {
		p.Iterations = *f.Iterations
	}
	if f.MaxNumSplats != nil {
		p.MaxNumSplats = *f.MaxNumSplats
	}
	if f.AntiAliasing != nil {
		p.AntiAliasing = *f.AntiAliasing
	}
	if f.Colmap != nil {
		if f.Colmap.CameraModel != "" {
			p.Colmap.CameraModel = f.Colmap.CameraModel
		}
		if f.Colmap.Matcher != "" {
			p.Colmap.Matcher = f.Colmap.Matcher
		}
		p.Colmap.SingleCamera = f.Colmap.SingleCamera
	}
	if len(f.Retries) > 0 {
		p.Retries = make(map[string]int, len(f.Retries))
		for k, v := range f.Retries {
			p.Retries[k] = v
		}
	}
	return p
}

// FromYAML parses and validates tool parameters for stage.
func FromYAML(data []byte, stage string) (domain.ToolParams, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.ToolParams{}, &domain.ConfigurationError{Field: "tool-config", Reason: fmt.Sprintf("invalid yaml: %v", err)}
	}
	if err := f.Validate(stage); err != nil {
		return domain.ToolParams{}, err
	}
	return f.Params(), nil
}

// Load reads the tool file at path. A missing file is only an error for
// stages that need parameters; calibration falls back to defaults.
func Load(path, stage string) (domain.ToolParams, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if stage == domain.StageTrain {
			return domain.ToolParams{}, &domain.ConfigurationError{Field: "tool-config", Reason: fmt.Sprintf("%s not found", path)}
		}
		return domain.DefaultToolParams(), nil
	}
	if err != nil {
		return domain.ToolParams{}, fmt.Errorf("read tool config: %w", err)
	}
	return FromYAML(data, stage)
}

// Static is a ports.ParamsSource that never changes.
type Static domain.ToolParams

// Params returns the fixed parameters.
func (s Static) Params() domain.ToolParams { return domain.ToolParams(s) }

func missing(key string) error {
	return &domain.ConfigurationError{Field: key, Reason: "missing from tool config"}
}
