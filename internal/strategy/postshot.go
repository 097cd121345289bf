package strategy

import (
	"path/filepath"
	"strconv"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// Profiles that accept a splat budget.
var splatBudgetProfiles = map[string]bool{
	"Splat3":     true,
	"Splat MCMC": true,
}

// Postshot trains one Gaussian splat per frame. Training has no artifacts to
// propagate, so every frame runs the same command.
type Postshot struct {
	exe       string
	outputDir string
}

// NewPostshot creates the training strategy writing <outputDir>/<frame>.ply.
func NewPostshot(exe, outputDir string) *Postshot {
	if exe == "" {
		exe = "postshot-cli"
	}
	return &Postshot{exe: exe, outputDir: outputDir}
}

func (p *Postshot) Name() string  { return ToolPostshot }
func (p *Postshot) Stage() string { return domain.StageTrain }

// Workspace is empty: the frame directory is read-only input.
func (p *Postshot) Workspace(domain.FrameRecord) []string { return nil }

func (p *Postshot) plyPath(frame domain.FrameRecord) string {
	return filepath.Join(p.outputDir, frame.Name+".ply")
}

func (p *Postshot) train(frame domain.FrameRecord, params domain.ToolParams) ([]ports.Step, error) {
	if p.outputDir == "" {
		return nil, &domain.ConfigurationError{Field: "output", Reason: "required for training"}
	}
	if params.Profile == "" {
		return nil, &domain.ConfigurationError{Field: "profile", Reason: "required for training"}
	}
	if params.Iterations <= 0 {
		return nil, &domain.ConfigurationError{Field: "iterations", Reason: "must be positive"}
	}

	argv := []string{p.exe, "train", "-i", frame.Path, "-p", params.Profile}
	if splatBudgetProfiles[params.Profile] {
		argv = append(argv, "--max-num-splats", strconv.Itoa(params.MaxNumSplats))
	}
	argv = append(argv,
		"-s", strconv.Itoa(params.Iterations),
		"--anti-aliasing", strconv.FormatBool(params.AntiAliasing),
		"--export-splat-ply", p.plyPath(frame),
	)
	return []ports.Step{{Name: "train", Argv: argv, Dir: frame.Path}}, nil
}

// ReferenceSteps trains the first frame; a failure here usually means a bad
// executable or profile, so it stops the batch.
func (p *Postshot) ReferenceSteps(frame domain.FrameRecord, params domain.ToolParams) ([]ports.Step, error) {
	return p.train(frame, params)
}

// Artifacts is always empty.
func (p *Postshot) Artifacts(_, _ domain.FrameRecord) (domain.ArtifactSet, error) {
	return nil, nil
}

// PropagationSteps trains frame exactly like the reference.
func (p *Postshot) PropagationSteps(_, frame domain.FrameRecord, params domain.ToolParams) ([]ports.Step, error) {
	return p.train(frame, params)
}

// Outputs is the exported splat.
func (p *Postshot) Outputs(frame domain.FrameRecord) []string {
	return []string{p.plyPath(frame)}
}

var _ ports.Strategy = (*Postshot)(nil)
