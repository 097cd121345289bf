package ports

import "github.com/bft-labs/volumetrize/internal/domain"

// Step is one external tool call within a frame's sequence.
type Step struct {
	// Name keys per-step retry settings and log lines (e.g. "feature_extractor")
	Name string

	Argv []string
	Dir  string
}

// Strategy is a tool family driving one stage of the pipeline.
// The scheduler core is the same for every strategy; only the steps,
// the artifact set and the workspace layout differ.
type Strategy interface {
	// Name identifies the tool family (e.g. "colmap").
	Name() string

	// Stage names the pipeline stage the strategy belongs to ("calibrate" or "train").
	Stage() string

	// Workspace returns the per-frame directories the tool writes to.
	// They are created before the frame runs and removed on a clean run.
	Workspace(frame domain.FrameRecord) []string

	// ReferenceSteps is the full sequence run on the reference frame.
	ReferenceSteps(frame domain.FrameRecord, params domain.ToolParams) ([]Step, error)

	// Artifacts lists what the reference frame produced for frame to reuse.
	Artifacts(ref, frame domain.FrameRecord) (domain.ArtifactSet, error)

	// PropagationSteps is the reduced sequence run after the artifacts are copied.
	PropagationSteps(ref, frame domain.FrameRecord, params domain.ToolParams) ([]Step, error)

	// Outputs lists the files a finished frame produced for export.
	Outputs(frame domain.FrameRecord) []string
}

// ParamsSource supplies the current tool parameters.
// It is read once per frame so reloads apply at frame boundaries.
type ParamsSource interface {
	Params() domain.ToolParams
}
