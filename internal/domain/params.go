package domain

// Default COLMAP parameters used when the tool file omits them.
const (
	DefaultCameraModel = "SIMPLE_RADIAL"
	DefaultMatcher     = "exhaustive"
)

// ToolParams are the tool parameters loaded from the project's tool file.
// A snapshot is taken per frame; reloads never change a frame mid-run.
type ToolParams struct {
	// Training parameters
	Profile      string
	Iterations   int
	MaxNumSplats int
	AntiAliasing bool

	Colmap ColmapParams

	// Retries maps a step name to the number of extra attempts
	Retries map[string]int
}

// ColmapParams tunes the COLMAP steps.
type ColmapParams struct {
	CameraModel  string
	Matcher      string
	SingleCamera bool
}

// DefaultToolParams returns parameters usable by calibration without a tool file.
func DefaultToolParams() ToolParams {
	return ToolParams{
		Colmap: ColmapParams{
			CameraModel: DefaultCameraModel,
			Matcher:     DefaultMatcher,
		},
	}
}

// RetriesFor returns the extra attempts configured for step.
func (p ToolParams) RetriesFor(step string) int {
	if n := p.Retries[step]; n > 0 {
		return n
	}
	return 0
}

// Pipeline stages.
const (
	StageCalibrate = "calibrate"
	StageTrain     = "train"
)
