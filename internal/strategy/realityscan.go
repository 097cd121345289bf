package strategy

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// RealityScan aligns the reference frame headless and exports XMP camera
// sidecars next to its images; other frames align against copies of them.
type RealityScan struct {
	exe       string
	exportDir string
	profile   string
}

// NewRealityScan creates the RealityScan strategy. Registration exports go to
// exportDir/<frame>; profile is the registration export profile (XML).
func NewRealityScan(exe, exportDir, profile string) *RealityScan {
	if exe == "" {
		exe = "RealityScan"
	}
	return &RealityScan{exe: exe, exportDir: exportDir, profile: profile}
}

func (r *RealityScan) Name() string  { return ToolRealityScan }
func (r *RealityScan) Stage() string { return domain.StageCalibrate }

func (r *RealityScan) frameExport(f domain.FrameRecord) string {
	return filepath.Join(r.exportDir, f.Name)
}

// Workspace is the frame's registration export directory.
func (r *RealityScan) Workspace(frame domain.FrameRecord) []string {
	return []string{r.frameExport(frame)}
}

func (r *RealityScan) align(frame domain.FrameRecord, exportXMP bool) ([]ports.Step, error) {
	if r.exportDir == "" {
		return nil, &domain.ConfigurationError{Field: "rs-export-dir", Reason: "required for realityscan"}
	}
	if r.profile == "" {
		return nil, &domain.ConfigurationError{Field: "rs-profile", Reason: "required for realityscan"}
	}
	argv := []string{r.exe, "-headless", "-addFolder", imagesDir(frame), "-align"}
	if exportXMP {
		argv = append(argv, "-exportXMP")
	}
	argv = append(argv,
		"-exportRegistration", filepath.Join(r.frameExport(frame), "placeholder.txt"), r.profile,
		"-quit",
	)
	return []ports.Step{{Name: "align", Argv: argv, Dir: frame.Path}}, nil
}

// ReferenceSteps aligns and exports XMP sidecars and the registration.
func (r *RealityScan) ReferenceSteps(frame domain.FrameRecord, _ domain.ToolParams) ([]ports.Step, error) {
	return r.align(frame, true)
}

// Artifacts are the reference's *.xmp sidecars, copied into frame's images.
func (r *RealityScan) Artifacts(ref, frame domain.FrameRecord) (domain.ArtifactSet, error) {
	entries, err := os.ReadDir(imagesDir(ref))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".xmp") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, &domain.MissingArtifactError{
			Frame:    frame.Name,
			Artifact: "*.xmp",
			Path:     imagesDir(ref),
		}
	}
	sort.Strings(names)

	set := make(domain.ArtifactSet, len(names))
	for i, n := range names {
		set[i] = domain.Artifact{
			Name:   n,
			Source: filepath.Join(imagesDir(ref), n),
			Dest:   filepath.Join(domain.ImagesDir, n),
		}
	}
	return set, nil
}

// PropagationSteps aligns with the copied sidecars and exports the registration.
func (r *RealityScan) PropagationSteps(_, frame domain.FrameRecord, _ domain.ToolParams) ([]ports.Step, error) {
	return r.align(frame, false)
}

// Outputs is the exported registration.
func (r *RealityScan) Outputs(frame domain.FrameRecord) []string {
	return []string{filepath.Join(r.frameExport(frame), "placeholder.txt")}
}

var _ ports.Strategy = (*RealityScan)(nil)
