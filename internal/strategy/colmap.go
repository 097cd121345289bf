package strategy

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// Files the COLMAP mapper writes per reconstruction and propagation reuses.
var colmapModelFiles = []string{"cameras.bin", "images.bin", "points3D.bin"}

// Colmap calibrates the reference frame with a full sparse reconstruction and
// every other frame by triangulating against the reference camera model.
type Colmap struct {
	exe string
}

// NewColmap creates the COLMAP strategy. An empty exe resolves "colmap" on PATH.
func NewColmap(exe string) *Colmap {
	if exe == "" {
		exe = "colmap"
	}
	return &Colmap{exe: exe}
}

func (c *Colmap) Name() string  { return ToolColmap }
func (c *Colmap) Stage() string { return domain.StageCalibrate }

func colmapDir(f domain.FrameRecord) string   { return filepath.Join(f.Path, "colmap") }
func colmapDB(f domain.FrameRecord) string    { return filepath.Join(colmapDir(f), "database.db") }
func sparseDir(f domain.FrameRecord) string   { return filepath.Join(f.Path, "sparse") }
func imagesDir(f domain.FrameRecord) string   { return filepath.Join(f.Path, domain.ImagesDir) }
func sparseModel(f domain.FrameRecord) string { return filepath.Join(sparseDir(f), "0") }

// Workspace returns the database and sparse model directories.
func (c *Colmap) Workspace(frame domain.FrameRecord) []string {
	return []string{colmapDir(frame), sparseDir(frame)}
}

func (c *Colmap) extract(frame domain.FrameRecord, p domain.ColmapParams) ports.Step {
	model := p.CameraModel
	if model == "" {
		model = domain.DefaultCameraModel
	}
	argv := []string{c.exe, "feature_extractor",
		"--database_path", colmapDB(frame),
		"--image_path", imagesDir(frame),
		"--ImageReader.camera_model", model,
	}
	if p.SingleCamera {
		argv = append(argv, "--ImageReader.single_camera", "1")
	}
	return ports.Step{Name: "feature_extractor", Argv: argv, Dir: frame.Path}
}

func (c *Colmap) match(frame domain.FrameRecord, p domain.ColmapParams) ports.Step {
	matcher := p.Matcher
	if matcher == "" {
		matcher = domain.DefaultMatcher
	}
	name := matcher + "_matcher"
	return ports.Step{
		Name: name,
		Argv: []string{c.exe, name, "--database_path", colmapDB(frame)},
		Dir:  frame.Path,
	}
}

// ReferenceSteps extracts features, matches them and runs the full mapper.
func (c *Colmap) ReferenceSteps(frame domain.FrameRecord, params domain.ToolParams) ([]ports.Step, error) {
	return []ports.Step{
		c.extract(frame, params.Colmap),
		c.match(frame, params.Colmap),
		{
			Name: "mapper",
			Argv: []string{c.exe, "mapper",
				"--database_path", colmapDB(frame),
				"--image_path", imagesDir(frame),
				"--output_path", sparseDir(frame),
			},
			Dir: frame.Path,
		},
	}, nil
}

// Artifacts are the model files of the reference's first reconstruction,
// copied into the frame's sparse/0.
func (c *Colmap) Artifacts(ref, frame domain.FrameRecord) (domain.ArtifactSet, error) {
	model := firstModelDir(sparseDir(ref))
	set := make(domain.ArtifactSet, 0, len(colmapModelFiles))
	for _, name := range colmapModelFiles {
		set = append(set, domain.Artifact{
			Name:   name,
			Source: filepath.Join(model, name),
			Dest:   filepath.Join("sparse", "0", name),
		})
	}
	return set, nil
}

// PropagationSteps extracts and matches features, then triangulates points
// with the poses fixed by the copied model.
func (c *Colmap) PropagationSteps(ref, frame domain.FrameRecord, params domain.ToolParams) ([]ports.Step, error) {
	model := sparseModel(frame)
	return []ports.Step{
		c.extract(frame, params.Colmap),
		c.match(frame, params.Colmap),
		{
			Name: "point_triangulator",
			Argv: []string{c.exe, "point_triangulator",
				"--database_path", colmapDB(frame),
				"--image_path", imagesDir(frame),
				"--input_path", model,
				"--output_path", model,
			},
			Dir: frame.Path,
		},
	}, nil
}

// Outputs is the frame's sparse model.
func (c *Colmap) Outputs(frame domain.FrameRecord) []string {
	out := make([]string, len(colmapModelFiles))
	for i, name := range colmapModelFiles {
		out[i] = filepath.Join(sparseModel(frame), name)
	}
	return out
}

// firstModelDir picks "0" when the mapper produced it, otherwise the first
// model directory by name. The mapper numbers models from 0.
func firstModelDir(sparse string) string {
	preferred := filepath.Join(sparse, "0")
	if info, err := os.Stat(preferred); err == nil && info.IsDir() {
		return preferred
	}
	entries, err := os.ReadDir(sparse)
	if err != nil {
		return preferred
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) == 0 {
		return preferred
	}
	sort.Strings(dirs)
	return filepath.Join(sparse, dirs[0])
}

var _ ports.Strategy = (*Colmap)(nil)
