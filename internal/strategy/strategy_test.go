package strategy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

func frame(root string, i int, name string) domain.FrameRecord {
	return domain.FrameRecord{Index: i, Name: name, Path: filepath.Join(root, name)}
}

func argvs(steps []ports.Step) [][]string {
	out := make([][]string, len(steps))
	for i, s := range steps {
		out[i] = s.Argv
	}
	return out
}

func TestNew_UnknownTool(t *testing.T) {
	_, err := New("meshroom", Options{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
	for _, tool := range Tools() {
		s, err := New(tool, Options{})
		if err != nil {
			t.Fatalf("New(%q): %v", tool, err)
		}
		if s.Name() != tool {
			t.Errorf("New(%q).Name() = %q", tool, s.Name())
		}
	}
}

func TestColmap_ReferenceSteps(t *testing.T) {
	ref := frame("/p", 0, "frame_000")
	steps, err := NewColmap("").ReferenceSteps(ref, domain.DefaultToolParams())
	if err != nil {
		t.Fatal(err)
	}

	db := filepath.Join("/p", "frame_000", "colmap", "database.db")
	images := filepath.Join("/p", "frame_000", "images")
	want := [][]string{
		{"colmap", "feature_extractor", "--database_path", db, "--image_path", images, "--ImageReader.camera_model", "SIMPLE_RADIAL"},
		{"colmap", "exhaustive_matcher", "--database_path", db},
		{"colmap", "mapper", "--database_path", db, "--image_path", images, "--output_path", filepath.Join("/p", "frame_000", "sparse")},
	}
	if diff := cmp.Diff(want, argvs(steps)); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
	if steps[2].Name != "mapper" {
		t.Errorf("step name = %s", steps[2].Name)
	}
}

func TestColmap_PropagationSteps_Params(t *testing.T) {
	f := frame("/p", 3, "frame_003")
	params := domain.ToolParams{Colmap: domain.ColmapParams{CameraModel: "OPENCV", Matcher: "sequential", SingleCamera: true}}

	steps, err := NewColmap("/opt/colmap").PropagationSteps(frame("/p", 0, "frame_000"), f, params)
	if err != nil {
		t.Fatal(err)
	}

	model := filepath.Join("/p", "frame_003", "sparse", "0")
	got := argvs(steps)
	if got[0][len(got[0])-3] != "OPENCV" || got[0][len(got[0])-1] != "1" {
		t.Errorf("extractor argv = %v", got[0])
	}
	if got[1][1] != "sequential_matcher" {
		t.Errorf("matcher argv = %v", got[1])
	}
	want := []string{"/opt/colmap", "point_triangulator",
		"--database_path", filepath.Join("/p", "frame_003", "colmap", "database.db"),
		"--image_path", filepath.Join("/p", "frame_003", "images"),
		"--input_path", model, "--output_path", model}
	if diff := cmp.Diff(want, got[2]); diff != "" {
		t.Errorf("triangulator argv mismatch (-want +got):\n%s", diff)
	}
}

func TestColmap_Artifacts_PicksFirstModel(t *testing.T) {
	root := t.TempDir()
	ref := frame(root, 0, "frame_000")
	if err := os.MkdirAll(filepath.Join(ref.Path, "sparse", "1"), 0o755); err != nil {
		t.Fatal(err)
	}

	set, err := NewColmap("").Artifacts(ref, frame(root, 1, "frame_001"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"cameras.bin", "images.bin", "points3D.bin"}, set.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if set[0].Source != filepath.Join(ref.Path, "sparse", "1", "cameras.bin") {
		t.Errorf("source = %s", set[0].Source)
	}
	if set[0].Dest != filepath.Join("sparse", "0", "cameras.bin") {
		t.Errorf("dest = %s", set[0].Dest)
	}
}

func TestRealityScan_Steps(t *testing.T) {
	rs := NewRealityScan("rs.exe", "/export", "/profiles/reg.xml")
	ref := frame("/p", 0, "frame_000")

	steps, err := rs.ReferenceSteps(ref, domain.ToolParams{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"rs.exe", "-headless", "-addFolder", filepath.Join("/p", "frame_000", "images"),
		"-align", "-exportXMP",
		"-exportRegistration", filepath.Join("/export", "frame_000", "placeholder.txt"), "/profiles/reg.xml",
		"-quit"}
	if diff := cmp.Diff(want, steps[0].Argv); diff != "" {
		t.Errorf("reference argv mismatch (-want +got):\n%s", diff)
	}

	steps, err = rs.PropagationSteps(ref, frame("/p", 1, "frame_001"), domain.ToolParams{})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range steps[0].Argv {
		if a == "-exportXMP" {
			t.Error("propagation should not export XMP")
		}
	}
}

func TestRealityScan_RequiresExportAndProfile(t *testing.T) {
	_, err := NewRealityScan("", "", "p.xml").ReferenceSteps(frame("/p", 0, "frame_000"), domain.ToolParams{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func TestRealityScan_Artifacts(t *testing.T) {
	root := t.TempDir()
	ref := frame(root, 0, "frame_000")
	images := filepath.Join(ref.Path, "images")
	if err := os.MkdirAll(images, 0o755); err != nil {
		t.Fatal(err)
	}
	rs := NewRealityScan("", "/e", "p.xml")

	_, err := rs.Artifacts(ref, frame(root, 1, "frame_001"))
	if !errors.Is(err, domain.ErrMissingArtifact) {
		t.Fatalf("error = %v, want ErrMissingArtifact", err)
	}

	for _, n := range []string{"cam_b.xmp", "cam_a.XMP", "cam_a.jpg"} {
		if err := os.WriteFile(filepath.Join(images, n), []byte(n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	set, err := rs.Artifacts(ref, frame(root, 1, "frame_001"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"cam_a.XMP", "cam_b.xmp"}, set.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if set[1].Dest != filepath.Join("images", "cam_b.xmp") {
		t.Errorf("dest = %s", set[1].Dest)
	}
}

func TestPostshot_Train(t *testing.T) {
	tests := []struct {
		name   string
		params domain.ToolParams
		want   []string
	}{
		{
			name:   "budget profile",
			params: domain.ToolParams{Profile: "Splat3", Iterations: 30, MaxNumSplats: 3000, AntiAliasing: true},
			want: []string{"ps", "train", "-i", filepath.Join("/p", "frame_002"), "-p", "Splat3",
				"--max-num-splats", "3000", "-s", "30", "--anti-aliasing", "true",
				"--export-splat-ply", filepath.Join("/out", "frame_002.ply")},
		},
		{
			name:   "plain profile",
			params: domain.ToolParams{Profile: "Splat ADC", Iterations: 10, MaxNumSplats: 3000},
			want: []string{"ps", "train", "-i", filepath.Join("/p", "frame_002"), "-p", "Splat ADC",
				"-s", "10", "--anti-aliasing", "false",
				"--export-splat-ply", filepath.Join("/out", "frame_002.ply")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := NewPostshot("ps", "/out").PropagationSteps(domain.FrameRecord{}, frame("/p", 2, "frame_002"), tt.params)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, steps[0].Argv); diff != "" {
				t.Errorf("argv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPostshot_MissingParams(t *testing.T) {
	p := NewPostshot("ps", "/out")
	if _, err := p.ReferenceSteps(frame("/p", 0, "frame_000"), domain.ToolParams{Iterations: 5}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("missing profile: error = %v", err)
	}
	set, err := p.Artifacts(domain.FrameRecord{}, domain.FrameRecord{})
	if err != nil || len(set) != 0 {
		t.Errorf("Artifacts() = %v, %v; want empty", set, err)
	}
}
