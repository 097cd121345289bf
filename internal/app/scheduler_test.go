package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/volumetrize/internal/adapters/fs"
	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
	"github.com/bft-labs/volumetrize/internal/strategy"
	"github.com/bft-labs/volumetrize/internal/toolconfig"
	"github.com/bft-labs/volumetrize/pkg/state"
)

// fakeRunner records commands and simulates tool behavior.
type fakeRunner struct {
	mu    sync.Mutex
	calls []ports.Command
	// exitCode decides the exit status of a call; nil means success
	exitCode func(call int, cmd ports.Command) int
	// onRun simulates the tool's side effects
	onRun func(cmd ports.Command)
}

func (f *fakeRunner) Run(ctx context.Context, cmd ports.Command) (domain.Invocation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	n := len(f.calls)
	f.mu.Unlock()

	if f.onRun != nil {
		f.onRun(cmd)
	}
	if cmd.Sink != nil {
		cmd.Sink(ports.Stdout, "progress")
	}
	inv := domain.Invocation{Argv: cmd.Argv, WorkingDir: cmd.Dir, Stdout: []string{"progress"}}
	if err := ctx.Err(); err != nil {
		inv.ExitCode = -1
		return inv, &domain.ExternalToolFailure{Argv: cmd.Argv, ExitCode: -1, Err: err}
	}
	if f.exitCode != nil {
		inv.ExitCode = f.exitCode(n, cmd)
	}
	if inv.ExitCode != 0 {
		return inv, &domain.ExternalToolFailure{
			Argv:     cmd.Argv,
			ExitCode: inv.ExitCode,
			Stdout:   inv.Stdout,
			Stderr:   []string{"boom"},
		}
	}
	return inv, nil
}

// framesRun returns the frame directory of each call in order, deduplicated.
func (f *fakeRunner) framesRun() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		name := filepath.Base(c.Dir)
		if len(out) == 0 || out[len(out)-1] != name {
			out = append(out, name)
		}
	}
	return out
}

type fakeGate struct{ answer bool }

func (g fakeGate) Confirm(context.Context, string) (bool, error) { return g.answer, nil }

type fakeExporter struct {
	mu   sync.Mutex
	keys []string
}

func (e *fakeExporter) Export(_ context.Context, _ string, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, key)
	return nil
}

func (e *fakeExporter) Close() error { return nil }

func newProject(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < n; i++ {
		images := filepath.Join(root, fmt.Sprintf("frame_%03d", i), domain.ImagesDir)
		require.NoError(t, os.MkdirAll(images, 0o755))
	}
	return root
}

func argValue(argv []string, flag string) string {
	for i := 0; i < len(argv)-1; i++ {
		if argv[i] == flag {
			return argv[i+1]
		}
	}
	return ""
}

// colmapMapper writes a sparse model when the mapper runs.
func colmapMapper(t *testing.T) func(cmd ports.Command) {
	return colmapMapperWriting(t, "model:")
}

// colmapMapperWriting writes a sparse model whose files hold prefix and the file name.
func colmapMapperWriting(t *testing.T, prefix string) func(cmd ports.Command) {
	return func(cmd ports.Command) {
		if len(cmd.Argv) < 2 || cmd.Argv[1] != "mapper" {
			return
		}
		model := filepath.Join(argValue(cmd.Argv, "--output_path"), "0")
		require.NoError(t, os.MkdirAll(model, 0o755))
		for _, name := range []string{"cameras.bin", "images.bin", "points3D.bin"} {
			require.NoError(t, os.WriteFile(filepath.Join(model, name), []byte(prefix+name), 0o644))
		}
	}
}

type harness struct {
	root   string
	runner *fakeRunner
	events *mockEmitter
	state  *state.FileRepository
	deps   Deps
}

func newHarness(t *testing.T, frames int) *harness {
	root := newProject(t, frames)
	h := &harness{
		root:   root,
		runner: &fakeRunner{onRun: colmapMapper(t)},
		events: &mockEmitter{},
		state:  state.NewFileRepository(filepath.Join(root, ".volumetrize"), domain.StageCalibrate),
	}
	h.deps = Deps{
		Runner:    h.runner,
		Frames:    fs.NewFrameRepository(root, "", &mockLogger{}),
		Workspace: fs.NewWorkspace(),
		Strategy:  strategy.NewColmap("colmap"),
		Params:    toolconfig.Static(domain.DefaultToolParams()),
		State:     h.state,
		Gate:      fakeGate{answer: true},
		Logger:    &mockLogger{},
		Events:    h.events,
	}
	return h
}

func (h *harness) run(t *testing.T, cfg RunConfig) (Summary, error) {
	t.Helper()
	cfg.BackoffInitial = time.Millisecond
	cfg.BackoffMax = time.Millisecond
	return NewScheduler(h.deps, cfg).Run(context.Background())
}

func TestScheduler_ReverseOrderAndPropagation(t *testing.T) {
	h := newHarness(t, 5)

	sum, err := h.run(t, RunConfig{Plan: domain.BatchPlan{Start: 4, Count: 3, Direction: domain.Reverse}})
	require.NoError(t, err)

	if diff := cmp.Diff([]int{0, 4, 3, 2}, sum.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"frame_000", "frame_004", "frame_003", "frame_002"}, h.runner.framesRun()); diff != "" {
		t.Errorf("frames run mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, sum.Failed())
	assert.Equal(t, 4, sum.Completed())

	// propagated artifacts are byte-identical to the reference's
	for _, name := range []string{"frame_004", "frame_003", "frame_002"} {
		for _, f := range []string{"cameras.bin", "images.bin", "points3D.bin"} {
			want, err := os.ReadFile(filepath.Join(h.root, "frame_000", "sparse", "0", f))
			require.NoError(t, err)
			got, err := os.ReadFile(filepath.Join(h.root, name, "sparse", "0", f))
			require.NoError(t, err)
			assert.Equal(t, want, got, name+"/"+f)
		}
	}
	_, err = os.Stat(filepath.Join(h.root, "frame_001", "sparse"))
	assert.True(t, os.IsNotExist(err), "unselected frame was touched")

	// each subsequent frame triangulates instead of running the mapper
	for _, c := range h.runner.calls {
		if filepath.Base(c.Dir) != "frame_000" {
			assert.NotEqual(t, "mapper", c.Argv[1])
		}
	}
}

func TestScheduler_StateTransitionsAndEvents(t *testing.T) {
	h := newHarness(t, 2)

	_, err := h.run(t, RunConfig{})
	require.NoError(t, err)

	var ref, sub []domain.FrameState
	for _, e := range h.events.Events() {
		switch e.frame {
		case "frame_000":
			ref = append(ref, e.current)
		case "frame_001":
			sub = append(sub, e.current)
		}
	}
	assert.Equal(t, []domain.FrameState{domain.FrameCalibrating, domain.FrameCalibrated, domain.FrameDone}, ref)
	assert.Equal(t, []domain.FrameState{domain.FramePropagated, domain.FrameProcessing, domain.FrameDone}, sub)
	assert.Len(t, h.events.invocations, 6)
}

func TestScheduler_ContinueOnError(t *testing.T) {
	h := newHarness(t, 5)
	h.runner.exitCode = func(_ int, cmd ports.Command) int {
		if filepath.Base(cmd.Dir) == "frame_002" {
			return 1
		}
		return 0
	}

	sum, err := h.run(t, RunConfig{})
	require.NoError(t, err)

	failed := sum.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "frame_002", failed[0].Frame.Name)
	assert.Equal(t, domain.FrameFailed, failed[0].Frame.State)
	assert.True(t, errors.Is(failed[0].Err, domain.ErrToolFailed))
	assert.Contains(t, h.runner.framesRun(), "frame_004")

	st, err := h.state.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Failed", st.Frames["frame_002"].State)
	assert.Equal(t, "Done", st.Frames["frame_003"].State)
	assert.Equal(t, "colmap", st.Tool)
	assert.NotEmpty(t, st.RunID)
}

func TestScheduler_ReferenceFailureIsFatal(t *testing.T) {
	h := newHarness(t, 3)
	h.runner.exitCode = func(_ int, cmd ports.Command) int {
		if cmd.Argv[1] == "mapper" {
			return 2
		}
		return 0
	}

	sum, err := h.run(t, RunConfig{})
	require.Error(t, err)

	var rpe *domain.ReferenceProcessingError
	require.True(t, errors.As(err, &rpe))
	assert.Equal(t, "frame_000", rpe.Frame)

	var tf *domain.ExternalToolFailure
	require.True(t, errors.As(err, &tf))
	assert.Equal(t, 2, tf.ExitCode)

	assert.Equal(t, []string{"frame_000"}, h.runner.framesRun())
	require.Len(t, sum.Results, 1)
	assert.Equal(t, domain.FrameFailed, sum.Results[0].Frame.State)
}

func TestScheduler_MissingArtifactFailsFrameOnly(t *testing.T) {
	h := newHarness(t, 3)
	h.runner.onRun = nil // mapper produces nothing

	sum, err := h.run(t, RunConfig{})
	require.NoError(t, err)

	failed := sum.Failed()
	require.Len(t, failed, 2)
	for _, r := range failed {
		assert.True(t, errors.Is(r.Err, domain.ErrMissingArtifact), r.Err)
	}
	assert.Equal(t, []string{"frame_000"}, h.runner.framesRun())
}

func TestScheduler_GateDeclined(t *testing.T) {
	h := newHarness(t, 2)
	h.deps.Gate = fakeGate{answer: false}

	_, err := h.run(t, RunConfig{})
	assert.ErrorIs(t, err, domain.ErrDeclined)
	assert.Empty(t, h.runner.calls)
}

func TestScheduler_StartOutOfRange(t *testing.T) {
	h := newHarness(t, 2)

	_, err := h.run(t, RunConfig{Plan: domain.BatchPlan{Start: 7}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, h.runner.calls)
}

func TestScheduler_TestModeRunsReferenceOnly(t *testing.T) {
	h := newHarness(t, 4)

	sum, err := h.run(t, RunConfig{Plan: domain.BatchPlan{Start: 2, TestMode: true}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, sum.Order)
	assert.Equal(t, []string{"frame_000"}, h.runner.framesRun())
}

func TestScheduler_Resume(t *testing.T) {
	h := newHarness(t, 3)
	h.runner.exitCode = func(_ int, cmd ports.Command) int {
		if filepath.Base(cmd.Dir) == "frame_002" {
			return 1
		}
		return 0
	}
	_, err := h.run(t, RunConfig{})
	require.NoError(t, err)

	h.runner.calls = nil
	h.runner.exitCode = nil
	sum, err := h.run(t, RunConfig{Resume: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"frame_002"}, h.runner.framesRun())
	require.Len(t, sum.Results, 3)
	assert.True(t, sum.Results[0].Skipped)
	assert.True(t, sum.Results[1].Skipped)
	assert.Empty(t, sum.Failed())
}

func TestScheduler_ResumeReRunsReferenceWithoutArtifacts(t *testing.T) {
	h := newHarness(t, 3)
	_, err := h.run(t, RunConfig{})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(h.root, "frame_000", "sparse")))

	h.runner.calls = nil
	h.runner.onRun = colmapMapperWriting(t, "v2:")
	sum, err := h.run(t, RunConfig{Resume: true})
	require.NoError(t, err)

	// the new calibration reaches every frame
	assert.Equal(t, []string{"frame_000", "frame_001", "frame_002"}, h.runner.framesRun())
	for _, r := range sum.Results {
		assert.False(t, r.Skipped, r.Frame.Name)
	}
	for _, name := range []string{"frame_001", "frame_002"} {
		for _, f := range []string{"cameras.bin", "images.bin", "points3D.bin"} {
			got, err := os.ReadFile(filepath.Join(h.root, name, "sparse", "0", f))
			require.NoError(t, err)
			assert.Equal(t, "v2:"+f, string(got), name+"/"+f)
		}
	}
}

func TestScheduler_ResumeKeepsFramesWhenCalibrationUnchanged(t *testing.T) {
	h := newHarness(t, 3)
	_, err := h.run(t, RunConfig{})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(h.root, "frame_000", "sparse")))

	h.runner.calls = nil
	sum, err := h.run(t, RunConfig{Resume: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"frame_000"}, h.runner.framesRun())
	assert.True(t, sum.Results[1].Skipped)
	assert.True(t, sum.Results[2].Skipped)
}

func TestScheduler_SubsetRunKeepsOtherRecords(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.run(t, RunConfig{})
	require.NoError(t, err)

	_, err = h.run(t, RunConfig{Plan: domain.BatchPlan{Start: 3}})
	require.NoError(t, err)

	st, err := h.state.Load(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"frame_000", "frame_001", "frame_002", "frame_003"}, st.Names()); diff != "" {
		t.Errorf("recorded frames mismatch (-want +got):\n%s", diff)
	}
	for _, name := range st.Names() {
		assert.Equal(t, "Done", st.Frames[name].State, name)
	}

	h.runner.calls = nil
	sum, err := h.run(t, RunConfig{Resume: true})
	require.NoError(t, err)
	assert.Empty(t, h.runner.calls)
	assert.Len(t, sum.Results, 4)
}

func TestScheduler_SubsetRecalibrationInvalidatesOtherFrames(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.run(t, RunConfig{})
	require.NoError(t, err)

	h.runner.onRun = colmapMapperWriting(t, "v2:")
	_, err = h.run(t, RunConfig{Plan: domain.BatchPlan{Start: 3}})
	require.NoError(t, err)

	h.runner.calls = nil
	_, err = h.run(t, RunConfig{Resume: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"frame_001", "frame_002"}, h.runner.framesRun())
}

func TestScheduler_ToolChangeDiscardsRecords(t *testing.T) {
	h := newHarness(t, 2)
	require.NoError(t, h.state.Save(context.Background(), state.State{
		Tool:   "realityscan",
		Frames: map[string]state.FrameStatus{"frame_001": {Index: 1, State: "Done"}},
	}))

	_, err := h.run(t, RunConfig{Resume: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"frame_000", "frame_001"}, h.runner.framesRun())
}

func TestScheduler_RetriesStep(t *testing.T) {
	h := newHarness(t, 1)
	h.deps.Params = toolconfig.Static(domain.ToolParams{
		Colmap:  domain.ColmapParams{CameraModel: domain.DefaultCameraModel, Matcher: domain.DefaultMatcher},
		Retries: map[string]int{"exhaustive_matcher": 2},
	})
	failures := 0
	h.runner.exitCode = func(_ int, cmd ports.Command) int {
		if cmd.Argv[1] == "exhaustive_matcher" && failures < 2 {
			failures++
			return 1
		}
		return 0
	}

	sum, err := h.run(t, RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Results[0].Attempts)
	assert.Len(t, h.runner.calls, 5)
}

func TestScheduler_CancelMarksCurrentFrameFailed(t *testing.T) {
	h := newHarness(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.runner.onRun = func(cmd ports.Command) {
		colmapMapper(t)(cmd)
		if filepath.Base(cmd.Dir) == "frame_002" {
			cancel()
		}
	}

	sched := NewScheduler(h.deps, RunConfig{BackoffInitial: time.Millisecond})
	_, err := sched.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, h.runner.framesRun(), "frame_003")

	st, err := h.state.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Failed", st.Frames["frame_002"].State)
	assert.Equal(t, "Done", st.Frames["frame_001"].State)
	_, recorded := st.Frames["frame_003"]
	assert.False(t, recorded)
}

func TestScheduler_CleanResetsWorkspace(t *testing.T) {
	h := newHarness(t, 2)
	stale := filepath.Join(h.root, "frame_001", "colmap", "stale.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	_, err := h.run(t, RunConfig{Clean: true})
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(h.root, "frame_000", "sparse", "0", "cameras.bin"))
	assert.NoError(t, err, "reference artifacts removed")
}

func TestScheduler_TrainingExportsOutputs(t *testing.T) {
	h := newHarness(t, 3)
	out := filepath.Join(t.TempDir(), "splats")
	exporter := &fakeExporter{}

	h.deps.Strategy = strategy.NewPostshot("postshot-cli", out)
	h.deps.Params = toolconfig.Static(domain.ToolParams{Profile: "Splat3", Iterations: 5, MaxNumSplats: 100})
	h.deps.Exporter = exporter
	h.runner.onRun = func(cmd ports.Command) {
		ply := argValue(cmd.Argv, "--export-splat-ply")
		require.NoError(t, os.WriteFile(ply, []byte("ply"), 0o644))
	}

	sum, err := h.run(t, RunConfig{})
	require.NoError(t, err)
	assert.Empty(t, sum.Failed())
	assert.Equal(t, "train", sum.Stage)
	assert.Equal(t, []string{"frame_000/frame_000.ply", "frame_001/frame_001.ply", "frame_002/frame_002.ply"}, exporter.keys)
}

func TestScheduler_OutputSink(t *testing.T) {
	h := newHarness(t, 1)
	var lines []string
	h.deps.Output = func(frame, step string) ports.LineSink {
		return func(_ ports.Stream, line string) {
			lines = append(lines, strings.Join([]string{frame, step, line}, "|"))
		}
	}

	_, err := h.run(t, RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"frame_000|feature_extractor|progress",
		"frame_000|exhaustive_matcher|progress",
		"frame_000|mapper|progress",
	}, lines)
}

func TestScheduler_PlanDoesNotRun(t *testing.T) {
	h := newHarness(t, 3)

	frames, order, err := NewScheduler(h.deps, RunConfig{Plan: domain.BatchPlan{Start: 2, Direction: domain.Reverse}}).Plan(context.Background())
	require.NoError(t, err)
	assert.Len(t, frames, 3)
	assert.Equal(t, []int{0, 2, 1}, order)
	assert.Empty(t, h.runner.calls)
}
