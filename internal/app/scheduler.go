package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/volumetrize/internal/batch"
	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
	"github.com/bft-labs/volumetrize/pkg/state"
)

// Scheduler drives one batch: the reference frame first and fail-fast, then
// every other selected frame in plan order with continue-on-error.
type Scheduler struct {
	deps Deps
	cfg  RunConfig
}

// NewScheduler creates a scheduler. A missing RunID gets a fresh UUID.
func NewScheduler(deps Deps, cfg RunConfig) *Scheduler {
	cfg = cfg.withDefaults()
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Scheduler{deps: deps, cfg: cfg}
}

// RunID returns the identifier of the run.
func (s *Scheduler) RunID() string {
	return s.cfg.RunID
}

// Plan discovers the frames and resolves the execution order without running anything.
func (s *Scheduler) Plan(ctx context.Context) ([]domain.FrameRecord, []int, error) {
	frames, err := s.deps.Frames.Discover(ctx)
	if err != nil {
		return nil, nil, err
	}
	order, err := batch.ExecutionOrder(s.cfg.Plan, len(frames))
	if err != nil {
		return nil, nil, err
	}
	return frames, order, nil
}

// Run executes the batch. It returns an error for configuration problems, a
// declined gate, a failed reference frame or cancellation. Failures of other
// frames are reported in the summary only.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	strat := s.deps.Strategy
	logger := s.deps.Logger
	sum := Summary{RunID: s.cfg.RunID, Stage: strat.Stage(), Tool: strat.Name()}

	frames, order, err := s.Plan(ctx)
	if err != nil {
		return sum, err
	}
	sum.Order = order

	st, err := s.loadState(ctx)
	if err != nil {
		return sum, err
	}

	if s.deps.Gate != nil {
		ok, err := s.deps.Gate.Confirm(ctx, s.describe(frames, order))
		if err != nil {
			return sum, err
		}
		if !ok {
			return sum, domain.ErrDeclined
		}
	}

	logger.Info("batch starting",
		ports.String("run_id", s.cfg.RunID),
		ports.String("stage", strat.Stage()),
		ports.String("tool", strat.Name()),
		ports.Int("frames", len(order)),
		ports.Bool("resume", s.cfg.Resume),
	)

	lc := NewLifecycle(frames, logger, s.deps.Events)
	ref := lc.Frame(domain.ReferenceIndex)

	// Reference frame: fail-fast.
	res := s.runFrame(ctx, lc, st, frameTask{
		idx:      domain.ReferenceIndex,
		reusable: func() bool { return s.referenceReusable(ref) },
		process: func(p domain.ToolParams) (int, error) {
			return s.processReference(ctx, lc, p)
		},
	})
	sum.Results = append(sum.Results, res)
	if res.Err != nil {
		return sum, &domain.ReferenceProcessingError{Frame: ref.Name, Err: res.Err}
	}

	calibration, cerr := s.calibration(ref)
	if cerr != nil {
		logger.Warn("cannot fingerprint reference artifacts", ports.String("frame", ref.Name), ports.Err(cerr))
	}

	for _, idx := range order[1:] {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		name := lc.Frame(idx).Name
		res := s.runFrame(ctx, lc, st, frameTask{
			idx:         idx,
			calibration: calibration,
			// a frame propagated from another calibration is stale
			reusable: func() bool { return cerr == nil && st.Frames[name].Calibration == calibration },
			process: func(p domain.ToolParams) (int, error) {
				return s.propagate(ctx, lc, ref, idx, p)
			},
		})
		sum.Results = append(sum.Results, res)
		if res.Err != nil && ctx.Err() != nil {
			return sum, ctx.Err()
		}
	}

	logger.Info("batch finished",
		ports.String("run_id", s.cfg.RunID),
		ports.Int("completed", sum.Completed()),
		ports.Int("failed", len(sum.Failed())),
	)
	return sum, nil
}

// frameTask is one frame of the batch.
type frameTask struct {
	idx int

	// calibration is recorded with the frame's status
	calibration string

	// reusable reports whether a frame recorded as done may be skipped on resume
	reusable func() bool

	process func(domain.ToolParams) (int, error)
}

// runFrame wraps one frame: resume skip, parameter snapshot, failure
// handling, export and state persistence.
func (s *Scheduler) runFrame(ctx context.Context, lc *Lifecycle, st *state.State, task frameTask) FrameResult {
	idx := task.idx
	frame := lc.Frame(idx)
	logger := s.deps.Logger

	if s.cfg.Resume && st.Done(frame.Name) {
		if task.reusable() {
			_ = lc.Restore(idx)
			logger.Info("frame already done, skipping", ports.String("frame", frame.Name))
			return FrameResult{Frame: lc.Frame(idx), Skipped: true}
		}
		logger.Info("frame done with outdated inputs, running again", ports.String("frame", frame.Name))
	}

	logger.Info("processing frame",
		ports.String("frame", frame.Name),
		ports.Int("index", frame.Index),
		ports.Bool("reference", frame.IsReference()),
	)

	start := time.Now()
	attempts, err := task.process(s.params())
	if err == nil {
		err = lc.TransitionTo(idx, domain.FrameDone, "steps complete")
	}
	if err != nil {
		lc.Fail(idx, err.Error())
		s.logFailure(frame, err)
	} else {
		s.export(ctx, frame)
	}

	res := FrameResult{
		Frame:    lc.Frame(idx),
		Attempts: attempts,
		Duration: time.Since(start),
		Err:      err,
	}
	st.Record(frame.Name, frame.Index, res.Frame.State.String(), attempts, err)
	st.SetCalibration(frame.Name, task.calibration)
	if serr := s.saveState(st); serr != nil {
		logger.Error("failed to save state", ports.String("frame", frame.Name), ports.Err(serr))
	}
	return res
}

// referenceReusable reports whether the reference artifacts are still on
// disk, since later frames copy them.
func (s *Scheduler) referenceReusable(ref domain.FrameRecord) bool {
	set, err := s.deps.Strategy.Artifacts(ref, ref)
	if err != nil {
		return false
	}
	for _, a := range set {
		if _, err := os.Stat(a.Source); err != nil {
			return false
		}
	}
	return true
}

// calibration fingerprints the artifacts the reference currently provides.
func (s *Scheduler) calibration(ref domain.FrameRecord) (string, error) {
	set, err := s.deps.Strategy.Artifacts(ref, ref)
	if err != nil {
		return "", err
	}
	return s.deps.Workspace.Fingerprint(set)
}

func (s *Scheduler) params() domain.ToolParams {
	if s.deps.Params == nil {
		return domain.DefaultToolParams()
	}
	return s.deps.Params.Params()
}

// runSteps runs steps in order for frame, retrying each as configured.
// It returns the number of runner calls made.
func (s *Scheduler) runSteps(ctx context.Context, frame domain.FrameRecord, steps []ports.Step, params domain.ToolParams) (int, error) {
	attempts := 0
	for _, step := range steps {
		n, err := s.runStep(ctx, frame, step, params.RetriesFor(step.Name))
		attempts += n
		if err != nil {
			return attempts, err
		}
	}
	return attempts, nil
}

func (s *Scheduler) runStep(ctx context.Context, frame domain.FrameRecord, step ports.Step, retries int) (int, error) {
	logger := s.deps.Logger
	b := newBackoff(s.cfg.BackoffInitial, s.cfg.BackoffMax)

	for attempt := 1; ; attempt++ {
		logger.Info("running step",
			ports.String("frame", frame.Name),
			ports.String("step", step.Name),
			ports.Int("attempt", attempt),
		)
		cmd := ports.Command{Argv: step.Argv, Dir: step.Dir}
		if s.deps.Output != nil {
			cmd.Sink = s.deps.Output(frame.Name, step.Name)
		}
		inv, err := s.deps.Runner.Run(ctx, cmd)
		if s.deps.Events != nil {
			s.deps.Events.OnInvocation(frame, step.Name, inv, err)
		}
		if err == nil {
			logger.Info("step complete",
				ports.String("frame", frame.Name),
				ports.String("step", step.Name),
				ports.Duration("took", inv.Duration),
			)
			return attempt, nil
		}
		if ctx.Err() != nil || attempt > retries {
			return attempt, err
		}

		logger.Warn("step failed, retrying",
			ports.String("frame", frame.Name),
			ports.String("step", step.Name),
			ports.Int("exit_code", inv.ExitCode),
			ports.Duration("backoff", b.Current()),
		)
		if werr := b.Wait(ctx); werr != nil {
			return attempt, errors.Join(err, werr)
		}
	}
}

// prepare creates the frame's workspace, clearing it first on a clean run,
// and the parent directories of its outputs.
func (s *Scheduler) prepare(frame domain.FrameRecord) error {
	dirs := s.deps.Strategy.Workspace(frame)
	if s.cfg.Clean {
		if err := s.deps.Workspace.Reset(dirs); err != nil {
			return err
		}
	}
	for _, out := range s.deps.Strategy.Outputs(frame) {
		dirs = append(dirs, filepath.Dir(out))
	}
	return s.deps.Workspace.Ensure(dirs)
}

func (s *Scheduler) export(ctx context.Context, frame domain.FrameRecord) {
	if s.deps.Exporter == nil {
		return
	}
	for _, out := range s.deps.Strategy.Outputs(frame) {
		if _, err := os.Stat(out); err != nil {
			s.deps.Logger.Warn("output missing, not exported",
				ports.String("frame", frame.Name),
				ports.String("path", out),
			)
			continue
		}
		key := filepath.ToSlash(filepath.Join(frame.Name, filepath.Base(out)))
		if err := s.deps.Exporter.Export(ctx, out, key); err != nil {
			s.deps.Logger.Error("export failed",
				ports.String("frame", frame.Name),
				ports.String("key", key),
				ports.Err(err),
			)
			continue
		}
		s.deps.Logger.Info("exported output", ports.String("frame", frame.Name), ports.String("key", key))
	}
}

func (s *Scheduler) logFailure(frame domain.FrameRecord, err error) {
	fields := []ports.Field{
		ports.String("frame", frame.Name),
		ports.Int("index", frame.Index),
		ports.Err(err),
	}
	var tf *domain.ExternalToolFailure
	if errors.As(err, &tf) {
		fields = append(fields,
			ports.Strings("argv", tf.Argv),
			ports.Int("exit_code", tf.ExitCode),
			ports.Strings("output_tail", tf.OutputTail()),
		)
	}
	s.deps.Logger.Error("frame failed", fields...)
}

func (s *Scheduler) loadState(ctx context.Context) (*state.State, error) {
	st := &state.State{}
	if s.deps.State != nil {
		prev, err := s.deps.State.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		// Records of frames outside this run's plan are kept.
		if prev.Tool != "" && prev.Tool != s.deps.Strategy.Name() {
			s.deps.Logger.Warn("previous run used another tool, discarding its progress",
				ports.String("previous", prev.Tool),
				ports.String("tool", s.deps.Strategy.Name()),
			)
		} else {
			st.Frames = prev.Frames
		}
	}
	st.RunID = s.cfg.RunID
	st.Stage = s.deps.Strategy.Stage()
	st.Tool = s.deps.Strategy.Name()
	st.StartedAt = time.Now().UTC()
	return st, nil
}

// saveState persists st even when the run context is already canceled so an
// interrupted frame is recorded as failed.
func (s *Scheduler) saveState(st *state.State) error {
	if s.deps.State == nil {
		return nil
	}
	return s.deps.State.Save(context.Background(), *st)
}

func (s *Scheduler) describe(frames []domain.FrameRecord, order []int) string {
	names := make([]string, 0, len(order))
	for _, i := range order {
		names = append(names, frames[i].Name)
	}
	const maxListed = 10
	listed := names
	if len(listed) > maxListed {
		listed = append(append([]string{}, names[:maxListed-1]...), "...", names[len(names)-1])
	}
	return fmt.Sprintf("%s %d of %d frames with %s: %s",
		s.deps.Strategy.Stage(), len(order), len(frames), s.deps.Strategy.Name(), strings.Join(listed, ", "))
}
