package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// propagate copies the reference artifacts into the frame at idx and runs
// the reduced sequence seeded by them. The frame ends Processing on success;
// the caller marks it Done.
func (s *Scheduler) propagate(ctx context.Context, lc *Lifecycle, ref domain.FrameRecord, idx int, params domain.ToolParams) (int, error) {
	frame := lc.Frame(idx)

	if err := s.prepare(frame); err != nil {
		return 0, fmt.Errorf("prepare workspace: %w", err)
	}

	set, err := s.deps.Strategy.Artifacts(ref, frame)
	if err != nil {
		return 0, err
	}
	copied, skipped, err := s.deps.Workspace.CopyArtifacts(ctx, frame, set)
	if err != nil {
		return 0, err
	}
	s.deps.Logger.Debug("artifacts propagated",
		ports.String("frame", frame.Name),
		ports.Strings("copied", copied),
		ports.Strings("unchanged", skipped),
	)
	if err := lc.TransitionTo(idx, domain.FramePropagated, "artifacts copied"); err != nil {
		return 0, err
	}

	steps, err := s.deps.Strategy.PropagationSteps(ref, frame, params)
	if err != nil {
		return 0, err
	}
	if err := lc.TransitionTo(idx, domain.FrameProcessing, "propagation steps"); err != nil {
		return 0, err
	}
	return s.runSteps(ctx, frame, steps, params)
}
