package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// processReference runs the full calibration sequence on the reference frame.
// The frame ends Calibrated on success; the caller marks it Done.
func (s *Scheduler) processReference(ctx context.Context, lc *Lifecycle, params domain.ToolParams) (int, error) {
	idx := domain.ReferenceIndex
	ref := lc.Frame(idx)

	if err := lc.TransitionTo(idx, domain.FrameCalibrating, "reference calibration"); err != nil {
		return 0, err
	}
	if err := s.prepare(ref); err != nil {
		return 0, fmt.Errorf("prepare workspace: %w", err)
	}

	steps, err := s.deps.Strategy.ReferenceSteps(ref, params)
	if err != nil {
		return 0, err
	}
	attempts, err := s.runSteps(ctx, ref, steps, params)
	if err != nil {
		return attempts, err
	}

	if err := lc.TransitionTo(idx, domain.FrameCalibrated, "reference steps complete"); err != nil {
		return attempts, err
	}
	s.deps.Logger.Info("reference frame calibrated",
		ports.String("frame", ref.Name),
		ports.Int("attempts", attempts),
	)
	return attempts, nil
}
