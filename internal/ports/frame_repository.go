package ports

import (
	"context"

	"github.com/bft-labs/volumetrize/internal/domain"
)

// FrameRepository enumerates the frames of a project.
type FrameRepository interface {
	// Discover returns the frames sorted by name with indices assigned.
	// Returns *domain.MissingFramesError when no frame qualifies.
	Discover(ctx context.Context) ([]domain.FrameRecord, error)
}
