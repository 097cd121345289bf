package ports

import (
	"context"

	"github.com/bft-labs/volumetrize/pkg/state"
)

// StateRepository handles batch progress persistence for resumable runs.
// Implementations persist state to disk (or other storage) atomically.
type StateRepository interface {
	// Load retrieves the last saved state.
	// Returns an empty state and nil error if no state exists.
	Load(ctx context.Context) (state.State, error)

	// Save persists the current state atomically.
	Save(ctx context.Context, s state.State) error
}
