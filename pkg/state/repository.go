package state

import "context"

// Repository handles progress persistence for resumable batches.
type Repository interface {
	// Load retrieves the last saved state.
	// Returns an empty state and nil error if no state exists.
	Load(ctx context.Context) (State, error)

	// Save persists the current state atomically.
	Save(ctx context.Context, state State) error
}

var _ Repository = (*FileRepository)(nil)
