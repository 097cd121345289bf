package ports

import "context"

// Gate asks the operator to acknowledge a batch before any work starts.
type Gate interface {
	// Confirm returns false when the operator declines.
	Confirm(ctx context.Context, summary string) (bool, error)
}
