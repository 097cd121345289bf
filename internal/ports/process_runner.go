package ports

import (
	"context"

	"github.com/bft-labs/volumetrize/internal/domain"
)

// Stream names the output stream a line was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// LineSink receives each complete output line as soon as it is read.
// It is always called from the goroutine that invoked Run.
type LineSink func(stream Stream, line string)

// Command describes one external tool call.
type Command struct {
	// Argv is the executable followed by its arguments
	Argv []string

	// Dir is the working directory; empty means the current directory
	Dir string

	// Sink receives output lines as they arrive; may be nil
	Sink LineSink
}

// ProcessRunner executes external tools.
type ProcessRunner interface {
	// Run blocks until the process exits and returns the captured invocation.
	// A nonzero exit or a start failure returns *domain.ExternalToolFailure.
	// Canceling ctx interrupts the process and kills it after a grace period.
	Run(ctx context.Context, cmd Command) (domain.Invocation, error)
}
