package ports

import (
	"context"

	"github.com/bft-labs/volumetrize/internal/domain"
)

// Workspace manages the on-disk tool directories of frames.
type Workspace interface {
	// Reset removes dirs and everything below them.
	Reset(dirs []string) error

	// Ensure creates dirs.
	Ensure(dirs []string) error

	// CopyArtifacts copies set into frame's workspace without touching the
	// sources. Destinations that already match are skipped.
	CopyArtifacts(ctx context.Context, frame domain.FrameRecord, set domain.ArtifactSet) (copied, skipped []string, err error)

	// Fingerprint digests the content of the set's sources. An empty set
	// has an empty fingerprint.
	Fingerprint(set domain.ArtifactSet) (string, error)
}

// OutputSinkFactory builds the line sink for one step of one frame.
type OutputSinkFactory func(frame, step string) LineSink
