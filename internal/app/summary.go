package app

import (
	"time"

	"github.com/bft-labs/volumetrize/internal/domain"
)

// FrameResult is the outcome of one frame in a run.
type FrameResult struct {
	Frame    domain.FrameRecord
	Attempts int
	Duration time.Duration
	Skipped  bool
	Err      error
}

// Summary is the outcome of a run.
type Summary struct {
	RunID   string
	Stage   string
	Tool    string
	Order   []int
	Results []FrameResult
}

// Failed returns the results that ended in failure.
func (s Summary) Failed() []FrameResult {
	var out []FrameResult
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Completed counts frames that ended Done, skipped ones included.
func (s Summary) Completed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}
