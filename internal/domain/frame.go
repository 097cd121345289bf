package domain

import (
	"fmt"
	"strings"
)

// DefaultFramePrefix is the directory name prefix that marks a frame.
const DefaultFramePrefix = "frame_"

// ImagesDir is the sub-directory every frame must contain.
const ImagesDir = "images"

// ReferenceIndex is the index of the frame that is fully calibrated first.
const ReferenceIndex = 0

// FrameState is the processing state of a single frame.
type FrameState int

const (
	FramePending FrameState = iota
	FrameCalibrating
	FrameCalibrated
	FramePropagated
	FrameProcessing
	FrameDone
	FrameFailed
)

var frameStateNames = map[FrameState]string{
	FramePending:     "Pending",
	FrameCalibrating: "Calibrating",
	FrameCalibrated:  "Calibrated",
	FramePropagated:  "Propagated",
	FrameProcessing:  "Processing",
	FrameDone:        "Done",
	FrameFailed:      "Failed",
}

// String returns a human-readable representation of the state.
func (s FrameState) String() string {
	if name, ok := frameStateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether no further transition is allowed from s.
func (s FrameState) Terminal() bool {
	return s == FrameDone || s == FrameFailed
}

// ParseFrameState is the inverse of FrameState.String. Matching is case-insensitive.
func ParseFrameState(name string) (FrameState, error) {
	for s, n := range frameStateNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return FramePending, fmt.Errorf("unknown frame state %q", name)
}

// FrameRecord is one frame directory discovered under the project root.
// Records are ordered by Name and Index is assigned after sorting.
type FrameRecord struct {
	// Index is the position in the sorted frame list
	Index int

	// Path is the absolute directory of the frame
	Path string

	// Name is the directory base name (e.g. "frame_000")
	Name string

	// State is the current processing state
	State FrameState
}

// IsReference reports whether the record is the reference frame.
func (f FrameRecord) IsReference() bool {
	return f.Index == ReferenceIndex
}
