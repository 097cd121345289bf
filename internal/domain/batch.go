package domain

import (
	"fmt"
	"strings"
)

// Direction is the order in which a batch walks the frame list.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// String returns the flag spelling of the direction.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// ParseDirection accepts "forward"/"reverse" and their short forms.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward", "fwd", "f":
		return Forward, nil
	case "reverse", "rev", "r", "backward":
		return Reverse, nil
	default:
		return Forward, &ConfigurationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", s)}
	}
}

// BatchPlan selects the frames a run processes.
type BatchPlan struct {
	// Start is the first index to process
	Start int

	// Count limits the number of frames; zero or negative means no limit.
	// In reverse mode the start index counts as the first item.
	Count int

	// Direction walks forward (increasing) or reverse (decreasing) from Start
	Direction Direction

	// TestMode processes the reference frame only
	TestMode bool
}
