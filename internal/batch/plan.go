// Package batch resolves a BatchPlan into the ordered frame indices a run visits.
package batch

import (
	"fmt"

	"github.com/bft-labs/volumetrize/internal/domain"
)

// Resolve returns the indices selected by plan over n frames.
//
// Forward walks start, start+1, ... and reverse walks start, start-1, ...;
// both stop after plan.Count items (the start index included) or at the
// edge of [0, n). A non-positive Count means no limit. TestMode selects
// the reference frame only.
func Resolve(plan domain.BatchPlan, n int) ([]int, error) {
	if n <= 0 {
		return nil, &domain.ConfigurationError{Field: "frames", Reason: "no frames to plan"}
	}
	if plan.TestMode {
		return []int{domain.ReferenceIndex}, nil
	}
	if plan.Start < 0 || plan.Start >= n {
		return nil, &domain.ConfigurationError{
			Field:  "start",
			Reason: fmt.Sprintf("%d is outside [0, %d)", plan.Start, n),
		}
	}

	step := 1
	if plan.Direction == domain.Reverse {
		step = -1
	}

	var out []int
	for i := plan.Start; i >= 0 && i < n; i += step {
		if plan.Count > 0 && len(out) == plan.Count {
			break
		}
		out = append(out, i)
	}
	return out, nil
}

// ExecutionOrder is the reference frame followed by the resolved plan with
// the reference removed. The reference always runs first because every other
// frame depends on its artifacts.
func ExecutionOrder(plan domain.BatchPlan, n int) ([]int, error) {
	selected, err := Resolve(plan, n)
	if err != nil {
		return nil, err
	}
	order := make([]int, 0, len(selected)+1)
	order = append(order, domain.ReferenceIndex)
	for _, i := range selected {
		if i != domain.ReferenceIndex {
			order = append(order, i)
		}
	}
	return order, nil
}
