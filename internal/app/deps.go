// Package app holds the orchestration core: the per-frame lifecycle, the
// reference processor, the propagation engine and the batch scheduler.
package app

import (
	"time"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// Deps are the collaborators a run needs. Nil State, Gate, Exporter, Output
// and Events disable the corresponding feature.
type Deps struct {
	Runner    ports.ProcessRunner
	Frames    ports.FrameRepository
	Workspace ports.Workspace
	Strategy  ports.Strategy
	Params    ports.ParamsSource
	State     ports.StateRepository
	Gate      ports.Gate
	Exporter  ports.Exporter
	Output    ports.OutputSinkFactory
	Logger    ports.Logger
	Events    EventEmitter
}

// RunConfig selects what a run does.
type RunConfig struct {
	// RunID tags log lines, the state file and exported keys
	RunID string

	Plan domain.BatchPlan

	// Resume skips frames a previous run of the same stage finished
	Resume bool

	// Clean removes each frame's tool workspace before processing it
	Clean bool

	// Backoff between retries of a failed step
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (c RunConfig) withDefaults() RunConfig {
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = DefaultBackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	return c
}
