// Package volumetrize orchestrates calibration and training batches over
// multi-frame 3D reconstruction projects.
//
// Example usage:
//
//	summary, err := volumetrize.Run(ctx, volumetrize.Config{
//	    Project: "/data/shoot-01",
//	    Tool:    "colmap",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(summary.Completed(), "frames done")
//
// The embeddable API with options, events and plugins lives in
// github.com/bft-labs/volumetrize/pkg/volumetrize.
package volumetrize

import (
	"context"

	"github.com/bft-labs/volumetrize/pkg/volumetrize"
)

// Config describes one batch. See pkg/volumetrize.Config.
type Config = volumetrize.Config

// Summary is the outcome of a batch.
type Summary = volumetrize.Summary

// Run processes the batch described by cfg and blocks until it ends or
// ctx is canceled.
func Run(ctx context.Context, cfg Config, opts ...volumetrize.Option) (Summary, error) {
	v, err := volumetrize.New(cfg, opts...)
	if err != nil {
		return Summary{}, err
	}
	return v.Run(ctx)
}

// Plan returns the frame names a batch would process, in order.
func Plan(ctx context.Context, cfg Config) ([]string, error) {
	v, err := volumetrize.New(cfg)
	if err != nil {
		return nil, err
	}
	frames, order, err := v.Plan(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(order))
	for i, idx := range order {
		names[i] = frames[idx].Name
	}
	return names, nil
}
