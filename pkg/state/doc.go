// Package state provides batch progress persistence for resumable runs.
//
// Each pipeline stage keeps its own status file recording the run ID, the
// tool and the state of every frame. The scheduler saves it after each frame
// reaches a terminal state, so a later run with --resume can skip frames
// that are already done.
//
// # Usage
//
//	repo := state.NewFileRepository("/project/.volumetrize", "calibrate")
//
//	s, err := repo.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	if s.Done("frame_003") {
//	    // skip
//	}
//	s.Record("frame_003", 3, "Done", 1, nil)
//	if err := repo.Save(ctx, s); err != nil {
//	    return err
//	}
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package state
