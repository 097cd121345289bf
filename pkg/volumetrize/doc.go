// Package volumetrize provides an embeddable batch orchestrator for
// multi-frame 3D reconstruction.
//
// A project is a directory of frame_<NNN> subdirectories, each holding an
// images/ directory captured by the same rig at one instant. Volumetrize
// calibrates the reference frame (frame_000) with a full tool run, copies
// its camera artifacts into every other selected frame and runs a cheaper
// sequence seeded by them. Training runs a splat trainer over each frame
// in the same order.
//
// # Basic Usage
//
//	cfg := volumetrize.Config{
//	    Project: "/data/shoot-01",
//	    Tool:    "colmap",
//	}
//
//	v, err := volumetrize.New(cfg, volumetrize.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sum, err := v.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range sum.Failed() {
//	    log.Printf("%s: %v", r.Frame.Name, r.Err)
//	}
//
// # Errors
//
// Run returns an error only when the batch could not run as a whole: a
// configuration problem, a declined [Gate], a failed reference frame or a
// canceled context. Failures of other frames are reported in the [Summary].
// Use errors.Is with the sentinels of the domain errors, for example a
// reference failure matches its ReferenceProcessingError.
//
// # Event Handling
//
// Implement [EventHandler] and pass it via [WithEventHandler] to follow
// frame state changes and tool invocations. Embed [BaseEventHandler] to
// implement only some of them.
//
// # Plugins
//
// Plugins are initialized when Run starts and shut down when it returns.
// A plugin that also implements [ParamsSource] supplies the tool
// parameters:
//
//	import "github.com/bft-labs/volumetrize/plugins/configwatcher"
//
//	v, err := volumetrize.New(cfg, configwatcher.WithDefaultConfigWatcher())
package volumetrize
