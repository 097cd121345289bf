// Package domain contains the core domain entities and value objects for volumetrize.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (process execution, file system,
// logging) and contains only the rules of a reconstruction batch.
//
// # Entities
//
//   - [FrameRecord]: One time-ordered frame directory and its processing state
//   - [BatchPlan]: The operator's selection of frames (start, count, direction)
//   - [ArtifactSet]: Calibration outputs of the reference frame that other frames reuse
//   - [Invocation]: One external tool call with its captured output and exit code
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
