// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [ProcessRunner]: Runs one external tool and streams its output
//   - [FrameRepository]: Discovers the ordered frame directories of a project
//   - [Strategy]: The tool family (COLMAP, RealityScan, Postshot) driving a stage
//   - [StateRepository]: Persists per-frame progress for resumable batches
//   - [Gate]: Operator acknowledgment before any work starts
//   - [Exporter]: Publishes produced files to an external sink
//   - [Logger]: Structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (os/exec, file system, zerolog, gocloud blob).
package ports
