package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent error conditions in the volumetrize domain.
// The typed errors below match these sentinels with errors.Is.
var (
	// ErrConfiguration is returned when flags, files or tool paths are invalid.
	ErrConfiguration = errors.New("volumetrize: invalid configuration")

	// ErrMissingFrames is returned when the project root holds no usable frame.
	ErrMissingFrames = errors.New("volumetrize: no frames found")

	// ErrReferenceFailed is returned when the reference frame cannot be calibrated.
	ErrReferenceFailed = errors.New("volumetrize: reference processing failed")

	// ErrMissingArtifact is returned when a reference artifact is absent during propagation.
	ErrMissingArtifact = errors.New("volumetrize: missing artifact")

	// ErrToolFailed is returned when an external tool exits nonzero or cannot start.
	ErrToolFailed = errors.New("volumetrize: external tool failed")

	// ErrInvalidTransition is returned for a frame state change the lifecycle forbids.
	ErrInvalidTransition = errors.New("volumetrize: invalid state transition")

	// ErrDeclined is returned when the operator refuses to start the batch.
	ErrDeclined = errors.New("volumetrize: batch declined by operator")
)

// OutputTailLines is how many captured lines a failure report carries.
const OutputTailLines = 20

// ConfigurationError reports an invalid setting detected before any frame work.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// MissingFramesError reports a project root without qualifying frame directories.
type MissingFramesError struct {
	Root   string
	Prefix string
}

func (e *MissingFramesError) Error() string {
	return fmt.Sprintf("no %s* directories with an %s folder under %s", e.Prefix, ImagesDir, e.Root)
}

func (e *MissingFramesError) Is(target error) bool { return target == ErrMissingFrames }

// ReferenceProcessingError wraps the failure that aborted the reference frame.
type ReferenceProcessingError struct {
	Frame string
	Err   error
}

func (e *ReferenceProcessingError) Error() string {
	return fmt.Sprintf("reference frame %s: %v", e.Frame, e.Err)
}

func (e *ReferenceProcessingError) Unwrap() error { return e.Err }

func (e *ReferenceProcessingError) Is(target error) bool { return target == ErrReferenceFailed }

// MissingArtifactError reports a reference artifact that could not be found.
type MissingArtifactError struct {
	Frame    string
	Artifact string
	Path     string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("frame %s: artifact %s not found at %s", e.Frame, e.Artifact, e.Path)
}

func (e *MissingArtifactError) Is(target error) bool { return target == ErrMissingArtifact }

// ExternalToolFailure reports a tool that exited nonzero or never started.
// ExitCode is -1 when the process could not be started.
type ExternalToolFailure struct {
	Argv       []string
	WorkingDir string
	ExitCode   int
	Stdout     []string
	Stderr     []string
	Err        error
}

func (e *ExternalToolFailure) Error() string {
	cmd := strings.Join(e.Argv, " ")
	if e.ExitCode < 0 {
		return fmt.Sprintf("start %q: %v", cmd, e.Err)
	}
	return fmt.Sprintf("%q exited with code %d", cmd, e.ExitCode)
}

func (e *ExternalToolFailure) Unwrap() error { return e.Err }

func (e *ExternalToolFailure) Is(target error) bool { return target == ErrToolFailed }

// OutputTail returns the last captured lines of both streams, stderr last.
func (e *ExternalToolFailure) OutputTail() []string {
	out := append([]string{}, Tail(e.Stdout, OutputTailLines)...)
	return append(out, Tail(e.Stderr, OutputTailLines)...)
}
