package volumetrize

import (
	"github.com/bft-labs/volumetrize/internal/app"
	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
	"github.com/bft-labs/volumetrize/pkg/log"
	"github.com/bft-labs/volumetrize/pkg/state"
)

// Re-exported types so embedders need not import internal packages.
type (
	// Logger is the structured logger interface from pkg/log.
	Logger = log.Logger

	// LogField is a structured log field.
	LogField = log.Field

	Frame       = domain.FrameRecord
	FrameState  = domain.FrameState
	ToolParams  = domain.ToolParams
	Invocation  = domain.Invocation
	Summary     = app.Summary
	FrameResult = app.FrameResult

	// Status is the persisted progress of one stage.
	Status = state.State

	ProcessRunner = ports.ProcessRunner
	Command       = ports.Command
	Stream        = ports.Stream
	LineSink      = ports.LineSink
	Gate          = ports.Gate
	Exporter      = ports.Exporter

	// ParamsSource supplies the tool parameters snapshotted before each frame.
	ParamsSource = ports.ParamsSource
)

// Option configures optional behavior of a Volumetrize instance.
type Option func(*options)

type options struct {
	logger       Logger
	runner       ProcessRunner
	gate         Gate
	exporter     Exporter
	params       ParamsSource
	output       LineSink
	eventHandler EventHandler
	plugins      []Plugin
}

func defaultOptions() options {
	return options{logger: log.Discard}
}

// WithLogger sets the logger. Without it nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRunner replaces the process runner that launches the external tools.
func WithRunner(runner ProcessRunner) Option {
	return func(o *options) {
		o.runner = runner
	}
}

// WithGate asks gate for confirmation before any frame work starts.
// Without a gate the batch starts unconditionally.
func WithGate(gate Gate) Option {
	return func(o *options) {
		o.gate = gate
	}
}

// WithExporter sets where trained outputs are copied. It takes precedence
// over Config.ExportBucket.
func WithExporter(exporter Exporter) Option {
	return func(o *options) {
		o.exporter = exporter
	}
}

// WithParamsSource supplies tool parameters instead of the tool config file.
func WithParamsSource(src ParamsSource) Option {
	return func(o *options) {
		o.params = src
	}
}

// WithOutput receives every line the external tools print, in addition to
// the logger.
func WithOutput(sink LineSink) Option {
	return func(o *options) {
		o.output = sink
	}
}

// WithEventHandler sets a handler for frame events.
// Events are called synchronously from the scheduler.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin initialized when Run starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
