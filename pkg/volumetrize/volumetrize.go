package volumetrize

import (
	"context"

	"github.com/bft-labs/volumetrize/internal/adapters/blobexport"
	"github.com/bft-labs/volumetrize/internal/adapters/fs"
	logAdapter "github.com/bft-labs/volumetrize/internal/adapters/log"
	"github.com/bft-labs/volumetrize/internal/adapters/process"
	"github.com/bft-labs/volumetrize/internal/app"
	"github.com/bft-labs/volumetrize/internal/ports"
	"github.com/bft-labs/volumetrize/internal/strategy"
	"github.com/bft-labs/volumetrize/internal/toolconfig"
	"github.com/bft-labs/volumetrize/pkg/state"
)

// Volumetrize runs calibration or training batches over one project.
// Use New to create an instance, then Run to process the batch.
type Volumetrize struct {
	config    Config
	opts      options
	strategy  ports.Strategy
	frames    *fs.FrameRepository
	stateRepo *state.FileRepository
	logger    Logger
}

// New creates an instance. It returns a ConfigurationError when cfg is
// invalid; nothing touches the project until Run.
func New(cfg Config, opts ...Option) (*Volumetrize, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	strat, err := strategy.New(cfg.Tool, cfg.strategyOptions())
	if err != nil {
		return nil, err
	}

	return &Volumetrize{
		config:    cfg,
		opts:      o,
		strategy:  strat,
		frames:    fs.NewFrameRepository(cfg.Project, cfg.FramePrefix, o.logger),
		stateRepo: state.NewFileRepository(cfg.StateDir, strat.Stage()),
		logger:    o.logger,
	}, nil
}

// Stage returns "calibrate" or "train".
func (v *Volumetrize) Stage() string {
	return v.strategy.Stage()
}

// Config returns the configuration with defaults applied.
func (v *Volumetrize) Config() Config {
	return v.config
}

// Frames lists the project's frame directories in index order.
func (v *Volumetrize) Frames(ctx context.Context) ([]Frame, error) {
	return v.frames.Discover(ctx)
}

// Plan returns the discovered frames and the indices Run would process, in order.
func (v *Volumetrize) Plan(ctx context.Context) ([]Frame, []int, error) {
	return app.NewScheduler(v.deps(nil, nil, nil), v.runConfig()).Plan(ctx)
}

// Status returns the progress persisted by earlier runs of this stage.
func (v *Volumetrize) Status(ctx context.Context) (Status, error) {
	return v.stateRepo.Load(ctx)
}

// StatePath returns the status file of this stage.
func (v *Volumetrize) StatePath() string {
	return v.stateRepo.Path()
}

// Run processes the batch: the reference frame first, stopping on its
// failure, then every other selected frame, continuing past failures.
// It blocks until the batch ends or ctx is canceled, which terminates the
// running tool.
func (v *Volumetrize) Run(ctx context.Context) (Summary, error) {
	pluginCfg := PluginConfig{
		Project:    v.config.Project,
		Stage:      v.strategy.Stage(),
		Tool:       v.strategy.Name(),
		ToolConfig: v.config.ToolConfig,
		Logger:     v.logger,
	}
	initialized := 0
	defer func() {
		v.shutdownPlugins(initialized)
	}()
	for _, p := range v.opts.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			v.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			return Summary{}, err
		}
		initialized++
		v.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	params, err := v.paramsSource()
	if err != nil {
		return Summary{}, err
	}

	exporter := v.opts.exporter
	if exporter == nil && v.config.ExportBucket != "" {
		e, err := blobexport.Open(ctx, v.config.ExportBucket, v.config.ExportPrefix)
		if err != nil {
			return Summary{}, err
		}
		defer e.Close()
		exporter = e
	}

	runner := v.opts.runner
	if runner == nil {
		runner = process.NewRunner(process.WithLogger(v.logger))
	}

	return app.NewScheduler(v.deps(runner, params, exporter), v.runConfig()).Run(ctx)
}

// paramsSource picks, in order: the explicit option, a plugin that serves
// parameters, the tool config file.
func (v *Volumetrize) paramsSource() (ParamsSource, error) {
	if v.opts.params != nil {
		return v.opts.params, nil
	}
	for _, p := range v.opts.plugins {
		if src, ok := p.(ParamsSource); ok {
			return src, nil
		}
	}
	params, err := toolconfig.Load(v.config.ToolConfig, v.strategy.Stage())
	if err != nil {
		return nil, err
	}
	return toolconfig.Static(params), nil
}

func (v *Volumetrize) deps(runner ProcessRunner, params ParamsSource, exporter Exporter) app.Deps {
	logger := v.logger
	extra := v.opts.output
	var emitter app.EventEmitter
	if v.opts.eventHandler != nil {
		emitter = &eventEmitterWrapper{handler: v.opts.eventHandler}
	}
	return app.Deps{
		Runner:    runner,
		Frames:    v.frames,
		Workspace: fs.NewWorkspace(),
		Strategy:  v.strategy,
		Params:    params,
		State:     v.stateRepo,
		Gate:      v.opts.gate,
		Exporter:  exporter,
		Output: func(frame, step string) ports.LineSink {
			return logAdapter.Tee(logAdapter.ToolOutput(logger, frame, step), extra)
		},
		Logger: logger,
		Events: emitter,
	}
}

func (v *Volumetrize) runConfig() app.RunConfig {
	return app.RunConfig{
		RunID:  v.config.RunID,
		Plan:   v.config.plan(),
		Resume: v.config.Resume,
		Clean:  v.config.Clean,
	}
}

// shutdownPlugins shuts down the first n plugins in reverse order.
func (v *Volumetrize) shutdownPlugins(n int) {
	ctx := context.Background()
	for i := n - 1; i >= 0; i-- {
		p := v.opts.plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			v.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			v.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}
