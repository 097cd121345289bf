package volumetrize

import "context"

// Plugin extends a run. Plugins are initialized before the batch starts and
// shut down after it ends, even when it fails.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is what a plugin learns about the run.
type PluginConfig struct {
	Project    string
	Stage      string
	Tool       string
	ToolConfig string
	Logger     Logger
}
