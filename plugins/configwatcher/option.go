package configwatcher

import "github.com/bft-labs/volumetrize/pkg/volumetrize"

// WithConfigWatcher returns a volumetrize Option that reloads the tool
// config file during the run. Each frame starts with the latest valid
// parameters.
//
// Usage:
//
//	v, err := volumetrize.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 500 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) volumetrize.Option {
	return volumetrize.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher enables config watching with default settings.
//
// Usage:
//
//	v, err := volumetrize.New(cfg, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() volumetrize.Option {
	return WithConfigWatcher(DefaultConfig())
}
