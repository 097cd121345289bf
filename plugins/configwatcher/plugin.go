// Package configwatcher reloads the tool parameter file while a batch runs.
// It watches the file's directory and, after a short debounce, validates
// the new contents; a valid file replaces the parameters the next frame
// starts with, an invalid one is logged and ignored.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/volumetrize/internal/ports"
	"github.com/bft-labs/volumetrize/internal/toolconfig"
	"github.com/bft-labs/volumetrize/pkg/volumetrize"
)

// Plugin watches the tool config file and serves the latest valid parameters.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	debounceDelay time.Duration
	onReload      func(volumetrize.ToolParams, error)

	// Runtime state
	path     string
	stage    string
	params   volumetrize.ToolParams
	logger   volumetrize.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 200 milliseconds
	DebounceDelay time.Duration

	// OnReload, if set, is called after every reload attempt with the
	// parameters now in effect and the validation error, if any.
	OnReload func(volumetrize.ToolParams, error)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 200 * time.Millisecond}
}

// New creates a config watcher plugin.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		onReload:      cfg.OnReload,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize loads the tool config once, failing the run if it is invalid,
// and starts watching it.
func (p *Plugin) Initialize(ctx context.Context, cfg volumetrize.PluginConfig) error {
	params, err := toolconfig.Load(cfg.ToolConfig, cfg.Stage)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.path = filepath.Clean(cfg.ToolConfig)
	p.stage = cfg.Stage
	p.params = params
	p.logger = cfg.Logger
	p.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn("config watcher disabled: cannot create watcher", ports.Err(err))
		return nil
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		p.logger.Warn("config watcher disabled: cannot watch directory",
			ports.String("dir", filepath.Dir(p.path)),
			ports.Err(err))
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", ports.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops watching and waits for the watcher goroutine.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Params returns the latest valid parameters.
func (p *Plugin) Params() volumetrize.ToolParams {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.params
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

func (p *Plugin) reload() {
	params, err := toolconfig.Load(p.path, p.stage)

	p.mu.Lock()
	if err == nil {
		p.params = params
	}
	current := p.params
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("tool config invalid, keeping previous parameters",
			ports.String("path", p.path),
			ports.Err(err))
	} else {
		p.logger.Info("tool config reloaded", ports.String("path", p.path))
	}
	if p.onReload != nil {
		p.onReload(current, err)
	}
}

// Ensure Plugin implements the plugin and parameter source interfaces.
var (
	_ volumetrize.Plugin       = (*Plugin)(nil)
	_ volumetrize.ParamsSource = (*Plugin)(nil)
)
