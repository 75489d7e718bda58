package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/poltergeist/phasebuild/pkg/config"
	"github.com/poltergeist/phasebuild/pkg/logger"
)

// Prepare validates a loaded configuration and builds the runner for it
type Prepare func(ctx context.Context, loaded *config.Loaded) (*Runner, error)

// Watcher runs a phase once, then again whenever a file of the configuration chain changes
type Watcher struct {
	loader   *config.Loader
	loaded   *config.Loaded
	prepare  Prepare
	phase    string
	console  *logger.ConsoleLogger
	logger   logger.Logger
	debounce time.Duration
	onBuild  func(error)
}

// WatchOption configures a Watcher
type WatchOption func(*Watcher)

// WithWatchLogger sets the diagnostics logger
func WithWatchLogger(log logger.Logger) WatchOption {
	return func(w *Watcher) { w.logger = log }
}

// WithWatchConsole sets where reload errors are printed
func WithWatchConsole(console *logger.ConsoleLogger) WatchOption {
	return func(w *Watcher) { w.console = console }
}

// WithDebounce sets how long file events settle before a reload
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithBuildHook is called after every build with its result
func WithBuildHook(hook func(error)) WatchOption {
	return func(w *Watcher) { w.onBuild = hook }
}

// NewWatcher creates a watcher. An empty phase runs the default phase of
// whichever configuration is current.
func NewWatcher(loader *config.Loader, loaded *config.Loaded, prepare Prepare, phase string, opts ...WatchOption) *Watcher {
	w := &Watcher{
		loader:   loader,
		loaded:   loaded,
		prepare:  prepare,
		phase:    phase,
		logger:   logger.Discard(),
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.console == nil {
		w.console = logger.NewConsoleLogger(io.Discard, io.Discard, true)
	}
	w.logger = w.logger.WithTarget("watch")
	return w
}

// Run builds until ctx is cancelled. Build failures and reload errors are
// reported and watching goes on; only a failure to watch is returned.
func (w *Watcher) Run(ctx context.Context) error {
	rm := config.NewReloadManager(w.loader, w.loaded, w.logger)
	rm.SetDebouncePeriod(w.debounce)

	reloads := make(chan config.ReloadEvent, 1)
	rm.AddCallback(func(event config.ReloadEvent) {
		// keep only the newest event while a build is running
		select {
		case <-reloads:
		default:
		}
		select {
		case reloads <- event:
		default:
		}
	})

	if err := rm.StartWatching(); err != nil {
		return err
	}

	g, gctx := NewSafeGroup(ctx, w.logger)

	g.Go("stop-watching", func() error {
		<-gctx.Done()
		return rm.StopWatching()
	})

	g.Go("builds", func() error {
		w.build(gctx, w.loaded)
		for {
			select {
			case <-gctx.Done():
				return nil
			case event := <-reloads:
				if event.Error != nil {
					w.console.Error("Configuration reload failed")
					w.console.Errors(event.Error)
					continue
				}
				w.logger.Info("Configuration changed, rebuilding",
					logger.WithField("files", len(event.Loaded.Files)))
				w.build(gctx, event.Loaded)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Watcher) build(ctx context.Context, loaded *config.Loaded) {
	phase := w.phase
	if phase == "" {
		phase = loaded.Config.DefaultPhase
	}

	runner, err := w.prepare(ctx, loaded)
	if err == nil {
		err = runner.Run(ctx, phase)
	}

	if err != nil && ctx.Err() == nil {
		w.console.Errors(err)
	} else if err == nil {
		w.console.Success("Build finished, watching for changes")
	}
	if w.onBuild != nil {
		w.onBuild(err)
	}
}
