package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/poltergeist/phasebuild/pkg/logger"
)

// ErrAlreadyWatching is returned by StartWatching on a manager that is watching
var ErrAlreadyWatching = errors.New("already watching configuration files")

// ChangeKind says what happened to the configuration chain
type ChangeKind string

const (
	Modified ChangeKind = "modified"
	Created  ChangeKind = "created"
	Removed  ChangeKind = "removed"
	// Failed is used when the reload or the watcher itself failed; Error is set
	Failed ChangeKind = "failed"
)

// ReloadEvent is passed to callbacks after every reload attempt
type ReloadEvent struct {
	Path   string
	Time   time.Time
	Kind   ChangeKind
	Loaded *Loaded
	Error  error
}

// ReloadCallback receives reload events on the watcher goroutine
type ReloadCallback func(ReloadEvent)

// ReloadManager reloads a configuration whenever a file of its inheritance
// chain changes. The chain is re-read on every reload, so parents added or
// removed later are picked up.
type ReloadManager struct {
	loader   *Loader
	path     string
	logger   logger.Logger
	debounce time.Duration

	mu         sync.Mutex
	files      map[string]struct{}
	callbacks  []ReloadCallback
	watcher    *fsnotify.Watcher
	stop       chan struct{}
	timer      *time.Timer
	lastReload time.Time

	// serializes reloads
	reloadMu sync.Mutex
}

// NewReloadManager creates a reload manager for an already loaded configuration
func NewReloadManager(loader *Loader, loaded *Loaded, log logger.Logger) *ReloadManager {
	if log == nil {
		log = logger.Discard()
	}
	rm := &ReloadManager{
		loader:   loader,
		path:     loaded.Path,
		logger:   log.WithTarget("reload"),
		debounce: 500 * time.Millisecond,
	}
	rm.setFiles(loaded.Files)
	return rm
}

// AddCallback registers callback for every following reload
func (rm *ReloadManager) AddCallback(callback ReloadCallback) {
	rm.mu.Lock()
	rm.callbacks = append(rm.callbacks, callback)
	rm.mu.Unlock()
}

// SetDebouncePeriod sets how long events settle before a reload
func (rm *ReloadManager) SetDebouncePeriod(period time.Duration) {
	rm.mu.Lock()
	rm.debounce = period
	rm.mu.Unlock()
}

// Path is the root configuration file
func (rm *ReloadManager) Path() string { return rm.path }

// Files returns the files of the current chain, sorted
func (rm *ReloadManager) Files() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	files := make([]string, 0, len(rm.files))
	for file := range rm.files {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// LastReload is the time of the last successful reload
func (rm *ReloadManager) LastReload() time.Time {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.lastReload
}

// IsWatching reports whether StartWatching is in effect
func (rm *ReloadManager) IsWatching() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.watcher != nil
}

func (rm *ReloadManager) setFiles(files []string) {
	rm.files = make(map[string]struct{}, len(files))
	for _, file := range files {
		rm.files[filepath.Clean(file)] = struct{}{}
	}
}

// StartWatching watches the directory of every chain file until StopWatching
func (rm *ReloadManager) StartWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.watcher != nil {
		return ErrAlreadyWatching
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := addDirectories(watcher, rm.files); err != nil {
		watcher.Close()
		return err
	}

	rm.watcher = watcher
	rm.stop = make(chan struct{})
	go rm.loop(watcher, rm.stop)

	rm.logger.Debug("Watching configuration files", logger.WithField("files", len(rm.files)))
	return nil
}

// StopWatching stops watching. Pending reloads are dropped.
func (rm *ReloadManager) StopWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.watcher == nil {
		return nil
	}

	close(rm.stop)
	if rm.timer != nil {
		rm.timer.Stop()
		rm.timer = nil
	}
	err := rm.watcher.Close()
	rm.watcher = nil

	if err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	rm.logger.Debug("Stopped watching configuration files")
	return nil
}

// TriggerReload reloads synchronously, as if a file of the chain was modified
func (rm *ReloadManager) TriggerReload() {
	rm.reload(Modified, nil)
}

// addDirectories watches the directory of every file. Editors replace files
// on save, which drops a watch on the file itself.
func addDirectories(watcher *fsnotify.Watcher, files map[string]struct{}) error {
	watched := make(map[string]bool)
	for _, dir := range watcher.WatchList() {
		watched[dir] = true
	}
	for file := range files {
		dir := filepath.Dir(file)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch configuration directory %s: %w", dir, err)
		}
		watched[dir] = true
	}
	return nil
}

func (rm *ReloadManager) loop(watcher *fsnotify.Watcher, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if rm.concerns(event.Name) {
				rm.logger.Debug("Configuration file changed", logger.WithField("event", event.String()))
				rm.schedule(kindOf(event.Op), stop)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			rm.logger.Error("Configuration watcher failed", logger.WithField("error", err))
			rm.notify(ReloadEvent{Path: rm.path, Time: time.Now(), Kind: Failed, Error: err})
		}
	}
}

// concerns reports whether name is a chain file or an editor's temporary copy of one
func (rm *ReloadManager) concerns(name string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	name = filepath.Clean(name)
	if _, ok := rm.files[name]; ok {
		return true
	}

	dir, base := filepath.Split(name)
	for file := range rm.files {
		fileDir, fileBase := filepath.Split(file)
		if fileDir == dir && strings.HasPrefix(base, fileBase) {
			return true
		}
	}
	return false
}

func kindOf(op fsnotify.Op) ChangeKind {
	switch {
	case op.Has(fsnotify.Create):
		return Created
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return Removed
	}
	return Modified
}

// schedule restarts the debounce timer
func (rm *ReloadManager) schedule(kind ChangeKind, stop <-chan struct{}) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.timer != nil {
		rm.timer.Stop()
	}
	rm.timer = time.AfterFunc(rm.debounce, func() { rm.reload(kind, stop) })
}

// reload loads the chain again. A removed parent is reported by the loader
// like any other load error. stop is nil for manual reloads.
func (rm *ReloadManager) reload(kind ChangeKind, stop <-chan struct{}) {
	rm.reloadMu.Lock()
	defer rm.reloadMu.Unlock()

	if stop != nil {
		select {
		case <-stop:
			return
		default:
		}
	}

	event := ReloadEvent{Path: rm.path, Time: time.Now(), Kind: kind}

	loaded, err := rm.loader.Load(rm.path, filepath.Dir(rm.path))
	if err != nil {
		rm.logger.Warn("Configuration reload failed", logger.WithField("error", err))
		event.Kind, event.Error = Failed, err
		rm.notify(event)
		return
	}

	rm.mu.Lock()
	rm.setFiles(loaded.Files)
	rm.lastReload = event.Time
	if rm.watcher != nil {
		if err := addDirectories(rm.watcher, rm.files); err != nil {
			rm.logger.Warn("Cannot watch new configuration files", logger.WithField("error", err))
		}
	}
	rm.mu.Unlock()

	rm.logger.Info("Configuration reloaded", logger.WithField("files", len(loaded.Files)))
	event.Loaded = loaded
	rm.notify(event)
}

// notify runs callbacks in registration order. A panicking callback is logged
// and does not stop the others.
func (rm *ReloadManager) notify(event ReloadEvent) {
	rm.mu.Lock()
	callbacks := append([]ReloadCallback(nil), rm.callbacks...)
	rm.mu.Unlock()

	for _, callback := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					rm.logger.Error("Reload callback panicked", logger.WithField("panic", r))
				}
			}()
			callback(event)
		}()
	}
}
