package tasks

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/poltergeist/phasebuild/pkg/logger"
	"github.com/poltergeist/phasebuild/pkg/utils"
)

// maxParallelScans bounds how many task directories are read at once
const maxParallelScans = 4

// Resolver builds the task registry for a configuration.
type Resolver struct {
	fs       *utils.FileSystemUtils
	builtins []*Task
	log      logger.Logger
}

// NewResolver creates a resolver registering builtins before any directory.
func NewResolver(fs afero.Fs, builtins []*Task, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{
		fs:       utils.NewFileSystemUtils(fs),
		builtins: builtins,
		log:      log.WithTarget("tasks"),
	}
}

// Resolve registers the built-in tasks and then the manifests of every
// directory in order, so a later directory overrides an earlier one and
// any directory overrides a built-in task of the same name.
// Directories are scanned concurrently; the first error in directory order wins.
func (r *Resolver) Resolve(ctx context.Context, dirs []string) (*Registry, error) {
	registry := NewRegistry()
	for _, task := range r.builtins {
		if err := registry.Register(task, SourceBuiltin); err != nil {
			return nil, err
		}
	}

	loaded := make([][]*Task, len(dirs))
	errs := make([]error, len(dirs))

	var g errgroup.Group
	g.SetLimit(maxParallelScans)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			loaded[i], errs[i] = r.loadDirectory(ctx, dir)
			return nil
		})
	}
	_ = g.Wait()

	for i, dir := range dirs {
		if errs[i] != nil {
			return nil, errs[i]
		}
		for _, task := range loaded[i] {
			if previous := registry.Source(task.Name); previous != "" {
				r.log.Debug("Task overridden",
					logger.WithField("task", task.Name),
					logger.WithField("previous", previous),
					logger.WithField("source", dir))
			}
			if err := registry.Register(task, dir); err != nil {
				return nil, err
			}
		}
	}

	r.log.Debug("Tasks resolved", logger.WithField("count", registry.Len()))
	return registry, nil
}

func (r *Resolver) loadDirectory(ctx context.Context, dir string) ([]*Task, error) {
	if !r.fs.IsDirectory(dir) {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryMissing, dir)
	}

	files, err := r.fs.ListFiles(dir, ManifestSuffix)
	if err != nil {
		return nil, fmt.Errorf("cannot read tasks directory %s: %w", dir, err)
	}

	found := make([]*Task, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		task, err := LoadManifest(r.fs.Fs(), file)
		if err != nil {
			return nil, err
		}
		found = append(found, task)
	}
	return found, nil
}
