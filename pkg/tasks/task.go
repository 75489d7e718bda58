//go:generate mockgen -destination=../mocks/mock_tasks.go -package=mocks github.com/poltergeist/phasebuild/pkg/tasks Context

// Package tasks defines the task contract and the registry tasks are loaded into.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/types"
)

var (
	// ErrReservedName is returned for tasks named after a reserved phase key.
	ErrReservedName = errors.New("task name uses a reserved name")

	// ErrRunMissing is returned when a task has no run operation for its mode.
	ErrRunMissing = errors.New("task should define a run operation")

	// ErrRunWithoutParameters is returned for run operations that cannot consume options.
	ErrRunWithoutParameters = errors.New("task run operation should consume its options")

	// ErrDirectoryMissing is returned when an external task directory does not exist.
	ErrDirectoryMissing = errors.New("external tasks directory doesn't exist")

	// ErrInvalidManifest is returned for task manifests that cannot be decoded.
	ErrInvalidManifest = errors.New("invalid task manifest")
)

// Mode tells the runner how a task signals completion.
type Mode int

const (
	// Sync tasks are complete when Run returns.
	Sync Mode = iota
	// Async tasks are complete when they call the done callback.
	Async
)

func (m Mode) String() string {
	if m == Async {
		return "async"
	}
	return "sync"
}

// ParseMode converts "sync" or "async" into a Mode. An empty string is Sync.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sync":
		return Sync, nil
	case "async":
		return Async, nil
	}
	return Sync, fmt.Errorf("unknown task mode %q", s)
}

// Reporter receives messages from a running task.
type Reporter interface {
	Error(message string)
	Warn(message string)
	Info(message string)
}

// Context is handed to a running task.
type Context interface {
	Reporter
	// Context is cancelled when the build is cancelled or the task timed out.
	Context() context.Context
	// BaseDir is the directory holding the loaded configuration file.
	BaseDir() string
	Fs() afero.Fs
}

// Options holds the options of one task invocation.
type Options map[string]any

// Has reports whether the option is set.
func (o Options) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// String returns a string option, or "" when absent or not a string.
func (o Options) String(name string) string {
	s, _ := o[name].(string)
	return s
}

// Strings returns a string or array-of-strings option as a slice.
func (o Options) Strings(name string) []string {
	values, _ := document.Strings(o[name])
	return values
}

// RunFunc runs a synchronous task.
type RunFunc func(ctx Context, options Options)

// AsyncRunFunc runs an asynchronous task. done must be called exactly once.
type AsyncRunFunc func(ctx Context, options Options, done func())

// Task describes a registered task.
type Task struct {
	Name            string
	Description     string
	RequiredOptions types.OptionSpec
	OptionalOptions types.OptionSpec
	Mode            Mode
	Run             RunFunc
	RunAsync        AsyncRunFunc
}

// Validate checks the task name and that the run operation matches the mode.
func (t *Task) Validate() error {
	if types.IsReservedTaskName(t.Name) {
		return fmt.Errorf("%w: %q (reserved: %s)", ErrReservedName, t.Name, strings.Join(types.ReservedTaskNames, ", "))
	}
	switch t.Mode {
	case Sync:
		if t.Run == nil {
			return fmt.Errorf("%w: task %q is sync but has no Run", ErrRunMissing, t.Name)
		}
	case Async:
		if t.RunAsync == nil {
			return fmt.Errorf("%w: task %q is async but has no RunAsync", ErrRunMissing, t.Name)
		}
	default:
		return fmt.Errorf("%w: task %q has unknown mode %d", ErrRunMissing, t.Name, t.Mode)
	}
	return nil
}
