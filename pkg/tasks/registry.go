package tasks

import (
	"fmt"
	"sort"
	"sync"
)

// SourceBuiltin is the source recorded for built-in tasks.
const SourceBuiltin = "builtin"

// Registry maps task names to tasks. A later registration replaces an earlier one.
type Registry struct {
	mu      sync.RWMutex
	tasks   map[string]*Task
	sources map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tasks:   make(map[string]*Task),
		sources: make(map[string]string),
	}
}

// Register validates the task and stores it under its name.
// source records where it came from (a directory or SourceBuiltin).
func (r *Registry) Register(task *Task, source string) error {
	if task == nil {
		return fmt.Errorf("%w: nil task from %s", ErrRunMissing, source)
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w (from %s)", err, source)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.Name] = task
	r.sources[task.Name] = source
	return nil
}

// Get looks up a task by name
func (r *Registry) Get(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[name]
	return task, ok
}

// Has reports whether a task is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Source returns where the task was loaded from
func (r *Registry) Source(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// Names returns the registered task names sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tasks
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
