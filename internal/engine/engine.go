// Package engine drives a build: it orders the phases of a loaded configuration,
// runs their tasks one at a time and reports progress.
//
// The implementation is split across:
//   - runner.go: the phase/task state machine
//   - order.go: phase linearization
//   - taskcontext.go: the context handed to every task
//   - events.go: transition events and observers
//   - watch.go: re-running a phase whenever the configuration chain changes
//   - safegroup.go: panic-safe errgroup
package engine

import "errors"

var (
	// ErrPhaseNotFound is returned before the build starts when the phase does not exist
	ErrPhaseNotFound = errors.New("provided phase does not exist in list of phases")
	// ErrTaskNotRegistered is returned when a phase invokes a task missing from the registry
	ErrTaskNotRegistered = errors.New("task is not registered")
	// ErrTaskTimeout stops the build when a task does not complete in time
	ErrTaskTimeout = errors.New("task timeout reached")
	// ErrTaskFailed collects the errors tasks reported while the build kept going
	ErrTaskFailed = errors.New("task reported an error")
	// ErrTaskPanicked stops the build when a task panics
	ErrTaskPanicked = errors.New("task panicked")
	// ErrGoroutinePanicked is returned by SafeGroup.Wait for a recovered panic
	ErrGoroutinePanicked = errors.New("goroutine panicked")
)
