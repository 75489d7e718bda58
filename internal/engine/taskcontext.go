package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/poltergeist/phasebuild/pkg/logger"
)

// taskContext is the tasks.Context handed to a single task invocation
type taskContext struct {
	ctx    context.Context
	runner *Runner
	phase  string
	task   string
	log    logger.Logger

	mu         sync.Mutex
	hadMessage bool
	abandoned  bool
	errs       []error
}

func newTaskContext(ctx context.Context, r *Runner, phase, task string) *taskContext {
	return &taskContext{
		ctx:    ctx,
		runner: r,
		phase:  phase,
		task:   task,
		log:    logger.WithContext(ctx, r.logger),
	}
}

func (tc *taskContext) Context() context.Context { return tc.ctx }
func (tc *taskContext) BaseDir() string          { return tc.runner.baseDir }
func (tc *taskContext) Fs() afero.Fs             { return tc.runner.fs }

func (tc *taskContext) Error(message string) { tc.message(logger.MessageError, message) }
func (tc *taskContext) Warn(message string)  { tc.message(logger.MessageWarn, message) }
func (tc *taskContext) Info(message string)  { tc.message(logger.MessageInfo, message) }

func (tc *taskContext) message(level logger.MessageLevel, message string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.abandoned {
		tc.log.Debug("Dropping message of abandoned task",
			logger.WithField("level", string(level)),
			logger.WithField("message", message))
		return
	}

	if !tc.hadMessage {
		tc.runner.console.Blank()
		tc.hadMessage = true
	}
	tc.runner.console.TaskMessage(level, message)

	if level == logger.MessageError {
		tc.errs = append(tc.errs, fmt.Errorf("phase %q task %q: %s", tc.phase, tc.task, message))
		tc.log.Debug("Task reported an error", logger.WithField("message", message))
	}
	if tc.runner.metrics != nil {
		tc.runner.metrics.TaskMessage(tc.task, string(level))
	}
}

// abandon stops reporting once the runner stopped waiting for the task
func (tc *taskContext) abandon() {
	tc.mu.Lock()
	tc.abandoned = true
	tc.mu.Unlock()
}

func (tc *taskContext) reported() []error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]error(nil), tc.errs...)
}
