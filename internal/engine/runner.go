package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/spf13/afero"

	pcontext "github.com/poltergeist/phasebuild/pkg/context"
	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/logger"
	"github.com/poltergeist/phasebuild/pkg/metrics"
	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/types"
)

// DefaultTimeout bounds how long a single task may run
const DefaultTimeout = 30000 * time.Millisecond

// Runner executes the phases of a configuration. Tasks run one at a time.
type Runner struct {
	config    *types.Configuration
	registry  *tasks.Registry
	phases    map[string]*types.Phase
	options   map[string]map[string]map[string]any
	timeout   time.Duration
	console   *logger.ConsoleLogger
	logger    logger.Logger
	baseDir   string
	fs        afero.Fs
	exclusive bool
	observers []Observer
	metrics   *metrics.Collector
}

// Option configures a Runner
type Option func(*Runner)

// WithTimeout sets the per-task timeout. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithConsole sets where build progress is printed
func WithConsole(console *logger.ConsoleLogger) Option {
	return func(r *Runner) { r.console = console }
}

// WithLogger sets the diagnostics logger
func WithLogger(log logger.Logger) Option {
	return func(r *Runner) { r.logger = log }
}

// WithBaseDir sets the directory relative task paths resolve against
func WithBaseDir(dir string) Option {
	return func(r *Runner) { r.baseDir = dir }
}

// WithFs sets the filesystem handed to tasks
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithExclusive runs only the requested phase, ignoring its dependencies
func WithExclusive(exclusive bool) Option {
	return func(r *Runner) { r.exclusive = exclusive }
}

// WithObserver adds an observer of state transitions
func WithObserver(observer Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, observer) }
}

// WithMetrics records timings into collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = collector }
}

// NewRunner creates a runner for a validated configuration and its task registry
func NewRunner(config *types.Configuration, registry *tasks.Registry, opts ...Option) *Runner {
	r := &Runner{
		config:   config,
		registry: registry,
		phases:   make(map[string]*types.Phase, len(config.Phases)),
		options:  make(map[string]map[string]map[string]any, len(config.Phases)),
		timeout:  DefaultTimeout,
		console:  logger.NewConsoleLogger(io.Discard, io.Discard, true),
		logger:   logger.Discard(),
		baseDir:  ".",
		fs:       afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithTarget("runner")

	for _, phase := range config.Phases {
		r.phases[phase.Name] = phase
		r.options[phase.Name] = make(map[string]map[string]any, len(phase.Tasks))
		for _, invocation := range phase.Tasks {
			native, _ := document.ToNative(invocation.Options).(map[string]any)
			r.options[phase.Name][invocation.Name] = native
		}
	}

	return r
}

// Timeout returns the per-task timeout
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// build is the mutable state of one Run call
type build struct {
	ctx        context.Context
	id         string
	target     string
	order      []string
	phaseIndex int
	tasks      []types.TaskInvocation
	taskIndex  int
	started    time.Time
	phaseStart time.Time
	taskStart  time.Time
	taskErr    error
	reported   []error
	err        error
}

func (b *build) phase() string {
	return b.order[b.phaseIndex]
}

func (b *build) task() string {
	return b.tasks[b.taskIndex].Name
}

// Run executes phase and, unless the runner is exclusive, every phase it
// depends on. It blocks until the build ends. A timeout, a panic or a
// cancelled ctx stop the build. Errors reported by tasks do not; they are
// returned together once every phase ran.
func (r *Runner) Run(ctx context.Context, phase string) error {
	if _, ok := r.phases[phase]; !ok {
		return fmt.Errorf("%w: %q", ErrPhaseNotFound, phase)
	}

	ctx = pcontext.EnrichContext(ctx)
	b := &build{
		ctx:     ctx,
		id:      pcontext.GetBuildID(ctx),
		target:  phase,
		started: time.Now(),
	}

	state := BuildStart
	for {
		switch state {
		case BuildStart:
			state = r.buildStart(b)
		case PhaseStart:
			state = r.phaseStart(b)
		case TaskStart:
			state = r.taskStart(b)
		case TaskEnd:
			state = r.taskEnd(b)
		case PhaseEnd:
			state = r.phaseEnd(b)
		case BuildEnd:
			return r.buildEnd(b)
		}
	}
}

func (r *Runner) buildStart(b *build) State {
	if r.exclusive {
		b.order = []string{b.target}
	} else {
		b.order = PhasesOrder(r.config.Phases, b.target)
	}

	r.logger.Debug("Build started",
		logger.WithField("build_id", b.id),
		logger.WithField("phases", b.order))
	r.emit(Event{State: BuildStart, BuildID: b.id, Phase: b.target})

	return PhaseStart
}

func (r *Runner) phaseStart(b *build) State {
	name := b.phase()
	dependency := name != b.target

	if dependency {
		r.console.DependentPhase(name)
	} else {
		r.console.Phase(name)
	}

	b.tasks = TasksOrder(r.phases[name])
	b.taskIndex = 0
	b.phaseStart = time.Now()
	r.emit(Event{State: PhaseStart, BuildID: b.id, Phase: name, Dependency: dependency})

	if len(b.tasks) == 0 {
		return PhaseEnd
	}
	return TaskStart
}

func (r *Runner) taskStart(b *build) State {
	phase, task := b.phase(), b.task()

	r.console.Blank()
	r.console.Task(task)
	r.emit(Event{State: TaskStart, BuildID: b.id, Phase: phase, Task: task})

	if err := b.ctx.Err(); err != nil {
		b.err = fmt.Errorf("build cancelled before phase %q task %q: %w", phase, task, err)
		return BuildEnd
	}

	b.taskStart = time.Now()
	reported, err := r.runTask(b.ctx, phase, b.tasks[b.taskIndex])
	b.reported = append(b.reported, reported...)
	b.taskErr = err
	if len(reported) > 0 && err == nil {
		b.taskErr = fmt.Errorf("%w: phase %q task %q", ErrTaskFailed, phase, task)
	}

	if r.metrics != nil {
		r.metrics.TaskFinished(phase, task, outcome(err, len(reported) > 0), time.Since(b.taskStart))
	}

	if err != nil {
		r.emit(Event{State: TaskEnd, BuildID: b.id, Phase: phase, Task: task,
			Duration: time.Since(b.taskStart), Err: err})
		b.err = err
		return BuildEnd
	}
	return TaskEnd
}

func (r *Runner) taskEnd(b *build) State {
	r.emit(Event{State: TaskEnd, BuildID: b.id, Phase: b.phase(), Task: b.task(),
		Duration: time.Since(b.taskStart), Err: b.taskErr})
	b.taskErr = nil

	b.taskIndex++
	if b.taskIndex < len(b.tasks) {
		return TaskStart
	}
	return PhaseEnd
}

func (r *Runner) phaseEnd(b *build) State {
	name := b.phase()
	duration := time.Since(b.phaseStart)

	if r.metrics != nil {
		r.metrics.PhaseFinished(name, duration)
	}
	r.emit(Event{State: PhaseEnd, BuildID: b.id, Phase: name,
		Dependency: name != b.target, Duration: duration})

	b.phaseIndex++
	if b.phaseIndex < len(b.order) {
		return PhaseStart
	}
	return BuildEnd
}

func (r *Runner) buildEnd(b *build) error {
	err := b.err
	if err == nil && len(b.reported) > 0 {
		summary := fmt.Errorf("%w: %d error(s) reported", ErrTaskFailed, len(b.reported))
		err = errors.Join(append([]error{summary}, b.reported...)...)
	}

	duration := time.Since(b.started)
	if r.metrics != nil {
		r.metrics.BuildFinished(b.target, duration, err)
	}
	r.emit(Event{State: BuildEnd, BuildID: b.id, Phase: b.target, Duration: duration, Err: err})

	log := logger.WithContext(b.ctx, r.logger)
	if err != nil {
		log.Debug("Build finished with errors", logger.WithField("error", err))
	} else {
		log.Debug("Build finished")
	}
	return err
}

// runTask runs one invocation and waits for it to complete, time out, panic
// or be cancelled. Once runTask returns the task is abandoned: a late
// completion is ignored and later messages are dropped.
func (r *Runner) runTask(ctx context.Context, phase string, invocation types.TaskInvocation) ([]error, error) {
	name := invocation.Name
	task, ok := r.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: phase %q task %q", ErrTaskNotRegistered, phase, name)
	}

	taskCtx, cancel := context.WithCancel(pcontext.WithTask(pcontext.WithPhase(ctx, phase), name))
	defer cancel()

	tc := newTaskContext(taskCtx, r, phase, name)
	options := r.taskOptions(phase, name)

	done := make(chan error, 1)
	var once sync.Once
	finish := func(err error) {
		once.Do(func() { done <- err })
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				finish(fmt.Errorf("%w: phase %q task %q: %v", ErrTaskPanicked, phase, name, rec))
			}
		}()

		switch task.Mode {
		case tasks.Async:
			task.RunAsync(tc, options, func() { finish(nil) })
		default:
			task.Run(tc, options)
			finish(nil)
		}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		tc.abandon()
		return tc.reported(), err
	case <-timer.C:
		tc.abandon()
		return tc.reported(), fmt.Errorf("%w: phase %q task %q", ErrTaskTimeout, phase, name)
	case <-ctx.Done():
		tc.abandon()
		return tc.reported(), fmt.Errorf("phase %q task %q: %w", phase, name, ctx.Err())
	}
}

// taskOptions returns a private copy of the invocation options
func (r *Runner) taskOptions(phase, task string) tasks.Options {
	native := r.options[phase][task]
	if native == nil {
		return tasks.Options{}
	}
	return tasks.Options(deepcopy.Copy(native).(map[string]any))
}

func (r *Runner) emit(event Event) {
	for _, observer := range r.observers {
		observer(event)
	}
}

func outcome(err error, reported bool) string {
	switch {
	case errors.Is(err, ErrTaskTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, ErrTaskPanicked):
		return metrics.OutcomePanic
	case err != nil || reported:
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}
