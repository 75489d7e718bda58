package engine_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poltergeist/phasebuild/internal/engine"
	pcontext "github.com/poltergeist/phasebuild/pkg/context"
	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/logger"
	"github.com/poltergeist/phasebuild/pkg/metrics"
	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/types"
)

func options(pairs ...any) *document.Object {
	obj := document.NewObject()
	for i := 0; i < len(pairs); i += 2 {
		obj.Set(pairs[i].(string), pairs[i+1])
	}
	return obj
}

func phase(name string, depends []string, names ...string) *types.Phase {
	p := &types.Phase{Name: name, Depends: depends}
	for _, n := range names {
		p.Tasks = append(p.Tasks, types.TaskInvocation{Name: n, Options: options("target", n)})
	}
	return p
}

// journal records the order in which tasks ran
type journal struct {
	mu    sync.Mutex
	lines []string
}

func (j *journal) add(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lines = append(j.lines, line)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.lines...)
}

func syncTask(name string, j *journal) *tasks.Task {
	return &tasks.Task{
		Name: name,
		Mode: tasks.Sync,
		Run: func(tc tasks.Context, opts tasks.Options) {
			j.add(name + ":" + opts.String("target"))
		},
	}
}

func registry(t *testing.T, list ...*tasks.Task) *tasks.Registry {
	t.Helper()
	r := tasks.NewRegistry()
	for _, task := range list {
		require.NoError(t, r.Register(task, tasks.SourceBuiltin))
	}
	return r
}

func TestRunUnknownPhase(t *testing.T) {
	var events []engine.Event
	cfg := &types.Configuration{Phases: []*types.Phase{phase("clean", nil, "delete")}}
	r := engine.NewRunner(cfg, registry(t), engine.WithObserver(func(e engine.Event) { events = append(events, e) }))

	err := r.Run(context.Background(), "none")
	require.ErrorIs(t, err, engine.ErrPhaseNotFound)
	assert.Equal(t, `provided phase does not exist in list of phases: "none"`, err.Error())
	assert.Empty(t, events)
}

func TestRunDependenciesFirst(t *testing.T) {
	j := &journal{}
	cfg := &types.Configuration{Phases: []*types.Phase{
		phase("clean", nil, "delete"),
		phase("build", []string{"clean"}, "concat", "copy"),
	}}
	reg := registry(t, syncTask("delete", j), syncTask("concat", j), syncTask("copy", j))

	var states []string
	observe := func(e engine.Event) {
		states = append(states, e.State.String()+" "+e.Phase+" "+e.Task)
	}

	var out bytes.Buffer
	r := engine.NewRunner(cfg, reg,
		engine.WithObserver(observe),
		engine.WithConsole(logger.NewConsoleLogger(&out, &out, true)))

	require.NoError(t, r.Run(context.Background(), "build"))
	assert.Equal(t, []string{"delete:delete", "concat:concat", "copy:copy"}, j.all())
	assert.Equal(t, []string{
		"buildStart build ",
		"phaseStart clean ",
		"taskStart clean delete",
		"taskEnd clean delete",
		"phaseEnd clean ",
		"phaseStart build ",
		"taskStart build concat",
		"taskEnd build concat",
		"taskStart build copy",
		"taskEnd build copy",
		"phaseEnd build ",
		"buildEnd build ",
	}, states)

	console := out.String()
	assert.Contains(t, console, `Running dependant phase "clean"`)
	assert.Contains(t, console, `Running phase "build"`)
	assert.Contains(t, console, `+Running task "concat"`)
	assert.Less(t, strings.Index(console, `"clean"`), strings.Index(console, `Running phase "build"`))
}

func TestRunExclusive(t *testing.T) {
	j := &journal{}
	cfg := &types.Configuration{Phases: []*types.Phase{
		phase("clean", nil, "delete"),
		phase("build", []string{"clean"}, "concat"),
	}}
	reg := registry(t, syncTask("delete", j), syncTask("concat", j))

	r := engine.NewRunner(cfg, reg, engine.WithExclusive(true))
	require.NoError(t, r.Run(context.Background(), "build"))
	assert.Equal(t, []string{"concat:concat"}, j.all())
}

func TestRunDiamondRunsPhasesOnce(t *testing.T) {
	j := &journal{}
	cfg := &types.Configuration{Phases: []*types.Phase{
		phase("base", nil, "a"),
		phase("left", []string{"base"}, "b"),
		phase("right", []string{"base"}, "c"),
		phase("all", []string{"left", "right"}, "d"),
	}}
	reg := registry(t, syncTask("a", j), syncTask("b", j), syncTask("c", j), syncTask("d", j))

	require.NoError(t, engine.NewRunner(cfg, reg).Run(context.Background(), "all"))
	assert.Equal(t, []string{"a:a", "b:b", "c:c", "d:d"}, j.all())
}

func TestRunEmptyPhase(t *testing.T) {
	cfg := &types.Configuration{Phases: []*types.Phase{{Name: "noop"}}}
	var states []engine.State
	r := engine.NewRunner(cfg, registry(t), engine.WithObserver(func(e engine.Event) { states = append(states, e.State) }))

	require.NoError(t, r.Run(context.Background(), "noop"))
	assert.Equal(t, []engine.State{engine.BuildStart, engine.PhaseStart, engine.PhaseEnd, engine.BuildEnd}, states)
}

func TestRunWaitsForAsyncTask(t *testing.T) {
	j := &journal{}
	async := &tasks.Task{
		Name: "slow",
		Mode: tasks.Async,
		RunAsync: func(tc tasks.Context, opts tasks.Options, done func()) {
			go func() {
				time.Sleep(30 * time.Millisecond)
				j.add("slow")
				done()
			}()
		},
	}
	cfg := &types.Configuration{Phases: []*types.Phase{phase("build", nil, "slow", "after")}}
	reg := registry(t, async, syncTask("after", j))

	require.NoError(t, engine.NewRunner(cfg, reg).Run(context.Background(), "build"))
	assert.Equal(t, []string{"slow", "after:after"}, j.all())
}

func TestRunTimeout(t *testing.T) {
	j := &journal{}
	cancelled := make(chan struct{})
	stuck := &tasks.Task{
		Name: "stuck",
		Mode: tasks.Async,
		RunAsync: func(tc tasks.Context, opts tasks.Options, done func()) {
			go func() {
				<-tc.Context().Done()
				close(cancelled)
				tc.Error("too late")
				done()
			}()
		},
	}
	cfg := &types.Configuration{Phases: []*types.Phase{phase("build", nil, "stuck", "after")}}
	reg := registry(t, stuck, syncTask("after", j))

	var out bytes.Buffer
	r := engine.NewRunner(cfg, reg,
		engine.WithTimeout(20*time.Millisecond),
		engine.WithConsole(logger.NewConsoleLogger(&out, &out, true)))

	start := time.Now()
	err := r.Run(context.Background(), "build")
	require.ErrorIs(t, err, engine.ErrTaskTimeout)
	assert.Equal(t, `task timeout reached: phase "build" task "stuck"`, err.Error())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, j.all())

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("task context was not cancelled after the timeout")
	}
	time.Sleep(10 * time.Millisecond)
	assert.NotContains(t, out.String(), "too late")
}

func TestRunDefaultTimeout(t *testing.T) {
	r := engine.NewRunner(&types.Configuration{}, registry(t), engine.WithTimeout(0))
	assert.Equal(t, engine.DefaultTimeout, r.Timeout())
	assert.Equal(t, 30*time.Second, r.Timeout())
}

func TestRunAggregatesTaskErrors(t *testing.T) {
	j := &journal{}
	noisy := &tasks.Task{
		Name: "noisy",
		Mode: tasks.Sync,
		Run: func(tc tasks.Context, opts tasks.Options) {
			tc.Error("Error")
			tc.Warn("Warning")
			tc.Info("Info")
		},
	}
	cfg := &types.Configuration{Phases: []*types.Phase{phase("build", nil, "noisy", "after")}}
	reg := registry(t, noisy, syncTask("after", j))

	var out, errOut bytes.Buffer
	var taskErrs []error
	r := engine.NewRunner(cfg, reg,
		engine.WithConsole(logger.NewConsoleLogger(&out, &errOut, true)),
		engine.WithObserver(func(e engine.Event) {
			if e.State == engine.TaskEnd {
				taskErrs = append(taskErrs, e.Err)
			}
		}))

	err := r.Run(context.Background(), "build")
	require.ErrorIs(t, err, engine.ErrTaskFailed)
	assert.Contains(t, err.Error(), `phase "build" task "noisy": Error`)
	assert.Equal(t, []string{"after:after"}, j.all())

	require.Len(t, taskErrs, 2)
	assert.ErrorIs(t, taskErrs[0], engine.ErrTaskFailed)
	assert.NoError(t, taskErrs[1])

	assert.Contains(t, errOut.String(), "(e) Error")
	assert.Contains(t, out.String(), "(w) Warning")
	assert.Contains(t, out.String(), "(i) Info")
	assert.Contains(t, out.String(), "+Running task \"noisy\"\n\n")
}

func TestRunPanickingTask(t *testing.T) {
	j := &journal{}
	boom := &tasks.Task{
		Name: "boom",
		Mode: tasks.Sync,
		Run:  func(tc tasks.Context, opts tasks.Options) { panic("kaboom") },
	}
	cfg := &types.Configuration{Phases: []*types.Phase{phase("build", nil, "boom", "after")}}

	err := engine.NewRunner(cfg, registry(t, boom, syncTask("after", j))).Run(context.Background(), "build")
	require.ErrorIs(t, err, engine.ErrTaskPanicked)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Empty(t, j.all())
}

func TestRunUnregisteredTask(t *testing.T) {
	cfg := &types.Configuration{Phases: []*types.Phase{phase("build", nil, "missing")}}
	err := engine.NewRunner(cfg, registry(t)).Run(context.Background(), "build")
	assert.ErrorIs(t, err, engine.ErrTaskNotRegistered)
}

func TestRunCancelledContext(t *testing.T) {
	j := &journal{}
	cfg := &types.Configuration{Phases: []*types.Phase{phase("build", nil, "a")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := engine.NewRunner(cfg, registry(t, syncTask("a", j))).Run(ctx, "build")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, j.all())
}

func TestRunHandsTasksPrivateOptions(t *testing.T) {
	var seen []string
	mutating := &tasks.Task{
		Name: "mutate",
		Mode: tasks.Sync,
		Run: func(tc tasks.Context, opts tasks.Options) {
			seen = append(seen, opts.Strings("files")...)
			opts["files"].([]any)[0] = "changed"
		},
	}
	cfg := &types.Configuration{Phases: []*types.Phase{{
		Name:  "build",
		Tasks: []types.TaskInvocation{{Name: "mutate", Options: options("files", []any{"a.js"})}},
	}}}
	r := engine.NewRunner(cfg, registry(t, mutating))

	require.NoError(t, r.Run(context.Background(), "build"))
	require.NoError(t, r.Run(context.Background(), "build"))
	assert.Equal(t, []string{"a.js", "a.js"}, seen)
}

func TestRunTaskContext(t *testing.T) {
	var baseDir, phaseName, taskName string
	var hasDeadline bool
	inspect := &tasks.Task{
		Name: "inspect",
		Mode: tasks.Sync,
		Run: func(tc tasks.Context, opts tasks.Options) {
			baseDir = tc.BaseDir()
			_, hasDeadline = tc.Context().Deadline()
			phaseName = pcontext.GetPhase(tc.Context())
			taskName = pcontext.GetTask(tc.Context())
			assert.NotNil(t, tc.Fs())
		},
	}
	cfg := &types.Configuration{Phases: []*types.Phase{phase("build", nil, "inspect")}}

	require.NoError(t, engine.NewRunner(cfg, registry(t, inspect), engine.WithBaseDir("/project")).Run(context.Background(), "build"))
	assert.Equal(t, "/project", baseDir)
	assert.False(t, hasDeadline)
	assert.Equal(t, "build", phaseName)
	assert.Equal(t, "inspect", taskName)
}

func TestRunEventsCarryBuildID(t *testing.T) {
	var ids []string
	cfg := &types.Configuration{Phases: []*types.Phase{
		phase("clean", nil, "delete"),
		phase("build", []string{"clean"}, "concat"),
	}}
	j := &journal{}
	r := engine.NewRunner(cfg, registry(t, syncTask("delete", j), syncTask("concat", j)),
		engine.WithObserver(func(e engine.Event) { ids = append(ids, e.BuildID) }))

	require.NoError(t, r.Run(context.Background(), "build"))
	require.Len(t, ids, 10)
	assert.NotEmpty(t, ids[0])
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	ids = nil
	require.NoError(t, r.Run(pcontext.WithBuildID(context.Background(), "ci-42"), "build"))
	assert.Equal(t, "ci-42", ids[0])
}

func TestRunDropsMessagesAfterCompletion(t *testing.T) {
	j := &journal{}
	late := make(chan struct{})
	async := &tasks.Task{
		Name: "early",
		Mode: tasks.Async,
		RunAsync: func(tc tasks.Context, opts tasks.Options, done func()) {
			go func() {
				done()
				<-tc.Context().Done()
				tc.Error("after completion")
				close(late)
			}()
		},
	}
	cfg := &types.Configuration{Phases: []*types.Phase{phase("build", nil, "early", "after")}}

	var out bytes.Buffer
	r := engine.NewRunner(cfg, registry(t, async, syncTask("after", j)),
		engine.WithConsole(logger.NewConsoleLogger(&out, &out, true)))

	require.NoError(t, r.Run(context.Background(), "build"))
	select {
	case <-late:
	case <-time.After(5 * time.Second):
		t.Fatal("task never reported after completion")
	}
	assert.NotContains(t, out.String(), "after completion")
	assert.Equal(t, []string{"after:after"}, j.all())
}

func TestRunRecordsMetrics(t *testing.T) {
	j := &journal{}
	failing := &tasks.Task{
		Name: "failing",
		Mode: tasks.Sync,
		Run:  func(tc tasks.Context, opts tasks.Options) { tc.Error("nope") },
	}
	cfg := &types.Configuration{Phases: []*types.Phase{
		phase("clean", nil, "a"),
		phase("build", []string{"clean"}, "failing"),
	}}
	collector := metrics.NewCollector()

	err := engine.NewRunner(cfg, registry(t, syncTask("a", j), failing), engine.WithMetrics(collector)).
		Run(context.Background(), "build")
	require.True(t, errors.Is(err, engine.ErrTaskFailed))

	count, err := testutil.GatherAndCount(collector.Registry(), "phasebuild_tasks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP phasebuild_builds_total Builds run, by requested phase and result
# TYPE phasebuild_builds_total counter
phasebuild_builds_total{phase="build",result="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "phasebuild_builds_total"))
}
