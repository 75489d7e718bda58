package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/poltergeist/phasebuild/internal/engine"
	"github.com/poltergeist/phasebuild/pkg/config"
	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/logger"
	"github.com/poltergeist/phasebuild/pkg/metrics"
	"github.com/poltergeist/phasebuild/pkg/notifier"
	"github.com/poltergeist/phasebuild/pkg/process"
	"github.com/poltergeist/phasebuild/pkg/properties"
	"github.com/poltergeist/phasebuild/pkg/tasks"
	"github.com/poltergeist/phasebuild/pkg/tasks/builtin"
	"github.com/poltergeist/phasebuild/pkg/validation"
)

// ErrNoPhase is returned when no phase is given and the configuration has no default
var ErrNoPhase = errors.New("no phase to run")

func (c *CLI) newLoader() *config.Loader {
	return config.NewLoader(
		config.WithFs(c.fs),
		config.WithResolver(properties.NewResolver(c.conds)),
		config.WithLogger(c.logger))
}

func (c *CLI) load() (*config.Loader, *config.Loaded, error) {
	loader := c.newLoader()
	loaded, err := loader.Load(c.settings.ConfigFileName, c.settings.ConfigFileDir)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Debug("Configuration loaded",
		logger.WithField("path", loaded.Path),
		logger.WithField("files", len(loaded.Files)))
	return loader, loaded, nil
}

// resolveTasks loads the task registry for loaded and validates every invocation against it
func (c *CLI) resolveTasks(ctx context.Context, loaded *config.Loaded) (*tasks.Registry, error) {
	registry, err := tasks.NewResolver(c.fs, builtin.Tasks(), c.logger).Resolve(ctx, loaded.Config.ExternalTasks)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateTasksExistence(loaded.Config.Phases, registry); err != nil {
		return nil, err
	}

	result := validation.ValidateTasksOptions(loaded.Config.Phases, registry)
	for _, warning := range result.Warnings() {
		c.console.Warn(warning.Error())
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return registry, nil
}

// prepare builds the runner for a loaded configuration. Observers are shared by every build.
func (c *CLI) prepare(observers []engine.Observer, collector *metrics.Collector) engine.Prepare {
	return func(ctx context.Context, loaded *config.Loaded) (*engine.Runner, error) {
		registry, err := c.resolveTasks(ctx, loaded)
		if err != nil {
			return nil, err
		}

		opts := []engine.Option{
			engine.WithTimeout(c.settings.TaskTimeout()),
			engine.WithConsole(c.console),
			engine.WithLogger(c.logger),
			engine.WithBaseDir(loaded.BaseDir),
			engine.WithFs(c.fs),
			engine.WithExclusive(c.settings.Exclusive),
		}
		if collector != nil {
			opts = append(opts, engine.WithMetrics(collector))
		}
		for _, observer := range observers {
			opts = append(opts, engine.WithObserver(observer))
		}
		return engine.NewRunner(loaded.Config, registry, opts...), nil
	}
}

// observers wires the optional notifier and metrics file to build ends
func (c *CLI) observers(collector *metrics.Collector) []engine.Observer {
	var observers []engine.Observer

	if c.settings.Notify {
		n := notifier.New(notifier.Config{Enabled: true, FailureSound: true}, c.logger)
		observers = append(observers, func(e engine.Event) {
			if e.State != engine.BuildEnd {
				return
			}
			if e.Err != nil {
				n.NotifyBuildFailure(e.Phase, e.Err)
			} else {
				n.NotifyBuildSuccess(e.Phase, e.Duration)
			}
		})
	}

	if collector != nil && c.settings.MetricsFile != "" {
		observers = append(observers, func(e engine.Event) {
			if e.State != engine.BuildEnd {
				return
			}
			if err := collector.WriteToTextfile(c.settings.MetricsFile); err != nil {
				c.logger.Warn("Cannot write metrics", logger.WithField("error", err))
			}
		})
	}

	return observers
}

func (c *CLI) collector() *metrics.Collector {
	if c.settings.MetricsFile == "" {
		return nil
	}
	return metrics.NewCollector()
}

func (c *CLI) runBuild(cmd *cobra.Command, args []string) error {
	if flagSet(cmd, "list-conditions") {
		c.listConditions()
		return nil
	}

	_, loaded, err := c.load()
	if err != nil {
		return err
	}

	switch {
	case flagSet(cmd, "show-configuration"):
		return c.showConfiguration(loaded)
	case flagSet(cmd, "list-phases"):
		c.listPhases(loaded)
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if flagSet(cmd, "list-tasks") {
		registry, err := tasks.NewResolver(c.fs, builtin.Tasks(), c.logger).Resolve(ctx, loaded.Config.ExternalTasks)
		if err != nil {
			return err
		}
		c.listTasks(registry)
		return nil
	}

	phase, err := selectPhase(args, loaded)
	if err != nil {
		return err
	}

	pm := process.NewManager(c.logger)
	ctx = pm.Start(ctx)
	defer pm.Stop()

	collector := c.collector()
	runner, err := c.prepare(c.observers(collector), collector)(ctx, loaded)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := runner.Run(ctx, phase); err != nil {
		return err
	}
	c.console.Println("")
	c.console.Success(fmt.Sprintf("Phase %q finished in %s", phase, time.Since(start).Round(time.Millisecond)))
	return nil
}

func selectPhase(args []string, loaded *config.Loaded) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if loaded.Config.DefaultPhase == "" {
		return "", fmt.Errorf("%w: pass a phase or set defaultPhase in %s", ErrNoPhase, loaded.Path)
	}
	return loaded.Config.DefaultPhase, nil
}

func flagSet(cmd *cobra.Command, name string) bool {
	value, _ := cmd.Flags().GetBool(name)
	return value
}

func (c *CLI) showConfiguration(loaded *config.Loaded) error {
	data, err := document.Marshal(loaded.Raw)
	if err != nil {
		return err
	}
	if !c.settings.NoColor && isTerminal(c.output) {
		data = pretty.Color(data, nil)
	}
	c.console.Println(strings.TrimRight(string(data), "\n"))
	return nil
}

func (c *CLI) listPhases(loaded *config.Loaded) {
	for _, phase := range loaded.Config.Phases {
		line := phase.Name
		if phase.Name == loaded.Config.DefaultPhase {
			line += " (default)"
		}
		if len(phase.Depends) > 0 {
			line += " <- " + strings.Join(phase.Depends, ", ")
		}
		c.console.Println(line)
	}
}

func (c *CLI) listTasks(registry *tasks.Registry) {
	for _, name := range registry.Names() {
		task, _ := registry.Get(name)
		line := fmt.Sprintf("%s [%s, %s]", name, registry.Source(name), task.Mode)
		if task.Description != "" {
			line += " " + task.Description
		}
		c.console.Println(line)
	}
}

func (c *CLI) listConditions() {
	available := c.conds.Available()
	names := make([]string, 0, len(available))
	for name := range available {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.console.Println(fmt.Sprintf("?%s=%s", name, strings.Join(available[name], "|")))
	}
}
