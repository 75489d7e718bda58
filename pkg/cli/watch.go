package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poltergeist/phasebuild/internal/engine"
	"github.com/poltergeist/phasebuild/pkg/process"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [phase]",
		Short: "Run a phase, then run it again whenever the configuration changes",
		Long: `Run a phase once and keep watching every file of the configuration chain
(the configuration file and all of its parents). Any change reloads and
revalidates the configuration and runs the phase again. Without a phase the
current defaultPhase runs. Stop with Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.runWatch,
	}
}

func (c *CLI) runWatch(cmd *cobra.Command, args []string) error {
	loader, loaded, err := c.load()
	if err != nil {
		return err
	}

	phase := ""
	if len(args) > 0 {
		phase = args[0]
	} else if _, err := selectPhase(nil, loaded); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pm := process.NewManager(c.logger)
	ctx = pm.Start(ctx)
	defer pm.Stop()

	collector := c.collector()
	w := engine.NewWatcher(loader, loaded, c.prepare(c.observers(collector), collector), phase,
		engine.WithWatchLogger(c.logger),
		engine.WithWatchConsole(c.console))

	c.console.Info(fmt.Sprintf("Watching %d configuration file(s), press Ctrl+C to stop", len(loaded.Files)))
	return w.Run(ctx)
}
