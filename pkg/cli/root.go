// Package cli provides the phasebuild command line
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/poltergeist/phasebuild/pkg/conditions"
	"github.com/poltergeist/phasebuild/pkg/logger"
)

// CLI holds the command tree and everything commands share. It has no global state.
type CLI struct {
	version  string
	rootCmd  *cobra.Command
	viper    *viper.Viper
	settings Settings
	output   io.Writer
	errorOut io.Writer
	fs       afero.Fs
	conds    *conditions.Registry
	logger   logger.Logger
	console  *logger.ConsoleLogger
}

// NewCLI creates a CLI writing to stdout and stderr
func NewCLI(version string) *CLI {
	return NewCLIWithOutput(version, os.Stdout, os.Stderr)
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(version string, output, errorOut io.Writer) *CLI {
	c := &CLI{
		version:  version,
		viper:    newViper(),
		output:   output,
		errorOut: errorOut,
		fs:       afero.NewOsFs(),
		conds:    conditions.Default(),
		logger:   logger.Discard(),
	}
	c.console = logger.NewConsoleLogger(output, errorOut, true)
	c.setupCommands()
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support. Errors are printed
// before they are returned.
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	err := c.rootCmd.ExecuteContext(ctx)
	if err != nil {
		c.console.Errors(err)
	}
	return err
}

// Settings returns the settings resolved by the last execution
func (c *CLI) Settings() Settings {
	return c.settings
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "phasebuild [phase]",
		Short: "Run the phases of a layered build configuration",
		Long: `phasebuild loads build.json (and every parent it inherits from), resolves its
properties, validates it against the available tasks and runs the requested
phase after every phase it depends on. Without a phase the defaultPhase runs.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initialize,
		RunE:              c.runBuild,
	}

	c.rootCmd.Version = c.version
	c.rootCmd.SetVersionTemplate("phasebuild v{{.Version}}\n")
	c.rootCmd.SetOut(c.output)
	c.rootCmd.SetErr(c.errorOut)

	c.setupFlags()

	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringP(flagConfigFileName, "f", "", "configuration file name (default: build.json)")
	flags.StringP(flagConfigFileDir, "d", "", "directory the configuration file is looked up from (default: .)")
	flags.IntP(flagTimeout, "t", 0, "task timeout in milliseconds (default: 30000)")
	flags.BoolP(flagExclusive, "e", false, "run only the given phase, without the phases it depends on")
	flags.Bool(flagNoColor, false, "disable colored output")
	flags.StringP(flagVerbosity, "v", "", "log level (debug, info, warn, error)")
	flags.String(flagLogFile, "", "also write diagnostics to this file")
	flags.Bool(flagNotify, false, "show a desktop notification when the build ends")
	flags.String(flagMetricsFile, "", "write Prometheus metrics to this file when the build ends")

	local := c.rootCmd.Flags()
	local.Bool("list-tasks", false, "list available tasks and exit")
	local.Bool("list-phases", false, "list configured phases and exit")
	local.Bool("list-conditions", false, "list available property conditions and exit")
	local.Bool("show-configuration", false, "print the merged configuration and exit")
}

func (c *CLI) initialize(cmd *cobra.Command, args []string) error {
	if err := c.viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	settings, err := loadSettings(c.viper)
	if err != nil {
		return err
	}
	c.settings = settings

	noColor := settings.NoColor || !isTerminal(c.output)
	c.console = logger.NewConsoleLogger(c.output, c.errorOut, noColor)
	if noColor {
		color.NoColor = true
	}

	log, err := logger.NewLogger(c.errorOut, settings.LogFile, settings.Verbosity, noColor)
	if err != nil {
		return err
	}
	c.logger = log
	c.logger.Debug("Settings resolved",
		logger.WithField("config", settings.ConfigFileName),
		logger.WithField("dir", settings.ConfigFileDir),
		logger.WithField("timeout_ms", settings.Timeout))

	return nil
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "phasebuild v%s\n", c.version)
		},
	}
}

// isTerminal reports whether w is a terminal; anything that is not an *os.File is not
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
