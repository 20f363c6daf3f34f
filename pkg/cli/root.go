// Package cli provides the command-line interface for lingo
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lf-lang/lingo/pkg/config"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/result"
)

// Exit codes returned by the lingo binary
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// CLI wires the cobra command tree to the build engine
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	settings *config.Settings
	logger   logger.Logger
	output   io.Writer
	errorOut io.Writer
	// runner replaces subprocess execution when set
	runner process.Runner
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}

	c := &CLI{
		config:   cfg,
		output:   os.Stdout,
		errorOut: os.Stderr,
		logger:   logger.Nop(),
	}

	c.setupCommands()
	return c
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	c := NewCLI(cfg)
	c.output = output
	c.errorOut = errorOut
	c.rootCmd.SetOut(output)
	c.rootCmd.SetErr(errorOut)
	return c
}

// WithRunner makes every external tool invocation go through runner
func (c *CLI) WithRunner(runner process.Runner) *CLI {
	c.runner = runner
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

// ExitCode maps a command result to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case result.IsConfig(err):
		return ExitConfig
	}
	return ExitFailure
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "lingo",
		Short: "Build tool for Lingua Franca projects",
		Long: `lingo builds, runs and cleans the apps of a Lingua Franca project.

Apps are declared in Lingo.toml. Code generation runs in parallel, then
each app's target code is compiled in the order the apps were selected.`,

		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initializeConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return result.Configf("%v", err)
	})

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("lingo v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newBuildCmd())
	c.rootCmd.AddCommand(c.newRunCmd())
	c.rootCmd.AddCommand(c.newCleanCmd())
	c.rootCmd.AddCommand(c.newUpdateCmd())
	c.rootCmd.AddCommand(c.newStatusCmd())
	c.rootCmd.AddCommand(c.newLogsCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newConfigCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "settings file (default: <root>/.lingo.yaml)")
	flags.StringVar(&c.config.ProjectRoot, "root", ".", "project root directory")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", "", "log level (debug, info, warn, error)")
	flags.BoolVarP(&c.config.Quiet, "quiet", "q", false, "only log errors")
}

func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(c.config.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}
	c.config.ProjectRoot = root

	settings, err := config.Load(root, c.config.ConfigFile)
	if err != nil {
		return err
	}
	c.settings = settings

	level := c.config.logLevel(settings.LogLevel)
	if c.errorOut == os.Stderr {
		c.logger = logger.CreateLogger(settings.LogFile, level)
	} else {
		c.logger = logger.CreateLoggerWithOutput(level, c.errorOut)
	}
	c.logger.Debug("Settings loaded",
		logger.WithField("root", root),
		logger.WithField("config", c.config.ConfigFile))
	return nil
}

// signalContext cancels on SIGINT/SIGTERM. Apps already started run to
// completion; nothing new is started.
func (c *CLI) signalContext(cmd *cobra.Command) (context.Context, func()) {
	mgr := process.NewManager(c.logger)
	ctx := mgr.Start(cmd.Context())
	return ctx, mgr.Stop
}

// Helper methods for user-facing output

func (c *CLI) printSuccess(message string) {
	if c.config.Quiet {
		return
	}
	fmt.Fprintf(c.output, "%s %s\n", color.GreenString("[lingo]"), message)
}

func (c *CLI) printInfo(message string) {
	if c.config.Quiet {
		return
	}
	fmt.Fprintf(c.output, "%s %s\n", color.CyanString("[lingo]"), message)
}

func (c *CLI) printWarning(message string) {
	if c.config.Quiet {
		return
	}
	fmt.Fprintf(c.output, "%s %s\n", color.YellowString("[lingo]"), message)
}

// PrintError writes a failed command's error the way the binary reports it
func PrintError(w io.Writer, err error) {
	msg := err.Error()
	var appErrs int
	for _, e := range result.Failures(err) {
		var appErr *result.AppError
		if errors.As(e, &appErr) {
			appErrs++
		}
	}
	if appErrs > 1 {
		msg = fmt.Sprintf("%d apps failed:\n%s", appErrs, msg)
	}
	fmt.Fprintf(w, "%s %s\n", color.RedString("[lingo]"), msg)
}
