package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lf-lang/lingo/internal/backend"
	"github.com/lf-lang/lingo/internal/engine"
	"github.com/lf-lang/lingo/internal/manifest"
	"github.com/lf-lang/lingo/internal/state"
	"github.com/lf-lang/lingo/internal/toolchain"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/types"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate and compile the selected apps",
		Long: `Generate code for the selected apps in parallel, then compile the target
code of every app whose code generation succeeded, in selection order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return c.runBatch(cmd, flags, types.BuildCommand(opts))
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *CLI) newRunCmd() *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the selected apps, then run them",
		Long:  `Build the selected apps, then execute each app's binary in selection order.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return c.runBatch(cmd, flags, types.RunCommand(opts))
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *CLI) newCleanCmd() *cobra.Command {
	var (
		apps        []string
		keepGoing   bool
		buildSystem string
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the build outputs of the selected apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			task := types.CleanCommand()
			task.Build.KeepGoing = keepGoing
			flags := &buildFlags{apps: apps, buildSystem: buildSystem}
			return c.runBatch(cmd, flags, task)
		},
	}
	cmd.Flags().StringSliceVarP(&apps, "apps", "a", nil, "apps to clean (default: all)")
	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "keep cleaning other apps after a failure")
	cmd.Flags().StringVarP(&buildSystem, "build-system", "b", "", "build system whose outputs to clean")
	return cmd
}

func (c *CLI) newUpdateCmd() *cobra.Command {
	var lfc string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Resolve the lfc toolchain and check it against Lingo.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(c.config.ProjectRoot)
			if err != nil {
				return err
			}
			props, err := c.resolveToolchain(cmd.Context(), m, lfc)
			if err != nil {
				return err
			}
			c.printSuccess(fmt.Sprintf("Using %s", props))
			return nil
		},
	}
	cmd.Flags().StringVar(&lfc, "lfc", "", "path to the lfc toolchain (default: lfc on PATH)")
	return cmd
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last build state of every app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus()
		},
	}
}

func (c *CLI) newLogsCmd() *cobra.Command {
	var (
		follow bool
		lines  int
	)
	cmd := &cobra.Command{
		Use:   "logs [app]",
		Short: "Show the tool output captured for apps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := ""
			if len(args) > 0 {
				app = args[0]
			}
			if follow {
				if app == "" {
					return fmt.Errorf("--follow needs an app name")
				}
				ctx, stop := c.signalContext(cmd)
				defer stop()
				return c.followLog(ctx, process.LogPath(c.config.ProjectRoot, app), lines)
			}
			return c.runLogs(app, lines)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	return cmd
}

func (c *CLI) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.settings.Dump()
			if err != nil {
				return err
			}
			_, err = c.output.Write(data)
			return err
		},
	}
}

// prepare loads the manifest, selects apps, resolves the toolchain and
// wires an orchestrator for one batch
func (c *CLI) prepare(ctx context.Context, flags *buildFlags, task types.CommandSpec) (*engine.Orchestrator, types.BatchCommand, error) {
	batch := types.BatchCommand{Task: task}

	m, err := manifest.Load(c.config.ProjectRoot)
	if err != nil {
		return nil, batch, err
	}
	apps, err := m.Select(flags.appNames())
	if err != nil {
		return nil, batch, err
	}
	batch.Apps = apps

	system, err := backend.ResolveSystem(flags.buildSystem, c.settings.BuildSystem)
	if err != nil {
		return nil, batch, err
	}

	// clean never invokes the toolchain
	props := toolchain.Properties{Path: toolchain.Binary}
	if task.Kind != types.CommandClean {
		props, err = c.resolveToolchain(ctx, m, flags.lfc)
		if err != nil {
			return nil, batch, err
		}
	}

	factory := engine.NewDependencyFactory(m.Root, c.logger, c.settings)
	orch, err := factory.CreateOrchestrator(system, props, engine.Dependencies{
		Runner: c.runnerFor(m.Root),
		Stdout: c.output,
	})
	if err != nil {
		return nil, batch, err
	}
	return orch, batch, nil
}

func (c *CLI) runBatch(cmd *cobra.Command, flags *buildFlags, task types.CommandSpec) error {
	ctx, stop := c.signalContext(cmd)
	defer stop()

	orch, batch, err := c.prepare(ctx, flags, task)
	if err != nil {
		return err
	}
	if len(batch.Apps) == 0 {
		c.printWarning("No apps selected")
		return nil
	}

	report, err := orch.Execute(ctx, batch)
	if err != nil {
		return err
	}
	c.printSuccess(fmt.Sprintf("%s finished for %s in %s",
		task.Kind, strings.Join(batch.AppNames(), ", "), report.Duration.Round(time.Millisecond)))
	return nil
}

func (c *CLI) resolveToolchain(ctx context.Context, m *manifest.Manifest, explicitPath string) (toolchain.Properties, error) {
	props, err := toolchain.NewResolver(c.runnerFor(m.Root)).Resolve(ctx, explicitPath)
	if err != nil {
		return props, err
	}
	if err := props.CheckConstraint(m.Package.Toolchain); err != nil {
		return props, err
	}
	c.logger.Debug("Resolved toolchain", logger.WithField("lfc", props.String()))
	return props, nil
}

func (c *CLI) runnerFor(root string) process.Runner {
	if c.runner != nil {
		return c.runner
	}
	return process.NewExecRunner(root, c.logger)
}

func (c *CLI) runStatus() error {
	m, err := manifest.Load(c.config.ProjectRoot)
	if err != nil {
		return err
	}
	states, err := state.NewManager(m.Root, c.logger).Discover()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tTARGET\tPLATFORM\tSTATUS\tPHASE\tLAST BUILD\tBUILDS\tFAILURES")
	fmt.Fprintln(w, "---\t------\t--------\t------\t-----\t----------\t------\t--------")

	for _, app := range m.AppList() {
		status := string(types.BuildStatusIdle)
		phase := "-"
		lastBuild := "-"
		builds, failures := 0, 0

		if s, ok := states[app.Name]; ok {
			status = string(s.Status)
			phase = string(s.Phase)
			if !s.LastBuildTime.IsZero() {
				lastBuild = s.LastBuildTime.Format("2006-01-02 15:04:05")
			}
			builds = s.BuildCount
			failures = s.FailureCount
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			app.Name,
			app.Target,
			app.Platform,
			colorStatus(status),
			phase,
			lastBuild,
			builds,
			failures,
		)
	}

	return w.Flush()
}

func colorStatus(status string) string {
	switch types.BuildStatus(status) {
	case types.BuildStatusSucceeded:
		return color.GreenString(status)
	case types.BuildStatusFailed:
		return color.RedString(status)
	case types.BuildStatusBuilding:
		return color.YellowString(status)
	case types.BuildStatusCleaned, types.BuildStatusSkipped:
		return color.CyanString(status)
	}
	return status
}

func (c *CLI) runLogs(app string, lines int) error {
	logDir := process.LogDir(c.config.ProjectRoot)

	var logFiles []string
	if app != "" {
		path := process.LogPath(c.config.ProjectRoot, app)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("no logs found for app: %s", app)
		}
		logFiles = []string{path}
	} else {
		entries, err := os.ReadDir(logDir)
		if os.IsNotExist(err) {
			c.printWarning("No logs found. Run 'lingo build' first.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read log directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".log" {
				logFiles = append(logFiles, filepath.Join(logDir, entry.Name()))
			}
		}
		sort.Strings(logFiles)
		if len(logFiles) == 0 {
			c.printWarning("No log files found")
			return nil
		}
	}

	for _, logFile := range logFiles {
		content, err := readLastNLines(logFile, lines)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filepath.Base(logFile), err)
		}
		fmt.Fprintf(c.output, "=== %s ===\n", strings.TrimSuffix(filepath.Base(logFile), ".log"))
		fmt.Fprint(c.output, content)
	}
	return nil
}

// followLog prints the tail of path, then polls for appended output until
// ctx is done
func (c *CLI) followLog(ctx context.Context, path string, lines int) error {
	content, err := readLastNLines(path, lines)
	if err != nil {
		return err
	}
	fmt.Fprint(c.output, content)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := io.Copy(c.output, f); err != nil {
				return err
			}
		}
	}
}

func readLastNLines(filename string, n int) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var allLines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		allLines = append(allLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	start := 0
	if n > 0 && len(allLines) > n {
		start = len(allLines) - n
	}
	lastLines := allLines[start:]
	if len(lastLines) == 0 {
		return "", nil
	}
	return strings.Join(lastLines, "\n") + "\n", nil
}
