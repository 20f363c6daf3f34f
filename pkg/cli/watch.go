package cli

import (
	"github.com/spf13/cobra"

	"github.com/lf-lang/lingo/internal/watch"
	"github.com/lf-lang/lingo/pkg/types"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	flags := &buildFlags{}
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the selected apps whenever sources change",
		Long: `Watch the project for changes to .lf files and Lingo.toml. After the
settling delay, the selected apps are built as with 'lingo build'. A failed
build is reported and watching continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return c.runWatch(cmd, flags, types.BuildCommand(opts), initial)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&initial, "initial", true, "build once before waiting for changes")

	return cmd
}

func (c *CLI) runWatch(cmd *cobra.Command, flags *buildFlags, task types.CommandSpec, initial bool) error {
	ctx, stop := c.signalContext(cmd)
	defer stop()

	orch, batch, err := c.prepare(ctx, flags, task)
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		Root:          c.config.ProjectRoot,
		Command:       batch,
		SettlingDelay: c.settings.SettlingDelay,
		InitialBuild:  initial,
	}, orch, c.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	c.printInfo("Watching for changes, press Ctrl+C to stop")
	return w.Run(ctx)
}
