package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lf-lang/lingo/internal/manifest"
	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

func (c *CLI) newInitCmd() *cobra.Command {
	var (
		language string
		platform string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new Lingua Franca project",
		Long: `Create Lingo.toml and a hello world main reactor in the project root.
The language defaults to C on Zephyr and Cpp everywhere else.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(language, platform)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "target language (C, Cpp, Rust, TypeScript, Python)")
	cmd.Flags().StringVar(&platform, "platform", string(types.PlatformNative), "platform (Native, Zephyr)")

	return cmd
}

func (c *CLI) runInit(language, platform string) error {
	p, err := types.ParsePlatform(platform)
	if err != nil {
		return result.Configf("%v", err)
	}

	var lang types.TargetLanguage
	if language != "" {
		if lang, err = types.ParseTargetLanguage(language); err != nil {
			return result.Configf("%v", err)
		}
	}

	m, err := manifest.Init(c.config.ProjectRoot, lang, p)
	if err != nil {
		return err
	}

	app := m.Apps[0]
	c.printSuccess(fmt.Sprintf("Created %s for %s (%s, %s)", manifest.FileName, m.Package.Name, app.Target, app.Platform))
	c.printInfo(fmt.Sprintf("Edit %s, then run 'lingo build'", manifest.DefaultMain))
	return nil
}
