package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

// Config holds the global flags, so a CLI carries no package-level state
type Config struct {
	ConfigFile  string
	ProjectRoot string
	Verbosity   string
	Quiet       bool
	Version     string
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		ProjectRoot: ".",
	}
}

// logLevel resolves the effective log level. Flags win over settings.
func (c *Config) logLevel(fromSettings string) string {
	switch {
	case c.Quiet:
		return "error"
	case c.Verbosity != "":
		return c.Verbosity
	case fromSettings != "":
		return fromSettings
	}
	return "info"
}

// buildFlags are shared by build, run and watch
type buildFlags struct {
	buildSystem string
	language    string
	platform    string
	lfc         string
	apps        []string
	noCompile   bool
	keepGoing   bool
	release     bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.buildSystem, "build-system", "b", "", "build system to use (lfc, cmake)")
	flags.StringVarP(&f.language, "language", "l", "", "override the target language of every app")
	flags.StringVar(&f.platform, "platform", "", "override the platform of every app (Native, Zephyr)")
	flags.StringVar(&f.lfc, "lfc", "", "path to the lfc toolchain (default: lfc on PATH)")
	flags.StringSliceVarP(&f.apps, "apps", "a", nil, "apps to process, in order (default: all)")
	flags.BoolVarP(&f.noCompile, "no-compile", "n", false, "only generate code, do not compile it")
	flags.BoolVarP(&f.keepGoing, "keep-going", "k", false, "keep processing other apps after a failure")
	flags.BoolVarP(&f.release, "release", "r", false, "build with the release profile")
}

// options converts the flags. Unknown names are configuration errors.
func (f *buildFlags) options() (types.BuildCommandOptions, error) {
	opts := types.BuildCommandOptions{
		Profile:           types.ProfileFromRelease(f.release),
		ToolchainPath:     f.lfc,
		CompileTargetCode: !f.noCompile,
		KeepGoing:         f.keepGoing,
	}

	if f.language != "" {
		lang, err := types.ParseTargetLanguage(f.language)
		if err != nil {
			return opts, result.Configf("%v", err)
		}
		opts.Language = lang
	}
	if f.platform != "" {
		platform, err := types.ParsePlatform(f.platform)
		if err != nil {
			return opts, result.Configf("%v", err)
		}
		opts.Platform = platform
	}
	return opts, nil
}

// appNames trims the --apps values
func (f *buildFlags) appNames() []string {
	names := make([]string, 0, len(f.apps))
	for _, name := range f.apps {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
