package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lf-lang/lingo/internal/toolchain"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/types"
)

// LFC invokes lfc directly. C and C++ are compiled by lfc itself; Rust and
// TypeScript get a second step through cargo or npm; Python needs none.
type LFC struct {
	props  toolchain.Properties
	runner process.Runner
	logger logger.Logger
}

var _ Backend = (*LFC)(nil)

// lfcInvocation is the document passed to `lfc --json`
type lfcInvocation struct {
	Src        string         `json:"src"`
	Out        string         `json:"out"`
	Properties map[string]any `json:"properties"`
}

// Name returns the build system name
func (b *LFC) Name() types.BuildSystem {
	return types.BuildSystemLFC
}

// Check validates the app/option combination
func (b *LFC) Check(app *types.App, opts types.BuildCommandOptions) error {
	return checkCommon(app, opts)
}

// Generate writes the app's target sources into its src-gen directory
func (b *LFC) Generate(ctx context.Context, app *types.App, opts types.BuildCommandOptions) error {
	b.logger.WithApp(app.Name).Info("Generating code", logger.WithField("main", app.MainReactor))
	return runLFC(ctx, b.runner, b.props, app, opts, false)
}

// Compile runs the target language's build step over generated sources
func (b *LFC) Compile(ctx context.Context, app *types.App, opts types.BuildCommandOptions) error {
	log := b.logger.WithApp(app.Name)
	lang := opts.LanguageFor(app)
	log.Info(fmt.Sprintf("Compiling %s target", lang), logger.WithField("profile", opts.Profile))

	switch lang {
	case types.TargetLanguageC, types.TargetLanguageCpp:
		return runLFC(ctx, b.runner, b.props, app, opts, true)

	case types.TargetLanguageRust:
		args := []string{"build"}
		if opts.Profile == types.BuildProfileRelease {
			args = append(args, "--release")
		}
		_, err := b.runner.Run(ctx, process.Command{
			Name: "cargo",
			Args: args,
			Dir:  generatedPackageDir(app),
			App:  app.Name,
		})
		if err != nil {
			return fmt.Errorf("cargo build: %w", err)
		}
		return nil

	case types.TargetLanguageTypeScript:
		dir := generatedPackageDir(app)
		for _, args := range [][]string{{"install"}, {"run", "build"}} {
			cmd := process.Command{Name: "npm", Args: args, Dir: dir, App: app.Name}
			if _, err := b.runner.Run(ctx, cmd); err != nil {
				return fmt.Errorf("npm %s: %w", strings.Join(args, " "), err)
			}
		}
		return nil

	case types.TargetLanguagePython:
		log.Debug("Python target needs no compile step")
		return nil
	}

	return fmt.Errorf("no compile step for target language %s", lang)
}

// Clean removes the app's output root
func (b *LFC) Clean(ctx context.Context, app *types.App) error {
	b.logger.WithApp(app.Name).Info("Cleaning", logger.WithField("output", app.OutputRoot))
	return removeOutputRoot(app.OutputRoot)
}

// runLFC invokes `lfc --json` for one app. With compile false lfc only
// generates code.
func runLFC(
	ctx context.Context,
	runner process.Runner,
	props toolchain.Properties,
	app *types.App,
	opts types.BuildCommandOptions,
	compile bool,
) error {
	doc, err := lfcArguments(app, opts, compile)
	if err != nil {
		return err
	}

	_, err = runner.Run(ctx, process.Command{
		Name: props.Path,
		Args: []string{"--json", doc},
		Dir:  app.RootPath,
		App:  app.Name,
		// lfc reports errors on stderr
		FailOnStderr: true,
	})
	if err != nil {
		if compile {
			return fmt.Errorf("lfc compile: %w", err)
		}
		return fmt.Errorf("lfc codegen: %w", err)
	}
	return nil
}

func lfcArguments(app *types.App, opts types.BuildCommandOptions, compile bool) (string, error) {
	properties := map[string]any{
		"build-type": opts.Profile.String(),
		"no-compile": !compile,
		"target":     string(opts.LanguageFor(app)),
	}
	if platform := opts.PlatformFor(app); platform != types.PlatformNative {
		properties["platform"] = string(platform)
	}

	data, err := json.Marshal(lfcInvocation{
		Src:        app.MainReactorPath(),
		Out:        app.OutputRoot,
		Properties: properties,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode lfc arguments: %w", err)
	}
	return string(data), nil
}

// generatedPackageDir is where lfc puts the package of the main reactor,
// e.g. <output>/src-gen/Main for src/Main.lf
func generatedPackageDir(app *types.App) string {
	main := filepath.Base(app.MainReactor)
	return filepath.Join(app.SrcGenDir(), strings.TrimSuffix(main, filepath.Ext(main)))
}
