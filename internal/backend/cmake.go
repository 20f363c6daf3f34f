package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/lf-lang/lingo/internal/toolchain"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

// CMake generates code with lfc and then drives CMake's
// configure, build and install steps in <output>/build.
type CMake struct {
	props     toolchain.Properties
	cmakePath string
	runner    process.Runner
	logger    logger.Logger
}

var _ Backend = (*CMake)(nil)

// Name returns the build system name
func (b *CMake) Name() types.BuildSystem {
	return types.BuildSystemCMake
}

// Check validates the app/option combination. Only the C and C++ runtimes
// ship CMake projects.
func (b *CMake) Check(app *types.App, opts types.BuildCommandOptions) error {
	if err := checkCommon(app, opts); err != nil {
		return err
	}
	switch lang := opts.LanguageFor(app); lang {
	case types.TargetLanguageC, types.TargetLanguageCpp:
		return nil
	default:
		return result.Configf("app %s: cmake backend cannot build %s targets", app.Name, lang)
	}
}

// Generate runs lfc in codegen-only mode
func (b *CMake) Generate(ctx context.Context, app *types.App, opts types.BuildCommandOptions) error {
	b.logger.WithApp(app.Name).Info("Generating code", logger.WithField("main", app.MainReactor))
	return runLFC(ctx, b.runner, b.props, app, opts, false)
}

// Compile configures, builds and installs the app. Each step must succeed
// before the next one runs.
func (b *CMake) Compile(ctx context.Context, app *types.App, opts types.BuildCommandOptions) error {
	log := b.logger.WithApp(app.Name)
	buildDir := app.BuildDir()

	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	steps := []struct {
		name string
		args []string
	}{
		{"configure", ConfigureArgs(app, opts)},
		{"build", []string{"--build", "."}},
		{"install", []string{"--install", "."}},
	}

	for _, step := range steps {
		log.Info(fmt.Sprintf("cmake %s", step.name))
		_, err := b.runner.Run(ctx, process.Command{
			Name: b.cmakePath,
			Args: step.args,
			Dir:  buildDir,
			App:  app.Name,
		})
		if err != nil {
			return fmt.Errorf("cmake %s: %w", step.name, err)
		}
	}
	return nil
}

// Clean removes the app's output root
func (b *CMake) Clean(ctx context.Context, app *types.App) error {
	b.logger.WithApp(app.Name).Info("Cleaning", logger.WithField("output", app.OutputRoot))
	return removeOutputRoot(app.OutputRoot)
}

// ConfigureArgs returns the cmake configure arguments for app
func ConfigureArgs(app *types.App, opts types.BuildCommandOptions) []string {
	return []string{
		"-DCMAKE_BUILD_TYPE=" + opts.Profile.CMakeBuildType(),
		"-DCMAKE_INSTALL_PREFIX=" + app.OutputRoot,
		"-DCMAKE_INSTALL_BINDIR=bin",
		"-DREACTOR_CPP_VALIDATE=ON",
		"-DREACTOR_CPP_TRACE=OFF",
		"-DREACTOR_CPP_LOG_LEVEL=3",
		"-DLF_SRC_PKG_PATH=" + app.RootPath,
		app.SrcGenDir(),
		"-B", app.BuildDir(),
	}
}
