// Package backend drives the external build systems that turn an app's
// Lingua Franca sources into artifacts.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

// Backend is the per-app capability set of a build system. A batch
// orchestrator sequences these calls across apps; a backend never decides
// keep-going policy itself.
type Backend interface {
	Name() types.BuildSystem
	// Check validates the app/option combination without any I/O
	Check(app *types.App, opts types.BuildCommandOptions) error
	// Generate runs code generation only; it must not compile anything
	Generate(ctx context.Context, app *types.App, opts types.BuildCommandOptions) error
	// Compile builds an app whose sources were already generated
	Compile(ctx context.Context, app *types.App, opts types.BuildCommandOptions) error
	// Clean removes the app's output root; an absent root is success
	Clean(ctx context.Context, app *types.App) error
}

// checkCommon rejects combinations no backend can build
func checkCommon(app *types.App, opts types.BuildCommandOptions) error {
	lang := opts.LanguageFor(app)
	if lang == "" {
		return result.Configf("app %s has no target language", app.Name)
	}
	if _, err := types.ParseTargetLanguage(string(lang)); err != nil {
		return result.Configf("app %s: %v", app.Name, err)
	}
	if opts.PlatformFor(app) == types.PlatformZephyr && lang != types.TargetLanguageC {
		return result.Configf("app %s: platform Zephyr requires target C, got %s", app.Name, lang)
	}
	if app.OutputRoot == "" {
		return result.Configf("app %s has no output root", app.Name)
	}
	return nil
}

// removeOutputRoot deletes root recursively. A missing root is not an error.
func removeOutputRoot(root string) error {
	if err := os.RemoveAll(root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", root, err)
	}
	return nil
}
