package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-lang/lingo/internal/backend"
	"github.com/lf-lang/lingo/internal/toolchain"
	"github.com/lf-lang/lingo/pkg/mocks"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

var props = toolchain.Properties{Path: "/opt/lf/bin/lfc"}

func testApp(t *testing.T, name string, lang types.TargetLanguage) *types.App {
	t.Helper()
	root := t.TempDir()
	return &types.App{
		Name:        name,
		RootPath:    root,
		OutputRoot:  filepath.Join(root, "target", name),
		MainReactor: "src/Main.lf",
		Target:      lang,
		Platform:    types.PlatformNative,
	}
}

func newBackend(t *testing.T, system types.BuildSystem, runner process.Runner) backend.Backend {
	t.Helper()
	b, err := backend.New(system, props, backend.Deps{Runner: runner, CMakePath: "cmake"})
	require.NoError(t, err)
	return b
}

func decodeLFCArgs(t *testing.T, cmd process.Command) map[string]any {
	t.Helper()
	require.Len(t, cmd.Args, 2)
	require.Equal(t, "--json", cmd.Args[0])
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(cmd.Args[1]), &doc))
	return doc
}

func TestNew(t *testing.T) {
	b, err := backend.New(types.BuildSystemLFC, props, backend.Deps{})
	require.NoError(t, err)
	assert.Equal(t, types.BuildSystemLFC, b.Name())

	b, err = backend.New(types.BuildSystemCMake, props, backend.Deps{})
	require.NoError(t, err)
	assert.Equal(t, types.BuildSystemCMake, b.Name())
}

func TestNew_ConfigurationErrors(t *testing.T) {
	_, err := backend.New("bazel", props, backend.Deps{})
	require.Error(t, err)
	assert.True(t, result.IsConfig(err))

	_, err = backend.New(types.BuildSystemLFC, toolchain.Properties{}, backend.Deps{})
	require.Error(t, err)
	assert.True(t, result.IsConfig(err))
}

func TestFromTarget(t *testing.T) {
	_, err := backend.FromTarget(types.BuildSystemCMake, testApp(t, "a", types.TargetLanguageCpp), props, backend.Deps{})
	assert.NoError(t, err)

	_, err = backend.FromTarget(types.BuildSystemCMake, testApp(t, "a", types.TargetLanguageRust), props, backend.Deps{})
	require.Error(t, err)
	assert.True(t, result.IsConfig(err))

	zephyrCpp := testApp(t, "a", types.TargetLanguageCpp)
	zephyrCpp.Platform = types.PlatformZephyr
	_, err = backend.FromTarget(types.BuildSystemLFC, zephyrCpp, props, backend.Deps{})
	require.Error(t, err)
	assert.True(t, result.IsConfig(err))
}

func TestResolveSystem(t *testing.T) {
	system, err := backend.ResolveSystem("", "")
	require.NoError(t, err)
	assert.Equal(t, types.BuildSystemLFC, system)

	system, err = backend.ResolveSystem("CMake", "lfc")
	require.NoError(t, err)
	assert.Equal(t, types.BuildSystemCMake, system)

	system, err = backend.ResolveSystem("", "cmake")
	require.NoError(t, err)
	assert.Equal(t, types.BuildSystemCMake, system)

	_, err = backend.ResolveSystem("make")
	require.Error(t, err)
	assert.True(t, result.IsConfig(err))
}

func TestLFC_GenerateIsCodegenOnly(t *testing.T) {
	runner := mocks.NewMockRunner()
	b := newBackend(t, types.BuildSystemLFC, runner)
	app := testApp(t, "blink", types.TargetLanguageCpp)

	err := b.Generate(context.Background(), app, types.BuildCommandOptions{Profile: types.BuildProfileRelease})
	require.NoError(t, err)

	cmds := runner.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, props.Path, cmds[0].Name)
	assert.Equal(t, "blink", cmds[0].App)
	assert.True(t, cmds[0].FailOnStderr)

	doc := decodeLFCArgs(t, cmds[0])
	assert.Equal(t, filepath.Join(app.RootPath, "src/Main.lf"), doc["src"])
	assert.Equal(t, app.OutputRoot, doc["out"])
	properties := doc["properties"].(map[string]any)
	assert.Equal(t, true, properties["no-compile"])
	assert.Equal(t, "Release", properties["build-type"])
	assert.Equal(t, "Cpp", properties["target"])
	assert.NotContains(t, properties, "platform")
}

func TestLFC_GenerateZephyr(t *testing.T) {
	runner := mocks.NewMockRunner()
	b := newBackend(t, types.BuildSystemLFC, runner)
	app := testApp(t, "sensor", types.TargetLanguageC)

	require.NoError(t, b.Generate(context.Background(), app, types.BuildCommandOptions{Platform: types.PlatformZephyr}))

	doc := decodeLFCArgs(t, runner.Commands()[0])
	properties := doc["properties"].(map[string]any)
	assert.Equal(t, "Zephyr", properties["platform"])
	assert.Equal(t, "Debug", properties["build-type"])
}

func TestLFC_CompileByLanguage(t *testing.T) {
	tests := []struct {
		lang     types.TargetLanguage
		profile  types.BuildProfile
		expected []string
	}{
		{types.TargetLanguageRust, types.BuildProfileRelease, []string{"cargo build --release"}},
		{types.TargetLanguageRust, types.BuildProfileDebug, []string{"cargo build"}},
		{types.TargetLanguageTypeScript, types.BuildProfileDebug, []string{"npm install", "npm run build"}},
		{types.TargetLanguagePython, types.BuildProfileDebug, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.lang)+"/"+tt.profile.String(), func(t *testing.T) {
			runner := mocks.NewMockRunner()
			b := newBackend(t, types.BuildSystemLFC, runner)
			app := testApp(t, "app", tt.lang)

			require.NoError(t, b.Compile(context.Background(), app, types.BuildCommandOptions{Profile: tt.profile}))

			lines := runner.CommandLines()
			if tt.expected == nil {
				assert.Empty(t, lines)
				return
			}
			assert.Equal(t, tt.expected, lines)
			for _, cmd := range runner.Commands() {
				assert.Equal(t, filepath.Join(app.SrcGenDir(), "Main"), cmd.Dir)
			}
		})
	}
}

func TestLFC_CompileCppReinvokesLFC(t *testing.T) {
	runner := mocks.NewMockRunner()
	b := newBackend(t, types.BuildSystemLFC, runner)
	app := testApp(t, "blink", types.TargetLanguageCpp)

	require.NoError(t, b.Compile(context.Background(), app, types.BuildCommandOptions{}))

	cmds := runner.Commands()
	require.Len(t, cmds, 1)
	properties := decodeLFCArgs(t, cmds[0])["properties"].(map[string]any)
	assert.Equal(t, false, properties["no-compile"])
}

func TestLFC_LanguageOverride(t *testing.T) {
	runner := mocks.NewMockRunner()
	b := newBackend(t, types.BuildSystemLFC, runner)
	app := testApp(t, "app", types.TargetLanguageCpp)

	opts := types.BuildCommandOptions{Language: types.TargetLanguageRust}

	require.NoError(t, b.Generate(context.Background(), app, opts))
	require.NoError(t, b.Compile(context.Background(), app, opts))

	cmds := runner.Commands()
	require.Len(t, cmds, 2)
	properties := decodeLFCArgs(t, cmds[0])["properties"].(map[string]any)
	assert.Equal(t, "Rust", properties["target"])
	assert.Equal(t, true, properties["no-compile"])
	assert.Equal(t, "cargo build", cmds[1].String())
}

func TestLFC_FailureKeepsDiagnostics(t *testing.T) {
	runner := mocks.NewMockRunner()
	runner.Handler = func(cmd process.Command) ([]byte, error) {
		out := []byte("Main.lf:3: error: unknown reactor Foo")
		return out, &process.ExitError{Command: cmd.String(), ExitCode: 1, Output: out}
	}
	b := newBackend(t, types.BuildSystemLFC, runner)

	err := b.Generate(context.Background(), testApp(t, "x", types.TargetLanguageC), types.BuildCommandOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reactor Foo")

	var exitErr *process.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestCMake_ConfigureFlags(t *testing.T) {
	tests := []struct {
		profile   types.BuildProfile
		buildType string
	}{
		{types.BuildProfileRelease, "-DCMAKE_BUILD_TYPE=RELEASE"},
		{types.BuildProfileDebug, "-DCMAKE_BUILD_TYPE=DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.profile.String(), func(t *testing.T) {
			runner := mocks.NewMockRunner()
			b := newBackend(t, types.BuildSystemCMake, runner)
			app := testApp(t, "blink", types.TargetLanguageCpp)

			require.NoError(t, b.Compile(context.Background(), app, types.BuildCommandOptions{Profile: tt.profile}))

			cmds := runner.Commands()
			require.Len(t, cmds, 3)

			configure := cmds[0]
			assert.Equal(t, "cmake", configure.Name)
			assert.Equal(t, app.BuildDir(), configure.Dir)
			assert.Contains(t, configure.Args, tt.buildType)
			assert.Contains(t, configure.Args, "-DCMAKE_INSTALL_PREFIX="+app.OutputRoot)
			assert.Contains(t, configure.Args, "-DCMAKE_INSTALL_BINDIR=bin")
			assert.Contains(t, configure.Args, "-DLF_SRC_PKG_PATH="+app.RootPath)
			assert.Contains(t, configure.Args, app.SrcGenDir())

			assert.Equal(t, []string{"--build", "."}, cmds[1].Args)
			assert.Equal(t, []string{"--install", "."}, cmds[2].Args)
			for _, c := range cmds {
				assert.Equal(t, app.BuildDir(), c.Dir)
			}

			info, err := os.Stat(app.BuildDir())
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		})
	}
}

func TestCMake_StepFailureStopsPipeline(t *testing.T) {
	runner := mocks.NewMockRunner()
	runner.Handler = func(cmd process.Command) ([]byte, error) {
		if len(cmd.Args) > 0 && cmd.Args[0] == "--build" {
			out := []byte("main.cc:1:1: error: expected ';'")
			return out, &process.ExitError{Command: cmd.String(), ExitCode: 2, Output: out}
		}
		return nil, nil
	}
	b := newBackend(t, types.BuildSystemCMake, runner)
	app := testApp(t, "blink", types.TargetLanguageCpp)

	err := b.Compile(context.Background(), app, types.BuildCommandOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cmake build")
	assert.Contains(t, err.Error(), "expected ';'")

	lines := runner.CommandLines()
	require.Len(t, lines, 2)
	assert.False(t, strings.Contains(lines[1], "--install"))
}

func TestCMake_ReusesBuildDir(t *testing.T) {
	runner := mocks.NewMockRunner()
	b := newBackend(t, types.BuildSystemCMake, runner)
	app := testApp(t, "blink", types.TargetLanguageCpp)

	require.NoError(t, os.MkdirAll(app.BuildDir(), 0755))
	marker := filepath.Join(app.BuildDir(), "CMakeCache.txt")
	require.NoError(t, os.WriteFile(marker, []byte("cache"), 0644))

	require.NoError(t, b.Compile(context.Background(), app, types.BuildCommandOptions{}))
	_, err := os.Stat(marker)
	assert.NoError(t, err)
}

func TestCMake_GenerateDoesNotCreateBuildDir(t *testing.T) {
	runner := mocks.NewMockRunner()
	b := newBackend(t, types.BuildSystemCMake, runner)
	app := testApp(t, "blink", types.TargetLanguageC)

	require.NoError(t, b.Generate(context.Background(), app, types.BuildCommandOptions{}))

	require.Len(t, runner.Commands(), 1)
	assert.Equal(t, props.Path, runner.Commands()[0].Name)
	_, err := os.Stat(app.BuildDir())
	assert.True(t, os.IsNotExist(err))
}

func TestClean_Idempotent(t *testing.T) {
	for _, system := range []types.BuildSystem{types.BuildSystemLFC, types.BuildSystemCMake} {
		t.Run(string(system), func(t *testing.T) {
			b := newBackend(t, system, mocks.NewMockRunner())
			app := testApp(t, "blink", types.TargetLanguageCpp)

			require.NoError(t, os.MkdirAll(filepath.Join(app.OutputRoot, "bin"), 0755))
			require.NoError(t, b.Clean(context.Background(), app))
			_, err := os.Stat(app.OutputRoot)
			assert.True(t, os.IsNotExist(err))

			assert.NoError(t, b.Clean(context.Background(), app))
		})
	}
}
