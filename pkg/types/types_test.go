package types_test

import (
	"path/filepath"
	"testing"

	"github.com/lf-lang/lingo/pkg/types"
)

func TestBuildProfile_CMakeBuildType(t *testing.T) {
	tests := []struct {
		profile types.BuildProfile
		want    string
	}{
		{types.BuildProfileDebug, "DEBUG"},
		{types.BuildProfileRelease, "RELEASE"},
	}

	for _, tt := range tests {
		t.Run(tt.profile.String(), func(t *testing.T) {
			if got := tt.profile.CMakeBuildType(); got != tt.want {
				t.Errorf("CMakeBuildType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProfileFromRelease(t *testing.T) {
	if types.ProfileFromRelease(true) != types.BuildProfileRelease {
		t.Error("expected release profile")
	}
	if types.ProfileFromRelease(false) != types.BuildProfileDebug {
		t.Error("expected debug profile")
	}
}

func TestApp_Paths(t *testing.T) {
	app := &types.App{
		Name:        "blink",
		RootPath:    "/work/proj",
		OutputRoot:  "/work/proj/target/blink",
		MainReactor: "src/Blink.lf",
	}

	if got, want := app.SrcGenDir(), filepath.Join("/work/proj/target/blink", "src-gen"); got != want {
		t.Errorf("SrcGenDir() = %s, want %s", got, want)
	}
	if got, want := app.BuildDir(), filepath.Join("/work/proj/target/blink", "build"); got != want {
		t.Errorf("BuildDir() = %s, want %s", got, want)
	}
	if got, want := app.ExecutablePath(), filepath.Join("/work/proj/target/blink", "bin", "blink"); got != want {
		t.Errorf("ExecutablePath() = %s, want %s", got, want)
	}
	if got, want := app.MainReactorPath(), filepath.Join("/work/proj", "src/Blink.lf"); got != want {
		t.Errorf("MainReactorPath() = %s, want %s", got, want)
	}

	app.MainReactor = "/abs/Main.lf"
	if got := app.MainReactorPath(); got != "/abs/Main.lf" {
		t.Errorf("absolute main reactor should be kept, got %s", got)
	}
}

func TestBuildCommandOptions_Overrides(t *testing.T) {
	app := &types.App{Name: "a", Target: types.TargetLanguageRust}

	opts := types.BuildCommandOptions{}
	if got := opts.LanguageFor(app); got != types.TargetLanguageRust {
		t.Errorf("expected app language, got %s", got)
	}
	if got := opts.PlatformFor(app); got != types.PlatformNative {
		t.Errorf("expected native default, got %s", got)
	}

	opts.Language = types.TargetLanguageC
	opts.Platform = types.PlatformZephyr
	if got := opts.LanguageFor(app); got != types.TargetLanguageC {
		t.Errorf("expected override language, got %s", got)
	}
	if got := opts.PlatformFor(app); got != types.PlatformZephyr {
		t.Errorf("expected override platform, got %s", got)
	}
}

func TestParseEnums(t *testing.T) {
	tests := []struct {
		name    string
		parse   func() (string, error)
		want    string
		wantErr bool
	}{
		{"language lower", func() (string, error) { l, err := types.ParseTargetLanguage("cpp"); return string(l), err }, "Cpp", false},
		{"language mixed", func() (string, error) { l, err := types.ParseTargetLanguage("typescript"); return string(l), err }, "TypeScript", false},
		{"language unknown", func() (string, error) { l, err := types.ParseTargetLanguage("go"); return string(l), err }, "", true},
		{"platform", func() (string, error) { p, err := types.ParsePlatform("zephyr"); return string(p), err }, "Zephyr", false},
		{"platform unknown", func() (string, error) { p, err := types.ParsePlatform("rtos"); return string(p), err }, "", true},
		{"build system", func() (string, error) { b, err := types.ParseBuildSystem("CMake"); return string(b), err }, "cmake", false},
		{"build system lfc", func() (string, error) { b, err := types.ParseBuildSystem("LFC"); return string(b), err }, "lfc", false},
		{"build system unknown", func() (string, error) { b, err := types.ParseBuildSystem("bazel"); return string(b), err }, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultLanguage(t *testing.T) {
	if types.DefaultLanguage(types.PlatformZephyr) != types.TargetLanguageC {
		t.Error("zephyr should default to C")
	}
	if types.DefaultLanguage(types.PlatformNative) != types.TargetLanguageCpp {
		t.Error("native should default to Cpp")
	}
}

func TestBatchCommand_AppNames(t *testing.T) {
	cmd := types.BatchCommand{
		Task: types.CleanCommand(),
		Apps: []*types.App{{Name: "y"}, {Name: "x"}},
	}
	names := cmd.AppNames()
	if len(names) != 2 || names[0] != "y" || names[1] != "x" {
		t.Errorf("expected selection order [y x], got %v", names)
	}
}
