// Package types provides the core data model shared by the lingo build engine
package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// TargetLanguage represents the language lfc generates code for
type TargetLanguage string

const (
	TargetLanguageC          TargetLanguage = "C"
	TargetLanguageCpp        TargetLanguage = "Cpp"
	TargetLanguageRust       TargetLanguage = "Rust"
	TargetLanguageTypeScript TargetLanguage = "TypeScript"
	TargetLanguagePython     TargetLanguage = "Python"
)

// Platform represents the platform an app is built for
type Platform string

const (
	PlatformNative Platform = "Native"
	PlatformZephyr Platform = "Zephyr"
)

// BuildSystem names a backend implementation
type BuildSystem string

const (
	BuildSystemLFC   BuildSystem = "lfc"
	BuildSystemCMake BuildSystem = "cmake"
)

// BuildProfile controls optimization and symbol stripping
type BuildProfile int

const (
	BuildProfileDebug BuildProfile = iota
	BuildProfileRelease
)

// String returns the profile name as lfc expects it in its build-type property
func (p BuildProfile) String() string {
	if p == BuildProfileRelease {
		return "Release"
	}
	return "Debug"
}

// CMakeBuildType returns the CMAKE_BUILD_TYPE value for the profile
func (p BuildProfile) CMakeBuildType() string {
	if p == BuildProfileRelease {
		return "RELEASE"
	}
	return "DEBUG"
}

// ProfileFromRelease derives the profile from the --release flag
func ProfileFromRelease(release bool) BuildProfile {
	if release {
		return BuildProfileRelease
	}
	return BuildProfileDebug
}

// BuildStatus represents the recorded state of an app's last build
type BuildStatus string

const (
	BuildStatusIdle      BuildStatus = "idle"
	BuildStatusBuilding  BuildStatus = "building"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusSkipped   BuildStatus = "skipped"
	BuildStatusCleaned   BuildStatus = "cleaned"
)

// Phase is a step of the per-batch state machine
type Phase string

const (
	PhasePending Phase = "pending"
	PhaseCodegen Phase = "codegen"
	PhaseCompile Phase = "compile"
	PhaseSkipped Phase = "skipped"
	PhaseClean   Phase = "clean"
	PhaseRun     Phase = "run"
)

// App is one buildable unit of a project. It is read-only for the duration
// of a build invocation.
type App struct {
	Name        string         `json:"name" yaml:"name"`
	RootPath    string         `json:"rootPath" yaml:"rootPath"`
	OutputRoot  string         `json:"outputRoot" yaml:"outputRoot"`
	MainReactor string         `json:"mainReactor" yaml:"mainReactor"`
	Target      TargetLanguage `json:"target" yaml:"target"`
	Platform    Platform       `json:"platform" yaml:"platform"`
}

// SrcGenDir is the directory lfc writes generated sources into
func (a *App) SrcGenDir() string {
	return filepath.Join(a.OutputRoot, "src-gen")
}

// BuildDir is the CMake binary directory for the app
func (a *App) BuildDir() string {
	return filepath.Join(a.OutputRoot, "build")
}

// ExecutablePath is where an installed app binary is expected
func (a *App) ExecutablePath() string {
	return filepath.Join(a.OutputRoot, "bin", a.Name)
}

// MainReactorPath resolves the main reactor file against the app root
func (a *App) MainReactorPath() string {
	if filepath.IsAbs(a.MainReactor) {
		return a.MainReactor
	}
	return filepath.Join(a.RootPath, a.MainReactor)
}

// BuildCommandOptions configures a Build or Run command
type BuildCommandOptions struct {
	Profile  BuildProfile
	Language TargetLanguage
	Platform Platform
	// ToolchainPath overrides lfc discovery when set
	ToolchainPath string
	// CompileTargetCode is false for codegen-only builds
	CompileTargetCode bool
	KeepGoing         bool
}

// LanguageFor returns the language override, or the app's own target
func (o BuildCommandOptions) LanguageFor(app *App) TargetLanguage {
	if o.Language != "" {
		return o.Language
	}
	return app.Target
}

// PlatformFor returns the platform override, or the app's own platform
func (o BuildCommandOptions) PlatformFor(app *App) Platform {
	if o.Platform != "" {
		return o.Platform
	}
	if app.Platform != "" {
		return app.Platform
	}
	return PlatformNative
}

// CommandKind tags the variant of a CommandSpec
type CommandKind string

const (
	CommandBuild CommandKind = "build"
	CommandClean CommandKind = "clean"
	CommandRun   CommandKind = "run"
)

// CommandSpec is the requested operation, independent of the apps it targets
type CommandSpec struct {
	Kind  CommandKind
	Build BuildCommandOptions
}

// BuildCommand creates a Build spec
func BuildCommand(opts BuildCommandOptions) CommandSpec {
	return CommandSpec{Kind: CommandBuild, Build: opts}
}

// RunCommand creates a Run spec
func RunCommand(opts BuildCommandOptions) CommandSpec {
	return CommandSpec{Kind: CommandRun, Build: opts}
}

// CleanCommand creates a Clean spec
func CleanCommand() CommandSpec {
	return CommandSpec{Kind: CommandClean}
}

// KeepGoing reports whether per-app failures should not stop the batch
func (c CommandSpec) KeepGoing() bool {
	return c.Build.KeepGoing
}

// BatchCommand pairs a command with the ordered apps it applies to.
// App order is the build order for serial phases.
type BatchCommand struct {
	Task CommandSpec
	Apps []*App
}

// AppNames lists the app names in batch order
func (b BatchCommand) AppNames() []string {
	names := make([]string, 0, len(b.Apps))
	for _, app := range b.Apps {
		names = append(names, app.Name)
	}
	return names
}

// AppReport is the outcome of one app within a batch
type AppReport struct {
	App      string        `json:"app"`
	Phase    Phase         `json:"phase"`
	Status   BuildStatus   `json:"status"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// ParseTargetLanguage parses a language name case-insensitively
func ParseTargetLanguage(s string) (TargetLanguage, error) {
	for _, lang := range []TargetLanguage{
		TargetLanguageC,
		TargetLanguageCpp,
		TargetLanguageRust,
		TargetLanguageTypeScript,
		TargetLanguagePython,
	} {
		if strings.EqualFold(s, string(lang)) {
			return lang, nil
		}
	}
	return "", fmt.Errorf("unknown target language: %q", s)
}

// ParsePlatform parses a platform name case-insensitively
func ParsePlatform(s string) (Platform, error) {
	switch {
	case strings.EqualFold(s, string(PlatformNative)):
		return PlatformNative, nil
	case strings.EqualFold(s, string(PlatformZephyr)):
		return PlatformZephyr, nil
	}
	return "", fmt.Errorf("unknown platform: %q", s)
}

// ParseBuildSystem parses a build system name case-insensitively
func ParseBuildSystem(s string) (BuildSystem, error) {
	switch {
	case strings.EqualFold(s, string(BuildSystemLFC)):
		return BuildSystemLFC, nil
	case strings.EqualFold(s, string(BuildSystemCMake)):
		return BuildSystemCMake, nil
	}
	return "", fmt.Errorf("unknown build system: %q", s)
}

// DefaultLanguage picks the init language: C for Zephyr, Cpp otherwise
func DefaultLanguage(platform Platform) TargetLanguage {
	if platform == PlatformZephyr {
		return TargetLanguageC
	}
	return TargetLanguageCpp
}
