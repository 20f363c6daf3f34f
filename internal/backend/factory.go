package backend

import (
	"github.com/lf-lang/lingo/internal/toolchain"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

// Deps are the collaborators shared by all backends
type Deps struct {
	Runner    process.Runner
	Logger    logger.Logger
	CMakePath string
}

// New maps a build system to its backend. Unknown systems and a missing
// toolchain path are configuration errors. New performs no I/O.
func New(system types.BuildSystem, props toolchain.Properties, deps Deps) (Backend, error) {
	if props.Path == "" {
		return nil, result.Configf("no lfc toolchain path resolved")
	}

	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	runner := deps.Runner
	if runner == nil {
		runner = &process.ExecRunner{Logger: log}
	}

	switch system {
	case types.BuildSystemLFC:
		return &LFC{props: props, runner: runner, logger: log}, nil
	case types.BuildSystemCMake:
		cmakePath := deps.CMakePath
		if cmakePath == "" {
			cmakePath = "cmake"
		}
		return &CMake{props: props, cmakePath: cmakePath, runner: runner, logger: log}, nil
	default:
		return nil, result.Configf("unknown build system: %q", system)
	}
}

// FromTarget constructs the backend for system and checks that it can build
// app with its default options
func FromTarget(system types.BuildSystem, app *types.App, props toolchain.Properties, deps Deps) (Backend, error) {
	b, err := New(system, props, deps)
	if err != nil {
		return nil, err
	}
	if err := b.Check(app, types.BuildCommandOptions{}); err != nil {
		return nil, err
	}
	return b, nil
}

// ResolveSystem picks the build system from the first non-empty candidate
// (flag, then settings). It defaults to lfc.
func ResolveSystem(candidates ...string) (types.BuildSystem, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		system, err := types.ParseBuildSystem(c)
		if err != nil {
			return "", result.Configf("%v", err)
		}
		return system, nil
	}
	return types.BuildSystemLFC, nil
}
