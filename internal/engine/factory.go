package engine

import (
	"github.com/lf-lang/lingo/internal/backend"
	"github.com/lf-lang/lingo/internal/state"
	"github.com/lf-lang/lingo/internal/toolchain"
	"github.com/lf-lang/lingo/pkg/config"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/notifier"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/types"
)

// DependencyFactory creates the default collaborators for a project so
// constructors have no hidden concrete fallbacks.
type DependencyFactory struct {
	projectRoot string
	logger      logger.Logger
	settings    *config.Settings
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(projectRoot string, log logger.Logger, settings *config.Settings) *DependencyFactory {
	if log == nil {
		log = logger.Nop()
	}
	if settings == nil {
		settings = config.Default()
	}
	return &DependencyFactory{
		projectRoot: projectRoot,
		logger:      log,
		settings:    settings,
	}
}

// CreateDefaults creates all default dependencies
func (f *DependencyFactory) CreateDefaults() Dependencies {
	deps := Dependencies{
		Runner:  f.createRunner(),
		State:   f.createStateManager(),
		Logger:  f.logger,
		Workers: f.settings.Workers,
	}

	if f.settings.Notifications {
		deps.Notifier = f.createNotifier()
	}

	return deps
}

// CreateWithOverrides creates dependencies with specific overrides.
// Non-nil override values replace the defaults.
func (f *DependencyFactory) CreateWithOverrides(overrides Dependencies) Dependencies {
	deps := f.CreateDefaults()

	if overrides.Runner != nil {
		deps.Runner = overrides.Runner
	}
	if overrides.State != nil {
		deps.State = overrides.State
	}
	if overrides.Notifier != nil {
		deps.Notifier = overrides.Notifier
	}
	if overrides.Logger != nil {
		deps.Logger = overrides.Logger
	}
	if overrides.Stdout != nil {
		deps.Stdout = overrides.Stdout
	}
	if overrides.Workers != 0 {
		deps.Workers = overrides.Workers
	}

	return deps
}

// CreateBackend constructs the backend for system sharing deps' runner
func (f *DependencyFactory) CreateBackend(system types.BuildSystem, props toolchain.Properties, deps Dependencies) (backend.Backend, error) {
	return backend.New(system, props, backend.Deps{
		Runner:    deps.Runner,
		Logger:    deps.Logger,
		CMakePath: f.settings.CMakePath,
	})
}

// CreateOrchestrator wires a backend and its dependencies together
func (f *DependencyFactory) CreateOrchestrator(system types.BuildSystem, props toolchain.Properties, overrides Dependencies) (*Orchestrator, error) {
	deps := f.CreateWithOverrides(overrides)
	b, err := f.CreateBackend(system, props, deps)
	if err != nil {
		return nil, err
	}
	return New(b, deps), nil
}

func (f *DependencyFactory) createRunner() process.Runner {
	return process.NewExecRunner(f.projectRoot, f.logger)
}

func (f *DependencyFactory) createStateManager() *state.Manager {
	return state.NewManager(f.projectRoot, f.logger)
}

func (f *DependencyFactory) createNotifier() *notifier.BuildNotifier {
	return notifier.New(notifier.Config{Enabled: true, Sound: true}, f.logger)
}
