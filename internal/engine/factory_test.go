package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/lf-lang/lingo/internal/toolchain"
	"github.com/lf-lang/lingo/pkg/config"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/mocks"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

func TestDependencyFactory_CreateDefaults(t *testing.T) {
	settings := config.Default()
	settings.Workers = 3

	factory := NewDependencyFactory(t.TempDir(), logger.Nop(), settings)
	deps := factory.CreateDefaults()

	if deps.Runner == nil {
		t.Error("expected default runner")
	}
	if _, ok := deps.Runner.(*process.ExecRunner); !ok {
		t.Errorf("expected exec runner, got %T", deps.Runner)
	}
	if deps.State == nil {
		t.Error("expected default state manager")
	}
	if deps.Notifier != nil {
		t.Error("notifier must stay disabled unless configured")
	}
	if deps.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", deps.Workers)
	}

	settings.Notifications = true
	if factory.CreateDefaults().Notifier == nil {
		t.Error("expected notifier when notifications are enabled")
	}
}

func TestDependencyFactory_CreateWithOverrides(t *testing.T) {
	factory := NewDependencyFactory(t.TempDir(), nil, nil)
	runner := mocks.NewMockRunner()

	deps := factory.CreateWithOverrides(Dependencies{Runner: runner, Workers: 1})

	if deps.Runner != runner {
		t.Error("expected overridden runner")
	}
	if deps.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", deps.Workers)
	}
	if deps.State == nil {
		t.Error("expected default state manager to remain")
	}
}

func TestDependencyFactory_CreateOrchestrator(t *testing.T) {
	settings := config.Default()
	settings.CMakePath = "/opt/cmake/bin/cmake"
	factory := NewDependencyFactory(t.TempDir(), nil, settings)
	runner := mocks.NewMockRunner()

	o, err := factory.CreateOrchestrator(types.BuildSystemCMake, toolchain.Properties{Path: "lfc"}, Dependencies{Runner: runner})
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}
	if o.Backend().Name() != types.BuildSystemCMake {
		t.Errorf("expected cmake backend, got %s", o.Backend().Name())
	}

	root := t.TempDir()
	app := &types.App{
		Name:        "a",
		RootPath:    root,
		OutputRoot:  root + "/target/a",
		MainReactor: "src/Main.lf",
		Target:      types.TargetLanguageC,
	}
	err = o.ExecuteCommand(context.Background(), types.BatchCommand{
		Task: types.BuildCommand(types.BuildCommandOptions{CompileTargetCode: true}),
		Apps: []*types.App{app},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	cmds := runner.Commands()
	if len(cmds) != 4 || cmds[1].Name != "/opt/cmake/bin/cmake" {
		t.Errorf("expected configured cmake path to be used, got %v", runner.CommandLines())
	}

	if _, err := factory.CreateOrchestrator(types.BuildSystemLFC, toolchain.Properties{}, Dependencies{}); !result.IsConfig(err) {
		t.Errorf("expected configuration error without a toolchain, got %v", err)
	}
}

func TestSafeGroup_RecoversPanic(t *testing.T) {
	group, ctx := NewSafeGroup(context.Background(), nil)

	group.Go(func() error {
		panic("boom")
	})

	err := group.Wait()
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}
	if ctx.Err() == nil {
		t.Error("expected group context to be cancelled")
	}
}

func TestSafeGroup_Limit(t *testing.T) {
	group, _ := NewSafeGroup(context.Background(), logger.Nop())
	group.SetLimit(1)

	running := make(chan struct{}, 1)
	for i := 0; i < 5; i++ {
		group.Go(func() error {
			select {
			case running <- struct{}{}:
			default:
				return errors.New("limit exceeded")
			}
			<-running
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
