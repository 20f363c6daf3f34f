package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/lf-lang/lingo/internal/backend"
	"github.com/lf-lang/lingo/internal/state"
	lcontext "github.com/lf-lang/lingo/pkg/context"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/notifier"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

// Orchestrator executes batch commands through one backend
type Orchestrator struct {
	backend  backend.Backend
	runner   process.Runner
	state    *state.Manager
	notifier *notifier.BuildNotifier
	logger   logger.Logger
	stdout   io.Writer
	workers  int
}

// BatchReport describes what happened to every app of a batch, in
// selection order
type BatchReport struct {
	Command  types.CommandKind
	Apps     []types.AppReport
	Duration time.Duration
}

// Failed lists the reports of failed apps
func (r *BatchReport) Failed() []types.AppReport {
	var failed []types.AppReport
	for _, a := range r.Apps {
		if a.Status == types.BuildStatusFailed {
			failed = append(failed, a)
		}
	}
	return failed
}

// New creates an orchestrator bound to b
func New(b backend.Backend, deps Dependencies) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	runner := deps.Runner
	if runner == nil {
		runner = &process.ExecRunner{Logger: log}
	}
	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Orchestrator{
		backend:  b,
		runner:   runner,
		state:    deps.State,
		notifier: deps.Notifier,
		logger:   log,
		stdout:   stdout,
		workers:  deps.Workers,
	}
}

// Backend returns the backend the orchestrator is bound to
func (o *Orchestrator) Backend() backend.Backend {
	return o.backend
}

// ExecuteCommand runs cmd and returns the merged result: nil when every app
// succeeded, otherwise every failure that occurred.
func (o *Orchestrator) ExecuteCommand(ctx context.Context, cmd types.BatchCommand) error {
	_, err := o.Execute(ctx, cmd)
	return err
}

// Execute runs cmd and also reports per-app outcomes
func (o *Orchestrator) Execute(ctx context.Context, cmd types.BatchCommand) (*BatchReport, error) {
	start := time.Now()
	batch := newBatch(cmd)
	report := &BatchReport{Command: cmd.Task.Kind, Apps: batch.reports}

	if len(cmd.Apps) == 0 {
		return report, nil
	}

	ctx = lcontext.EnrichContext(ctx, string(cmd.Task.Kind))
	log := logger.WithContext(ctx, o.logger)
	log.Info(fmt.Sprintf("Starting %s of %d app(s)", cmd.Task.Kind, len(cmd.Apps)),
		logger.WithField("backend", o.backend.Name()),
		logger.WithField("keep_going", cmd.Task.KeepGoing()))

	var err error
	switch cmd.Task.Kind {
	case types.CommandBuild:
		err = o.build(ctx, batch, cmd.Task.Build)
	case types.CommandRun:
		if !cmd.Task.Build.CompileTargetCode {
			err = result.Configf("run needs compiled apps; --no-compile only generates code")
			break
		}
		err = o.build(ctx, batch, cmd.Task.Build)
		if err == nil || cmd.Task.KeepGoing() {
			err = result.Merge(err, o.run(ctx, batch, cmd.Task.Build.KeepGoing))
		}
	case types.CommandClean:
		err = o.clean(ctx, batch, cmd.Task.KeepGoing())
	default:
		err = result.Configf("unknown command: %q", cmd.Task.Kind)
	}

	report.Duration = time.Since(start)
	if err != nil {
		log.Error(fmt.Sprintf("%s failed", cmd.Task.Kind),
			logger.WithField("failed", result.FailedApps(err)))
	} else {
		log.Success(fmt.Sprintf("%s of %d app(s) completed in %s", cmd.Task.Kind, len(cmd.Apps), report.Duration.Round(time.Millisecond)))
	}
	if o.notifier != nil && !result.IsConfig(err) {
		o.notifier.NotifyBatch(string(cmd.Task.Kind), len(cmd.Apps), err, report.Duration)
	}
	return report, err
}

// batch tracks per-app progress. reports is indexed like apps.
type batch struct {
	apps    []*types.App
	reports []types.AppReport
}

func newBatch(cmd types.BatchCommand) *batch {
	reports := make([]types.AppReport, len(cmd.Apps))
	for i, app := range cmd.Apps {
		reports[i] = types.AppReport{
			App:    app.Name,
			Phase:  types.PhasePending,
			Status: types.BuildStatusIdle,
		}
	}
	return &batch{apps: cmd.Apps, reports: reports}
}

// build runs codegen for all apps, then compiles the ones that generated
// successfully, one at a time.
func (o *Orchestrator) build(ctx context.Context, b *batch, opts types.BuildCommandOptions) error {
	// configuration errors fail the batch before anything is spawned
	var checkErr error
	for _, app := range b.apps {
		checkErr = result.Merge(checkErr, o.backend.Check(app, opts))
	}
	if checkErr != nil {
		return checkErr
	}

	generated, err := o.codegen(ctx, b, opts)
	if err != nil && !opts.KeepGoing {
		return err
	}

	if !opts.CompileTargetCode {
		for i := range b.apps {
			if generated[i] {
				o.complete(b, i, types.PhaseSkipped, types.BuildStatusSucceeded, nil)
			}
		}
		return err
	}

	for i, app := range b.apps {
		if !generated[i] {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result.Merge(err, ctxErr)
		}

		compileErr := o.phase(ctx, b, i, types.PhaseCompile, func(ctx context.Context) error {
			return o.backend.Compile(ctx, app, opts)
		})
		err = result.Merge(err, compileErr)
		if compileErr != nil && !opts.KeepGoing {
			return err
		}
	}
	return err
}

// codegen fans code generation out over a bounded pool. Without keep-going
// apps generate one at a time in selection order, so nothing after the
// first failure is started. generated[i] reports whether app i produced
// sources.
func (o *Orchestrator) codegen(ctx context.Context, b *batch, opts types.BuildCommandOptions) ([]bool, error) {
	errs := make([]error, len(b.apps))
	generated := make([]bool, len(b.apps))

	group, gctx := NewSafeGroup(ctx, o.logger)
	workers := 1
	if opts.KeepGoing {
		workers = EffectiveWorkers(o.workers, len(b.apps))
	}
	group.SetLimit(workers)

	for i, app := range b.apps {
		i, app := i, app
		group.Go(func() error {
			if gctx.Err() != nil {
				b.reports[i].Status = types.BuildStatusSkipped
				return nil
			}

			err := o.phase(gctx, b, i, types.PhaseCodegen, func(ctx context.Context) error {
				return o.backend.Generate(ctx, app, opts)
			})
			if err != nil && gctx.Err() != nil && errors.Is(err, gctx.Err()) {
				return nil
			}

			errs[i] = err
			generated[i] = err == nil
			if err != nil && !opts.KeepGoing {
				return err
			}
			return nil
		})
	}

	waitErr := group.Wait()

	merged := result.Fold(errs...)
	if errors.Is(waitErr, ErrPanic) {
		merged = result.Merge(merged, waitErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		merged = result.Merge(merged, ctxErr)
	}
	return generated, merged
}

// run executes each built app's binary in selection order
func (o *Orchestrator) run(ctx context.Context, b *batch, keepGoing bool) error {
	var err error
	for i, app := range b.apps {
		if b.reports[i].Status != types.BuildStatusSucceeded {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result.Merge(err, ctxErr)
		}

		runErr := o.phase(ctx, b, i, types.PhaseRun, func(ctx context.Context) error {
			exe := app.ExecutablePath()
			if _, statErr := os.Stat(exe); statErr != nil {
				return fmt.Errorf("no executable at %s: %w", exe, statErr)
			}
			_, runErr := o.runner.Run(ctx, process.Command{
				Name:   exe,
				Dir:    app.RootPath,
				App:    app.Name,
				Stdout: o.stdout,
			})
			return runErr
		})
		err = result.Merge(err, runErr)
		if runErr != nil && !keepGoing {
			return err
		}
	}
	return err
}

// clean removes every app's output root in selection order
func (o *Orchestrator) clean(ctx context.Context, b *batch, keepGoing bool) error {
	var err error
	for i, app := range b.apps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result.Merge(err, ctxErr)
		}

		cleanErr := o.phase(ctx, b, i, types.PhaseClean, func(ctx context.Context) error {
			return o.backend.Clean(ctx, app)
		})
		err = result.Merge(err, cleanErr)
		if cleanErr != nil && !keepGoing {
			return err
		}
	}
	return err
}

// phase runs one app step and records its outcome. Failures are
// attributed to the app; a step interrupted by cancellation is skipped.
func (o *Orchestrator) phase(ctx context.Context, b *batch, i int, phase types.Phase, fn func(context.Context) error) error {
	app := b.apps[i]
	ctx = lcontext.WithApp(ctx, app.Name)
	log := logger.WithContext(ctx, o.logger).WithApp(app.Name)

	b.reports[i].Phase = phase
	b.reports[i].Status = types.BuildStatusBuilding
	if o.state != nil {
		if err := o.state.Begin(app.Name, phase, string(o.backend.Name()), lcontext.GetInvocationID(ctx)); err != nil {
			log.Warn("Failed to update state", logger.WithField("error", err))
		}
	}

	start := time.Now()
	err := o.call(ctx, log, fn)
	duration := time.Since(start)
	b.reports[i].Duration += duration

	switch {
	case err == nil:
		log.Debug(fmt.Sprintf("%s done", phase), logger.WithField("duration", duration.Round(time.Millisecond)))
		switch phase {
		case types.PhaseCodegen:
			// compile is still pending
			b.reports[i].Status = types.BuildStatusSucceeded
			o.recordState(app.Name, phase, types.BuildStatusIdle, duration, nil)
		case types.PhaseClean:
			b.reports[i].Status = types.BuildStatusCleaned
			o.recordState(app.Name, phase, types.BuildStatusCleaned, duration, nil)
		default:
			o.complete(b, i, phase, types.BuildStatusSucceeded, nil)
		}
		return nil

	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		log.Warn(fmt.Sprintf("%s cancelled", phase))
		b.reports[i].Status = types.BuildStatusSkipped
		o.recordState(app.Name, phase, types.BuildStatusSkipped, duration, nil)
		return err

	default:
		err = result.ForApp(app.Name, phase, err)
		log.Error(fmt.Sprintf("%s failed", phase), logger.WithField("error", err))
		o.complete(b, i, phase, types.BuildStatusFailed, err)
		return err
	}
}

// call runs fn, turning a panic into an error wrapping ErrPanic
func (o *Orchestrator) call(ctx context.Context, log logger.Logger, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic recovered",
				logger.WithField("panic", r),
				logger.WithField("stack_trace", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx)
}

// complete records a terminal outcome for app i
func (o *Orchestrator) complete(b *batch, i int, phase types.Phase, status types.BuildStatus, err error) {
	app := b.apps[i]
	report := &b.reports[i]
	report.Phase = phase
	report.Status = status
	report.Err = err

	if phase == types.PhaseRun && status == types.BuildStatusSucceeded {
		return
	}
	o.recordState(app.Name, phase, status, report.Duration, err)

	if o.notifier == nil || phase == types.PhaseClean || phase == types.PhaseRun {
		return
	}
	if status == types.BuildStatusFailed {
		o.notifier.NotifyAppFailure(app.Name, err)
	} else {
		o.notifier.NotifyAppSuccess(app.Name, report.Duration)
	}
}

func (o *Orchestrator) recordState(app string, phase types.Phase, status types.BuildStatus, duration time.Duration, err error) {
	if o.state == nil {
		return
	}
	if stateErr := o.state.Record(app, phase, status, duration, err); stateErr != nil {
		o.logger.WithApp(app).Warn("Failed to update state", logger.WithField("error", stateErr))
	}
}
