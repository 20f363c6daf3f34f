package engine

import (
	"context"
	"io"

	"github.com/lf-lang/lingo/internal/state"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/notifier"
	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/types"
)

// Executor runs batch commands. The watcher and the CLI depend on this
// rather than on *Orchestrator.
type Executor interface {
	ExecuteCommand(ctx context.Context, cmd types.BatchCommand) error
}

var _ Executor = (*Orchestrator)(nil)

// Dependencies are the collaborators of an Orchestrator. Nil fields get
// defaults from New, except State and Notifier which stay disabled.
type Dependencies struct {
	Runner   process.Runner
	State    *state.Manager
	Notifier *notifier.BuildNotifier
	Logger   logger.Logger
	// Stdout receives the output of apps started by a Run command
	Stdout io.Writer
	// Workers bounds parallel code generation; 0 means one per CPU
	Workers int
}
