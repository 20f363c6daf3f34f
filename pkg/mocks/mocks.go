// Package mocks provides hand-written test doubles for the process runner
// and build backends.
package mocks

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/types"
)

// MockRunner records every command instead of spawning it
type MockRunner struct {
	mu    sync.Mutex
	calls []process.Command
	// Handler decides the outcome of a command; nil means success with no output
	Handler func(cmd process.Command) ([]byte, error)
}

// NewMockRunner creates a runner whose commands all succeed
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// Run records cmd and delegates to Handler
func (m *MockRunner) Run(ctx context.Context, cmd process.Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, cmd)
	handler := m.Handler
	m.mu.Unlock()

	if handler == nil {
		return nil, nil
	}
	return handler(cmd)
}

// Commands returns a copy of the recorded commands
func (m *MockRunner) Commands() []process.Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmds := make([]process.Command, len(m.calls))
	copy(cmds, m.calls)
	return cmds
}

// CommandLines returns the recorded commands rendered as strings
func (m *MockRunner) CommandLines() []string {
	cmds := m.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

// Reset clears recorded commands
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// MockBackend is a scripted build backend
type MockBackend struct {
	mu    sync.Mutex
	calls []string

	System      types.BuildSystem
	CheckErr    map[string]error
	GenerateErr map[string]error
	CompileErr  map[string]error
	CleanErr    map[string]error
	// CreateOutputs makes Generate and Compile write into the app's output root
	CreateOutputs bool
}

// NewMockBackend creates a backend whose operations all succeed
func NewMockBackend() *MockBackend {
	return &MockBackend{
		System:      "mock",
		CheckErr:    make(map[string]error),
		GenerateErr: make(map[string]error),
		CompileErr:  make(map[string]error),
		CleanErr:    make(map[string]error),
	}
}

// Name returns the build system name
func (m *MockBackend) Name() types.BuildSystem {
	return m.System
}

// Check records nothing and returns the scripted error
func (m *MockBackend) Check(app *types.App, opts types.BuildCommandOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CheckErr[app.Name]
}

// Generate records a codegen call
func (m *MockBackend) Generate(ctx context.Context, app *types.App, opts types.BuildCommandOptions) error {
	err := m.record("generate", app.Name, m.GenerateErr)
	if err == nil && m.CreateOutputs {
		return os.MkdirAll(app.SrcGenDir(), 0755)
	}
	return err
}

// Compile records a compile call
func (m *MockBackend) Compile(ctx context.Context, app *types.App, opts types.BuildCommandOptions) error {
	err := m.record("compile", app.Name, m.CompileErr)
	if err == nil && m.CreateOutputs {
		return os.MkdirAll(app.BuildDir(), 0755)
	}
	return err
}

// Clean records a clean call and removes the output root
func (m *MockBackend) Clean(ctx context.Context, app *types.App) error {
	if err := m.record("clean", app.Name, m.CleanErr); err != nil {
		return err
	}
	return os.RemoveAll(app.OutputRoot)
}

// Calls returns the recorded "<op>:<app>" entries in call order
func (m *MockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallsFor returns the recorded operations of one kind, as app names
func (m *MockBackend) CallsFor(op string) []string {
	var apps []string
	prefix := op + ":"
	for _, c := range m.Calls() {
		if len(c) > len(prefix) && c[:len(prefix)] == prefix {
			apps = append(apps, c[len(prefix):])
		}
	}
	return apps
}

func (m *MockBackend) record(op, app string, errs map[string]error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, fmt.Sprintf("%s:%s", op, app))
	return errs[app]
}
