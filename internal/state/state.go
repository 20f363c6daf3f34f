// Package state persists per-app build state under .lingo/state
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/types"
)

// AppState is the persisted record of an app's last build
type AppState struct {
	App           string            `json:"app"`
	Status        types.BuildStatus `json:"status"`
	Phase         types.Phase       `json:"phase"`
	BuildSystem   string            `json:"buildSystem,omitempty"`
	InvocationID  string            `json:"invocationId,omitempty"`
	ProcessID     int               `json:"processId"`
	LastBuildTime time.Time         `json:"lastBuildTime"`
	BuildDuration time.Duration     `json:"buildDuration,omitempty"`
	BuildCount    int               `json:"buildCount"`
	FailureCount  int               `json:"failureCount"`
	LastError     string            `json:"lastError,omitempty"`
}

// Manager reads and writes state files. It is safe for concurrent use by
// the codegen workers.
type Manager struct {
	stateDir string
	logger   logger.Logger
	mu       sync.Mutex
	states   map[string]*AppState
}

// NewManager creates a state manager for a project
func NewManager(projectRoot string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		stateDir: Dir(projectRoot),
		logger:   log,
		states:   make(map[string]*AppState),
	}
}

// Dir is the state directory of a project
func Dir(projectRoot string) string {
	return filepath.Join(projectRoot, ".lingo", "state")
}

// Begin marks app as in progress in the given phase
func (m *Manager) Begin(app string, phase types.Phase, system string, invocationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.load(app)
	s.Status = types.BuildStatusBuilding
	s.Phase = phase
	s.BuildSystem = system
	s.InvocationID = invocationID
	s.ProcessID = os.Getpid()
	return m.save(s)
}

// Record stores the outcome of a phase. Succeeded and failed outcomes
// update the counters; err, if any, becomes the last error.
func (m *Manager) Record(app string, phase types.Phase, status types.BuildStatus, duration time.Duration, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.load(app)
	s.Status = status
	s.Phase = phase
	s.ProcessID = 0

	switch status {
	case types.BuildStatusSucceeded:
		s.BuildCount++
		s.LastBuildTime = time.Now()
		s.BuildDuration = duration
		s.LastError = ""
	case types.BuildStatusFailed:
		s.BuildCount++
		s.FailureCount++
		s.LastBuildTime = time.Now()
		s.BuildDuration = duration
	}
	if err != nil {
		s.LastError = firstLines(err.Error(), 20)
	}

	return m.save(s)
}

// Read returns the state of one app
func (m *Manager) Read(app string) (*AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.states[app]; ok {
		copied := *s
		return &copied, nil
	}
	return m.loadFile(app)
}

// Discover loads every state file in the project
func (m *Manager) Discover() (map[string]*AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make(map[string]*AppState)

	files, err := os.ReadDir(m.stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return states, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		app := strings.TrimSuffix(file.Name(), ".json")
		s, err := m.loadFile(app)
		if err != nil {
			m.logger.Warn("Failed to load state file",
				logger.WithField("app", app),
				logger.WithField("error", err))
			continue
		}
		states[app] = s
	}

	return states, nil
}

// Remove deletes the state of one app
func (m *Manager) Remove(app string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, app)
	if err := os.Remove(m.path(app)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

func (m *Manager) path(app string) string {
	return filepath.Join(m.stateDir, app+".json")
}

// load returns the cached state, falling back to disk and then to a fresh record
func (m *Manager) load(app string) *AppState {
	if s, ok := m.states[app]; ok {
		return s
	}
	s, err := m.loadFile(app)
	if err != nil {
		s = &AppState{App: app, Status: types.BuildStatusIdle, Phase: types.PhasePending}
	}
	m.states[app] = s
	return s
}

func (m *Manager) loadFile(app string) (*AppState, error) {
	data, err := os.ReadFile(m.path(app))
	if err != nil {
		return nil, err
	}

	var s AppState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &s, nil
}

func (m *Manager) save(s *AppState) error {
	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write atomically
	stateFile := m.path(s.App)
	tempFile := stateFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tempFile, stateFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = append(lines[:n], "...")
	}
	return strings.Join(lines, "\n")
}
