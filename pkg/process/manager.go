// Package process runs external tools and handles process signals
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/lf-lang/lingo/pkg/logger"
)

// Manager cancels a long-running command (watch, run) on SIGINT/SIGTERM
// and runs shutdown handlers in reverse registration order.
type Manager struct {
	logger           logger.Logger
	shutdownHandlers []func()
	stop             chan struct{}
	wg               sync.WaitGroup
	mu               sync.Mutex
	running          bool
}

// NewManager creates a new process manager
func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		logger:           log,
		shutdownHandlers: make([]func(), 0),
	}
}

// RegisterShutdownHandler adds a shutdown handler
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// Start derives a context that is cancelled when a signal arrives or the
// parent is done. Handlers run once in either case.
func (m *Manager) Start(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		cancel()
		return ctx
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(sigChan)
		defer cancel()

		select {
		case <-ctx.Done():
			m.handleShutdown()
		case sig := <-sigChan:
			m.logger.Info("Received signal", logger.WithField("signal", sig))
			m.handleShutdown()
		case <-stop:
		}
	}()

	return ctx
}

// Stop releases the signal handler without running shutdown handlers
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()
}

// IsRunning checks if the process manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) handleShutdown() {
	m.logger.Info("Shutting down...")

	m.mu.Lock()
	handlers := make([]func(), len(m.shutdownHandlers))
	copy(handlers, m.shutdownHandlers)
	m.running = false
	m.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}
