// Package process turns OS signals into context cancellation and runs shutdown handlers
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/poltergeist/phasebuild/pkg/logger"
)

// Manager handles process lifecycle and signals
type Manager struct {
	logger           logger.Logger
	shutdownHandlers []func()
	signals          chan os.Signal
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	mu               sync.Mutex
	running          bool
	shutdownOnce     sync.Once
}

// NewManager creates a new process manager
func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		logger:  log.WithTarget("process"),
		signals: make(chan os.Signal, 1),
	}
}

// RegisterShutdownHandler adds a handler run once on shutdown. Handlers run in reverse order.
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// Start listens for interrupt, SIGTERM and SIGHUP. The returned context is
// cancelled on the first signal or when parent is done.
func (m *Manager) Start(parent context.Context) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	if m.running {
		cancel()
		return ctx
	}
	m.running = true
	m.cancel = cancel

	signal.Notify(m.signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		select {
		case <-ctx.Done():
		case sig := <-m.signals:
			m.logger.Info("Received signal", logger.WithField("signal", sig.String()))
			cancel()
			m.shutdown()
		}
	}()

	return ctx
}

// Stop stops listening for signals and runs the shutdown handlers unless a signal already did
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	signal.Stop(m.signals)
	cancel()
	m.wg.Wait()
	m.shutdown()
}

// IsRunning checks if the process manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) shutdown() {
	m.shutdownOnce.Do(func() {
		m.logger.Debug("Running shutdown handlers")

		m.mu.Lock()
		handlers := make([]func(), len(m.shutdownHandlers))
		copy(handlers, m.shutdownHandlers)
		m.mu.Unlock()

		for i := len(handlers) - 1; i >= 0; i-- {
			handlers[i]()
		}
	})
}
