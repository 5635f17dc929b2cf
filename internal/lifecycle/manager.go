package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moolen/depscope/internal/logging"
)

// Manager starts registered components in registration order and stops
// them in reverse order, with a per-component shutdown timeout. A
// component that fails to start triggers a rollback of everything
// started before it.
type Manager struct {
	mu              sync.Mutex
	components      []Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager creates a lifecycle manager with a 30-second per-component
// shutdown timeout.
func NewManager() *Manager {
	return &Manager{
		shutdownTimeout: 30 * time.Second,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// Register adds a component. Components start in registration order, so
// register dependencies before their dependents.
func (m *Manager) Register(component Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if component.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	for _, c := range m.components {
		if c == component {
			return fmt.Errorf("component %s is already registered", component.Name())
		}
	}

	m.components = append(m.components, component)
	m.logger.Debug("registered component %s", component.Name())
	return nil
}

// Start starts all components in registration order. On failure the
// already-started components are stopped in reverse order and the
// start error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = nil
	for _, component := range m.components {
		m.logger.Info("starting %s", component.Name())
		begin := time.Now()

		if err := component.Start(ctx); err != nil {
			m.logger.ErrorWithErr(fmt.Sprintf("failed to start %s", component.Name()), err)
			m.rollback()
			return fmt.Errorf("starting %s: %w", component.Name(), err)
		}

		m.started = append(m.started, component)
		m.logger.Info("%s started (took %dms)", component.Name(), time.Since(begin).Milliseconds())
	}
	return nil
}

// rollback stops components started during a failed Start, newest
// first. Callers hold m.mu.
func (m *Manager) rollback() {
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := component.Stop(ctx); err != nil {
			m.logger.Warn("error stopping %s during rollback: %v", component.Name(), err)
		}
		cancel()
	}
	m.started = nil
}

// Stop stops all started components in reverse start order. Each
// component gets its own deadline; errors are logged, not returned, so
// one slow component cannot block the rest of the shutdown.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		m.logger.Info("stopping %s", component.Name())
		begin := time.Now()

		componentCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		err := component.Stop(componentCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("%s exceeded the %s shutdown grace period", component.Name(), m.shutdownTimeout)
		case err != nil:
			m.logger.ErrorWithErr(fmt.Sprintf("error stopping %s", component.Name()), err)
		default:
			m.logger.Info("%s stopped (took %dms)", component.Name(), time.Since(begin).Milliseconds())
		}
	}
	m.started = nil
	return nil
}

// SetShutdownTimeout sets the per-component grace period for Stop.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}
