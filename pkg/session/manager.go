package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/flowfsm/internal/logging"
	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/ports"
)

// Runner is the part of a flow the manager drives.
type Runner interface {
	Start(c *domain.Context) error
	Trigger(event domain.Event, c *domain.Context) (bool, error)
	ConditionTrigger(event domain.Event, c *domain.Context, expected domain.State) (bool, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager opens, drives and forgets live contexts.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	runner Runner
	store  ports.ContextStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	ids    domain.IDGenerator
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIDGenerator sets the generator used by Open when no id is given.
func WithIDGenerator(gen domain.IDGenerator) Option {
	return func(m *Manager) {
		if gen != nil {
			m.ids = gen
		}
	}
}

// NewManager creates a manager driving contexts of runner kept in store.
func NewManager(runner Runner, store ports.ContextStore, opts ...Option) *Manager {
	m := &Manager{
		runner: runner,
		store:  store,
		locks:  make(map[string]*lockEntry),
		ids:    domain.UUIDs(),
		logger: logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for id.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()
	return fn(ctx)
}

// Open creates and starts a context. An empty id is generated.
func (m *Manager) Open(ctx context.Context, id string, opts ...domain.ContextOption) (*domain.Context, error) {
	if id == "" {
		id = m.ids()
	}

	var c *domain.Context
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if _, err := m.store.Get(ctx, id); err == nil {
			return domain.ErrContextExists
		} else if !errors.Is(err, domain.ErrContextNotFound) {
			return fmt.Errorf("failed to check context existence: %w", err)
		}

		c = domain.NewContext(append(append([]domain.ContextOption(nil), opts...), domain.WithID(id))...)
		if err := m.store.Put(ctx, c); err != nil {
			return fmt.Errorf("failed to register context: %w", err)
		}
		if err := m.runner.Start(c); err != nil {
			_ = m.store.Delete(ctx, id)
			return fmt.Errorf("failed to start context: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("context opened", "context", id, "state", c.State())
	return c, nil
}

// Get returns the live context for id.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Context, error) {
	return m.store.Get(ctx, id)
}

// Trigger fires event on the context id. A non-empty expected makes it a conditional trigger.
func (m *Manager) Trigger(ctx context.Context, id string, event domain.Event, expected domain.State) (bool, error) {
	var ok bool
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		c, err := m.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if expected != domain.NoState {
			ok, err = m.runner.ConditionTrigger(event, c, expected)
		} else {
			ok, err = m.runner.Trigger(event, c)
		}
		return err
	})
	return ok, err
}

// Stop aborts the context id. It stays addressable until deleted or pruned.
func (m *Manager) Stop(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		c, err := m.store.Get(ctx, id)
		if err != nil {
			return err
		}
		c.Stop()
		return nil
	})
}

// Delete stops and forgets the context id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		c, err := m.store.Get(ctx, id)
		if err != nil {
			return err
		}
		c.Stop()
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Prune forgets every terminated context and returns how many were removed.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		err := m.WithLock(ctx, id, func(ctx context.Context) error {
			c, err := m.store.Get(ctx, id)
			if err != nil {
				return err
			}
			if !c.IsTerminated() {
				return nil
			}
			if err := m.store.Delete(ctx, id); err != nil {
				return err
			}
			removed++
			return nil
		})
		if err != nil && !errors.Is(err, domain.ErrContextNotFound) {
			return removed, err
		}
	}

	if removed > 0 {
		m.logger.Debug("contexts pruned", "count", removed)
	}
	return removed, nil
}

// Store returns the underlying context store.
func (m *Manager) Store() ports.ContextStore {
	return m.store
}
