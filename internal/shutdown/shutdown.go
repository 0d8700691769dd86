// Package shutdown coordinates graceful shutdown of the API server: signal
// handling, cleanup registration and ordered teardown.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"todoapp/internal/utils"
)

// CleanupFunc is a function that performs cleanup on shutdown.
// It receives a context that will be cancelled when the shutdown times out.
type CleanupFunc func(ctx context.Context) error

type cleanupEntry struct {
	name string
	fn   CleanupFunc
}

// Manager handles graceful shutdown coordination.
type Manager struct {
	mu         sync.Mutex
	cleanups   []cleanupEntry
	shutdown   bool
	reason     string
	shutdownCh chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	once       sync.Once
	stopSignal func()
}

// NewManager creates a new shutdown manager.
func NewManager() *Manager {
	return NewManagerWithParent(context.Background())
}

// NewManagerWithParent creates a manager whose context also ends when parent does.
func NewManagerWithParent(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	m := &Manager{
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	go func() {
		<-ctx.Done()
		m.shutdownWithReason("context done")
	}()
	return m
}

// NotifySignals starts a shutdown when one of sigs arrives (default SIGINT
// and SIGTERM).
func (m *Manager) NotifySignals(sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	m.mu.Lock()
	m.stopSignal = func() { signal.Stop(ch) }
	m.mu.Unlock()

	go func() {
		select {
		case sig := <-ch:
			m.shutdownWithReason("received " + sig.String())
		case <-m.shutdownCh:
		}
	}()
}

// RegisterCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first called).
func (m *Manager) RegisterCleanup(name string, fn CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, cleanupEntry{name: name, fn: fn})
}

// Shutdown initiates a graceful shutdown.
// Safe to call multiple times; only the first call has effect.
func (m *Manager) Shutdown() {
	m.shutdownWithReason("requested")
}

func (m *Manager) shutdownWithReason(reason string) {
	m.once.Do(func() {
		m.mu.Lock()
		m.shutdown = true
		m.reason = reason
		stop := m.stopSignal
		m.mu.Unlock()

		if stop != nil {
			stop()
		}
		utils.Debugf("shutdown: %s", reason)
		m.cancel()
		close(m.shutdownCh)
	})
}

// Done returns a channel closed when shutdown starts.
func (m *Manager) Done() <-chan struct{} {
	return m.shutdownCh
}

// Reason returns why shutdown started, or "" if it has not.
func (m *Manager) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// runCleanups executes all cleanup functions in LIFO order and joins their errors.
func (m *Manager) runCleanups(ctx context.Context) error {
	m.mu.Lock()
	cleanups := make([]cleanupEntry, len(m.cleanups))
	copy(cleanups, m.cleanups)
	m.mu.Unlock()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i].fn(ctx); err != nil {
			utils.Warnf("cleanup %s failed: %v", cleanups[i].name, err)
			errs = append(errs, fmt.Errorf("%s: %w", cleanups[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// Wait runs the registered cleanups. It returns ctx's error if they do not
// finish in time, otherwise the joined cleanup errors.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- m.runCleanups(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown returns true if shutdown has been initiated.
func (m *Manager) IsShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// Context returns a context that is cancelled when shutdown is initiated.
func (m *Manager) Context() context.Context {
	return m.ctx
}
