package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc releases one component. It must return once ctx expires.
type ShutdownFunc func(ctx context.Context) error

// RunFunc is a long-running component such as the HTTP server. It returns
// when the component stops, with a nil error for a clean stop.
type RunFunc func() error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager owns the process lifetime: it runs the serving components, waits
// for a signal or a component failure, then stops everything in reverse
// registration order within one shared timeout.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []hook
	done  bool

	errCh chan error
}

func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
		errCh:   make(chan error, 1),
	}
}

// Register adds a shutdown hook. Closers registered first are stopped last,
// so register the database before the services that use it.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Go starts a component in the background. The first component that exits
// with an error ends Wait.
func (m *Manager) Go(name string, run RunFunc) {
	go func() {
		err := run()
		if err == nil {
			return
		}
		m.logger.Error("component failed", zap.String("component", name), zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}()
}

// Wait blocks until ctx is cancelled, a termination signal arrives or a
// component started with Go fails. It returns the component error, if any.
func (m *Manager) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		return nil
	case err := <-m.errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown runs every hook once, newest first, and joins their errors.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil
	}
	m.done = true

	var result error
	for i := len(m.hooks) - 1; i >= 0; i-- {
		h := m.hooks[i]
		if err := h.fn(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", h.name), zap.Error(err))
			result = errors.Join(result, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", h.name))
	}
	return result
}
