package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Check probes one dependency. A nil Check counts as healthy, which is how
// the in-memory drivers are reported.
type Check func(ctx context.Context) error

// Sizer reports the number of pending outbox entries.
type Sizer interface {
	Size() (int, error)
}

type Monitor struct {
	store  Check
	cache  Check
	outbox Sizer

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(store, cache Check, outbox Sizer, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:    store,
		cache:    cache,
		outbox:   outbox,
		interval: interval,
		timeout:  2 * time.Second,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Start runs a first check synchronously, then polls in the background.
func (m *Monitor) Start() {
	m.Refresh(context.Background())
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsCacheOnline reports whether the last probe reached the cache.
func (m *Monitor) IsCacheOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Cache
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Refresh probes every dependency once and stores the result.
func (m *Monitor) Refresh(ctx context.Context) Status {
	outboxOK, outboxSize := m.checkOutbox()
	status := Status{
		Store:      m.probe(ctx, "store", m.store),
		Cache:      m.probe(ctx, "cache", m.cache),
		Outbox:     outboxOK,
		OutboxSize: outboxSize,
		LastCheck:  time.Now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Cache != status.Cache {
		m.logger.Info("cache availability changed", zap.Bool("online", status.Cache))
	}
	return status
}

func (m *Monitor) probe(ctx context.Context, name string, check Check) bool {
	if check == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		m.logger.Debug("health probe failed", zap.String("dependency", name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkOutbox() (bool, int) {
	if m.outbox == nil {
		return true, 0
	}
	size, err := m.outbox.Size()
	if err != nil {
		m.logger.Warn("outbox size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
