package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedSizer struct {
	size int
	err  error
}

func (f fixedSizer) Size() (int, error) { return f.size, f.err }

func TestRefreshReportsEachDependency(t *testing.T) {
	down := errors.New("connection refused")
	m := New(
		func(context.Context) error { return nil },
		func(context.Context) error { return down },
		fixedSizer{size: 4},
		time.Minute, nil,
	)

	status := m.Refresh(context.Background())
	assert.True(t, status.Store)
	assert.False(t, status.Cache)
	assert.True(t, status.Outbox)
	assert.Equal(t, 4, status.OutboxSize)
	assert.True(t, status.Healthy(), "a cache outage does not make the service unhealthy")
	assert.False(t, m.IsCacheOnline())
	assert.Equal(t, status, m.GetStatus())
}

func TestNilChecksCountAsHealthy(t *testing.T) {
	m := New(nil, nil, nil, time.Minute, nil)
	m.Start()
	defer m.Stop()

	status := m.GetStatus()
	assert.True(t, status.Store)
	assert.True(t, m.IsCacheOnline())
	assert.False(t, status.LastCheck.IsZero())
}

func TestStoreDownIsUnhealthy(t *testing.T) {
	m := New(func(context.Context) error { return errors.New("down") }, nil, fixedSizer{err: errors.New("closed")}, time.Minute, nil)

	status := m.Refresh(context.Background())
	assert.False(t, status.Healthy())
	assert.False(t, status.Outbox)

	m.Stop()
	m.Stop()
}
