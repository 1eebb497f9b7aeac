package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, DriverRedis, cfg.Cache.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Contains(t, cfg.Database.URL, "postgres://accounts:@localhost:5432/accounts")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CACHE_TTL", "120")
	t.Setenv("CACHE_OP_TIMEOUT", "250ms")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("CACHE_FLUSH_ON_START", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Cache.OpTimeout)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, DriverMemory, cfg.Cache.Driver)
	assert.True(t, cfg.Cache.FlushOnStart)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("CACHE_DRIVER", "memcached")
		_, err := Load()
		assert.ErrorContains(t, err, "CACHE_DRIVER")
	})
}

func TestDatabaseURLEscapesCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_USER", "app:user")
	t.Setenv("DB_PASSWORD", "p@ss/w:rd?")

	cfg, err := Load()
	require.NoError(t, err)

	parsed, err := url.Parse(cfg.Database.URL)
	require.NoError(t, err)
	assert.Equal(t, "app:user", parsed.User.Username())
	pass, ok := parsed.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss/w:rd?", pass)
	assert.Equal(t, "localhost:5432", parsed.Host)
	assert.Equal(t, "/accounts", parsed.Path)
}
