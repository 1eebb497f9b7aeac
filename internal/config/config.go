package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Password    PasswordConfig
	Outbox      OutboxConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnablePprof   bool
	EnableMetrics bool
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	QueryTimeout    time.Duration
	SSLMode         string
}

type CacheConfig struct {
	Driver       string
	TTL          time.Duration
	OpTimeout    time.Duration
	FlushOnStart bool
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type PasswordConfig struct {
	Cost int
}

type OutboxConfig struct {
	Enabled      bool
	Path         string
	SyncInterval time.Duration
	BatchSize    int
	MaxRetry     int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MonitorInterval time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "accounts"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			EnablePprof:   getBool("SERVER_ENABLE_PPROF", false),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", false),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getString("STORE_DRIVER", DriverPostgres)),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "accounts"),
			User:            getString("DB_USER", "accounts"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 2),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			QueryTimeout:    getDuration("DB_QUERY_TIMEOUT", 3*time.Second),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Cache: CacheConfig{
			Driver:       strings.ToLower(getString("CACHE_DRIVER", DriverRedis)),
			TTL:          getDuration("CACHE_TTL", time.Hour),
			OpTimeout:    getDuration("CACHE_OP_TIMEOUT", 500*time.Millisecond),
			FlushOnStart: getBool("CACHE_FLUSH_ON_START", false),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			PoolSize: getInt("REDIS_POOL_SIZE", 20),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "accounts"),
			TTL:    getDuration("JWT_TTL", 24*time.Hour),
		},
		Password: PasswordConfig{
			Cost: getInt("BCRYPT_COST", 10),
		},
		Outbox: OutboxConfig{
			Enabled:      getBool("OUTBOX_ENABLED", true),
			Path:         getString("OUTBOX_PATH", "./data/outbox.db"),
			SyncInterval: getDuration("OUTBOX_SYNC_INTERVAL", 30*time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 50),
			MaxRetry:     getInt("OUTBOX_MAX_RETRY", 5),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
			MonitorInterval: getDuration("MONITOR_INTERVAL", 10*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Cache.Driver {
	case DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("config: unknown CACHE_DRIVER %q", c.Cache.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: CACHE_TTL must be positive")
	}
	return nil
}

func buildPostgresURL(cfg *Config) string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Database.User, cfg.Database.Password),
		Host:     net.JoinHostPort(cfg.Database.Host, cfg.Database.Port),
		Path:     "/" + cfg.Database.Name,
		RawQuery: url.Values{"sslmode": []string{cfg.Database.SSLMode}}.Encode(),
	}
	return dsn.String()
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDuration accepts Go durations ("1h") or bare seconds ("3600").
func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
