// Package config provides configuration management for the phonebook.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
	LockNone   = "none"
)

// Config represents the complete application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Lock     LockConfig     `mapstructure:"lock"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

// DatabaseConfig holds database connection settings.
// Supports PostgreSQL, SQLite and a process-local in-memory store.
type DatabaseConfig struct {
	// Driver specifies the database driver: "sqlite", "postgres" or "memory".
	Driver string `mapstructure:"driver"`

	// PostgreSQL settings (used when Driver is "postgres").
	// URL, when set, takes precedence over the individual fields.
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// SQLite settings (used when Driver is "sqlite")
	Path            string `mapstructure:"path"`             // Path to SQLite database file
	JournalMode     string `mapstructure:"journal_mode"`     // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`     // Milliseconds to wait for locks
	CacheSize       int    `mapstructure:"cache_size"`       // Page cache size (negative = KB)
	SynchronousMode string `mapstructure:"synchronous_mode"` // NORMAL, FULL, OFF
}

// DSN returns the PostgreSQL connection string.
// Only valid when Driver is "postgres".
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsEmbedded returns true if the store lives inside the process.
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == DriverSQLite || c.Driver == DriverMemory
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	// URL, when set, is parsed with redis.ParseURL and overrides Host/Port.
	URL         string        `mapstructure:"url"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LockConfig controls the lock that serializes owner creation per login name.
type LockConfig struct {
	// Backend is "memory" (single process), "redis" (shared) or "none".
	Backend string `mapstructure:"backend"`

	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration `mapstructure:"ttl"`

	// Retries is the number of extra acquisition attempts.
	Retries int `mapstructure:"retries"`

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// AuthConfig holds credential settings.
type AuthConfig struct {
	// BcryptCost is the work factor for new password hashes.
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Textfile is where a CLI run writes its metrics on exit, in the
	// node_exporter textfile format. Empty disables the export.
	Textfile string `mapstructure:"textfile"`
}

// SeedConfig holds settings for the demo data seeder.
type SeedConfig struct {
	// Contacts is the number of random contacts created for the demo owner.
	Contacts int `mapstructure:"contacts"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with PHONEBOOK_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("PHONEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file configuration
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/phonebook")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "phonebook")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "phonebook")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	// SQLite defaults
	v.SetDefault("database.path", "./data/phonebook.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.cache_size", -2000)
	v.SetDefault("database.synchronous_mode", "NORMAL")

	// Redis defaults
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	// Lock defaults
	v.SetDefault("lock.backend", LockMemory)
	v.SetDefault("lock.ttl", 10*time.Second)
	v.SetDefault("lock.retries", 20)
	v.SetDefault("lock.retry_delay", 50*time.Millisecond)

	// Auth defaults
	v.SetDefault("auth.bcrypt_cost", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile", "")

	// Seed defaults
	v.SetDefault("seed.contacts", 100)
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	// Validate database configuration
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			if c.Database.Host == "" {
				return fmt.Errorf("database.host is required for postgres driver")
			}
			if c.Database.User == "" {
				return fmt.Errorf("database.user is required for postgres driver")
			}
			if c.Database.Database == "" {
				return fmt.Errorf("database.database is required for postgres driver")
			}
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be 'sqlite', 'postgres' or 'memory'")
	}

	// Validate lock configuration
	switch c.Lock.Backend {
	case LockMemory, LockNone:
	case LockRedis:
		if c.Redis.URL == "" && c.Redis.Host == "" {
			return fmt.Errorf("redis.url or redis.host is required for redis lock backend")
		}
	default:
		return fmt.Errorf("lock.backend must be 'memory', 'redis' or 'none'")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive")
	}
	if c.Lock.Retries < 0 {
		return fmt.Errorf("lock.retries must not be negative")
	}

	// Validate auth configuration
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}

	// Validate logging configuration
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	if c.Seed.Contacts < 0 {
		return fmt.Errorf("seed.contacts must not be negative")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
