// Package bootstrap assembles the phonebook from configuration: logger,
// store, lock backend, metrics and the action facade.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/phonebook/internal/config"
	"github.com/prn-tf/phonebook/internal/lock"
	"github.com/prn-tf/phonebook/internal/metrics"
	"github.com/prn-tf/phonebook/internal/pkg/crypto"
	"github.com/prn-tf/phonebook/internal/repository"
	"github.com/prn-tf/phonebook/internal/repository/memory"
	"github.com/prn-tf/phonebook/internal/repository/postgres"
	redisrepo "github.com/prn-tf/phonebook/internal/repository/redis"
	"github.com/prn-tf/phonebook/internal/repository/sqlite"
	"github.com/prn-tf/phonebook/internal/service"
)

// ErrPendingMigrations indicates the PostgreSQL schema is behind the binary.
var ErrPendingMigrations = errors.New("database has pending migrations")

// App holds the wired components of one phonebook process.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Owners    repository.OwnerRepository
	Contacts  repository.ContactRepository
	Locker    lock.Locker
	Metrics   *metrics.Metrics
	Phonebook *service.PhonebookService

	closers []func() error
}

// NewLogger builds the process logger. Output is "stdout", "stderr" or a
// file path; the returned closer releases the file, if any.
func NewLogger(cfg config.LoggingConfig) (zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	closer := func() error { return nil }
	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f.Close
	}

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Open wires the application. Embedded stores are migrated on open; a
// PostgreSQL database must already be migrated.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	crypto.SetBcryptCost(cfg.Auth.BcryptCost)

	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openLocker(); err != nil {
		app.Close()
		return nil, err
	}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.New()
	}

	app.Phonebook = service.NewPhonebookService(
		app.Owners,
		app.Contacts,
		app.Locker,
		app.Metrics,
		service.PhonebookConfig{
			LockTTL:        cfg.Lock.TTL,
			LockRetries:    cfg.Lock.Retries,
			LockRetryDelay: cfg.Lock.RetryDelay,
		},
		logger,
	)

	logger.Debug().
		Str("driver", cfg.Database.Driver).
		Str("lock_backend", cfg.Lock.Backend).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("phonebook ready")
	return app, nil
}

// Close writes the metrics textfile, if configured, and releases every
// connection in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	if a.Metrics != nil && a.Config.Metrics.Textfile != "" {
		if err := a.Metrics.WriteTextfile(a.Config.Metrics.Textfile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Database

	switch cfg.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		a.Owners, a.Contacts = store.Owners(), store.Contacts()
		a.Logger.Warn().Msg("using in-memory store, data is lost on exit")

	case config.DriverSQLite:
		db, err := sqlite.NewDB(ctx, SQLiteConfig(cfg), a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
		a.Owners, a.Contacts = sqlite.NewOwnerRepository(db), sqlite.NewContactRepository(db)

	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		pending, err := db.Pending(ctx)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return fmt.Errorf("%w: %v (run phonebook-migrate up)", ErrPendingMigrations, pending)
		}
		a.Owners, a.Contacts = postgres.NewOwnerRepository(db), postgres.NewContactRepository(db)

	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	return nil
}

func (a *App) openLocker() error {
	switch a.Config.Lock.Backend {
	case config.LockMemory:
		a.Locker = lock.NewMemoryLocker()
	case config.LockNone:
		a.Locker = lock.NewNoOpLocker()
	case config.LockRedis:
		client, err := redisrepo.NewClient(a.Config.Redis, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.Locker = lock.NewRedisLocker(redisrepo.NewDistributedLock(client))
	default:
		return fmt.Errorf("unsupported lock backend: %s", a.Config.Lock.Backend)
	}
	return nil
}

// SQLiteConfig maps the database section onto the SQLite adapter settings.
func SQLiteConfig(cfg config.DatabaseConfig) sqlite.Config {
	out := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		out.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		out.BusyTimeout = cfg.BusyTimeout
	}
	if cfg.CacheSize != 0 {
		out.CacheSize = cfg.CacheSize
	}
	if cfg.SynchronousMode != "" {
		out.SynchronousMode = cfg.SynchronousMode
	}
	return out
}

// Migrator is implemented by the SQL stores.
type Migrator interface {
	Version(ctx context.Context) (int, error)
	Pending(ctx context.Context) ([]int, error)
	Migrate(ctx context.Context) error
}

// OpenMigrator connects to the configured SQL database without migrating it.
func OpenMigrator(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (Migrator, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.NewDB(ctx, SQLiteConfig(cfg), logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("driver %q has no schema to migrate", cfg.Driver)
	}
}
