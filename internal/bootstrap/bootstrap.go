// Package bootstrap wires configuration to the concrete stores, caches and
// buses shared by the api and worker processes.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/attendance-hub/config"
	"github.com/academy-hub/attendance-hub/internal/application/command"
	"github.com/academy-hub/attendance-hub/internal/application/query"
	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/auth"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/messaging"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/metrics"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/persistence/postgres"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/persistence/redis"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/scheduler/jobs"
	"github.com/academy-hub/attendance-hub/internal/interface/http/handlers"
	"github.com/academy-hub/attendance-hub/pkg/circuitbreaker"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTAINER
// ══════════════════════════════════════════════════════════════════════════════

// Container holds the process-wide collaborators.
type Container struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Collectors
	Bus     *messaging.InMemoryEventBus
	Health  *handlers.CompositeHealthChecker
	Tokens  *auth.Issuer

	// DB is nil when running on the in-memory ledger.
	DB *postgres.Connection
	// Cache is nil when Redis is disabled.
	Cache *redis.Cache

	Ledger    attendance.Ledger
	Schedules schedule.Directory
	People    directory.Directory

	stats  *redis.StatsCache
	locker *redis.Locker

	closers []func()
}

// NewLogger builds the process logger from the observability settings.
func NewLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Console = cfg.Observability.LogFormat == "console"
	return logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
}

// New connects to the configured backends. Postgres failures are fatal;
// Redis failures fall back to running without a cache.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(cfg.Observability.RuntimeMetrics),
		Health:  handlers.NewCompositeHealthChecker(cfg.App.Version),
	}

	if err := c.openStores(ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.openCache(ctx)
	c.openTokens()

	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.AsyncMode = true
	busCfg.Logger = log
	c.Bus = messaging.NewInMemoryEventBus(busCfg)
	c.closers = append(c.closers, func() { _ = c.Bus.Close() })

	if err := c.Metrics.Subscribe(c.Bus); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe metrics: %w", err)
	}
	if c.stats != nil {
		if err := c.Bus.SubscribeAll(c.stats.OnEvent); err != nil {
			c.Close()
			return nil, fmt.Errorf("subscribe stats cache: %w", err)
		}
	}
	return c, nil
}

func (c *Container) openStores(ctx context.Context) error {
	cfg := c.Config
	if cfg.Database.URL == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("bootstrap: DATABASE_URL is required in production")
		}
		c.Logger.Warn("DATABASE_URL not set, using the in-memory ledger")
		c.Ledger = memory.NewLedger()
		c.Schedules = memory.NewSchedule()
		c.People = memory.NewPeople()
		return nil
	}

	dbCfg := postgres.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	dbCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	dbCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	c.Logger.Info("connecting to database")
	err := retry.Connect(ctx, func(ctx context.Context) error {
		conn, err := postgres.NewConnection(ctx, dbCfg)
		if err != nil {
			return err
		}
		c.DB = conn
		return nil
	}, c.onRetry("postgres"))
	if err != nil {
		return fmt.Errorf("bootstrap: connect to database: %w", err)
	}
	c.closers = append(c.closers, c.DB.Close)
	c.Health.AddCheck("database", handlers.NewPingCheck(c.DB))

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(c.DB).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap: migrate: %w", err)
		}
		c.Logger.Info("database schema is up to date", logger.Int("applied", applied))
	}

	c.Ledger = postgres.NewLedgerRepository(c.DB)
	c.Schedules = postgres.NewScheduleRepository(c.DB)
	c.People = postgres.NewPeopleRepository(c.DB)
	return nil
}

func (c *Container) openCache(ctx context.Context) {
	cfg := c.Config.Redis
	if cfg.Disabled {
		c.Logger.Info("redis disabled, stats are computed on every request")
		return
	}

	rcfg := redis.DefaultConfig()
	rcfg.URL = cfg.URL
	rcfg.Host = cfg.Host
	rcfg.Port = cfg.Port
	rcfg.Password = cfg.Password
	rcfg.DB = cfg.DB
	rcfg.PoolSize = cfg.PoolSize
	rcfg.MinIdleConns = cfg.MinIdleConns
	rcfg.DialTimeout = cfg.DialTimeout
	rcfg.ReadTimeout = cfg.ReadTimeout
	rcfg.WriteTimeout = cfg.WriteTimeout

	err := retry.Connect(ctx, func(ctx context.Context) error {
		cache, err := redis.NewCache(ctx, rcfg)
		if err != nil {
			return err
		}
		c.Cache = cache
		return nil
	}, c.onRetry("redis"))
	if err != nil {
		c.Logger.Warn("failed to connect to redis, caching disabled", logger.Err(err))
		return
	}

	c.closers = append(c.closers, func() { _ = c.Cache.Close() })
	c.Health.AddOptionalCheck("cache", handlers.NewPingCheck(c.Cache))
	breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		c.Logger.Warn("circuit state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	c.stats = redis.NewStatsCache(c.Cache, c.Config.Attendance.StatsCacheTTL, breaker)
	c.locker = redis.NewLocker(c.Cache, c.Config.Scheduler.LockTTL, c.Logger)
}

func (c *Container) openTokens() {
	secret := c.Config.Auth.JWTSecret
	if secret == "" {
		// Only reachable with AUTH_DISABLED; tokens then live for one process.
		secret = uuid.NewString()
	}
	c.Tokens = auth.NewIssuer(secret, c.Config.Auth.TokenTTL, nil)
}

func (c *Container) onRetry(backend string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		c.Logger.Warn("connection attempt failed",
			logger.String("backend", backend),
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", delay),
			logger.Err(err),
		)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCY SETS
// ══════════════════════════════════════════════════════════════════════════════

// CommandDeps returns the collaborators of the command handlers.
func (c *Container) CommandDeps() command.Deps {
	return command.Deps{
		Ledger:    c.Ledger,
		Schedules: c.Schedules,
		People:    c.People,
		Publisher: c.Bus,
		Policy:    timepolicy.NewPolicy(c.Config.Attendance.Grace),
		Location:  c.Config.App.Location,
		Logger:    c.Logger.With(logger.Component("command")),
	}
}

// QueryDeps returns the collaborators of the query handlers.
func (c *Container) QueryDeps() query.Deps {
	return query.Deps{
		Ledger:    c.Ledger,
		Schedules: c.Schedules,
		People:    c.People,
		Location:  c.Config.App.Location,
		Logger:    c.Logger.With(logger.Component("query")),
	}
}

// StatsCache returns the daily stats cache, or nil without Redis.
func (c *Container) StatsCache() query.StatsCache {
	if c.stats == nil {
		return nil
	}
	return c.stats
}

// JobLocker returns the distributed job lock, or nil without Redis.
func (c *Container) JobLocker() jobs.Locker {
	if c.locker == nil {
		return nil
	}
	return c.locker
}

// Close releases every backend in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Hostname identifies this process in logs.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
