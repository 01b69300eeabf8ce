package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pdv/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// Option customises Connect
type Option func(*connectOptions)

type connectOptions struct {
	dialector func() gorm.Dialector
	logger    gormlogger.Interface
	plugins   []gorm.Plugin
}

// WithGormLogger sets the GORM logger
func WithGormLogger(l gormlogger.Interface) Option {
	return func(o *connectOptions) { o.logger = l }
}

// WithPlugins registers GORM plugins (e.g. tracing) after the connection is open
func WithPlugins(plugins ...gorm.Plugin) Option {
	return func(o *connectOptions) { o.plugins = append(o.plugins, plugins...) }
}

// WithDialector replaces the postgres dialector, used by tests
func WithDialector(fn func() gorm.Dialector) Option {
	return func(o *connectOptions) { o.dialector = fn }
}

// Connect opens the database and pings it, retrying with exponential backoff
// until cfg.RetryMaxElapsed has passed or ctx is done.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger, opts ...Option) (*Database, error) {
	o := connectOptions{
		dialector: func() gorm.Dialector { return postgres.Open(cfg.DSN()) },
		logger:    gormlogger.Default.LogMode(gormlogger.Silent),
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.RetryInitial
	b.MaxInterval = cfg.RetryMax
	b.MaxElapsedTime = cfg.RetryMaxElapsed

	attempt := 0
	var db *gorm.DB
	open := func() error {
		attempt++
		conn, err := gorm.Open(o.dialector(), &gorm.Config{
			Logger:                 o.logger,
			SkipDefaultTransaction: true,
			TranslateError:         true,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to get underlying sql.DB: %w", err))
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}
		db = conn
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("Database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(open, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}

	sqlDB, _ := db.DB()
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	for _, p := range o.plugins {
		if err := db.Use(p); err != nil {
			return nil, fmt.Errorf("failed to register gorm plugin %s: %w", p.Name(), err)
		}
	}

	log.Info("Database connected", zap.Int("attempts", attempt), zap.String("host", cfg.Host))
	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

// Stats returns connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	s := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration,
	}, nil
}
