package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/metric"

	"pomegranate/pkg/logger"
)

// Config holds connection pool configuration.
type Config struct {
	Driver           string
	DSN              string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	StatementTimeout time.Duration
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig(driver, dsn string) Config {
	return Config{
		Driver:           driver,
		DSN:              dsn,
		MaxOpenConns:     25,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnMaxIdleTime:  30 * time.Minute,
		StatementTimeout: 30 * time.Second,
	}
}

// DB wraps sql.DB with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect

	statsReg metric.Registration
}

// Open connects through an otelsql-instrumented driver, applies pool limits
// and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := d.PrepareDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := otelsql.Open(d.Driver, dsn,
		otelsql.WithAttributes(d.System),
		otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.Name == SQLite.Name {
		// One writer at a time; a second connection would only wait on locks.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	reg, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(d.System))
	if err != nil {
		logger.Warn(ctx, "db stats metrics unavailable", "error", err)
	}

	return &DB{DB: db, Dialect: d, statsReg: reg}, nil
}

// Wrap adapts an existing *sql.DB (tests, sqlmock).
func Wrap(db *sql.DB, d Dialect) *DB {
	return &DB{DB: db, Dialect: d}
}

// Close unregisters metrics and closes all connections.
func (db *DB) Close() error {
	if db.statsReg != nil {
		_ = db.statsReg.Unregister()
	}
	return db.DB.Close()
}

// LogPoolStats logs pool statistics.
func (db *DB) LogPoolStats(ctx context.Context) {
	s := db.Stats()
	logger.Info(ctx, "database pool stats",
		"open", s.OpenConnections,
		"in_use", s.InUse,
		"idle", s.Idle,
		"max", s.MaxOpenConnections,
		"wait_count", s.WaitCount,
		"wait_duration", s.WaitDuration,
	)
}
