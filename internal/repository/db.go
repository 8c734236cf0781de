package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/pdf-text-extractor/db"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
)

const table = "extraction_results"

type Config struct {
	DSN              string // SQLite file path (or ":memory:") or postgres:// URL
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	BusyTimeout      time.Duration
}

// ConfigFrom maps the application database settings onto a store Config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
		BusyTimeout:      c.BusyTimeout,
	}
}

// DB is an open store: a database/sql handle plus the ent dialect used to build queries.
type DB struct {
	SQL     *sql.DB
	Dialect string
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// IsPostgresDSN reports whether dsn points at PostgreSQL rather than an SQLite file.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects, applies the schema and proves the store is writable.
// Any failure here is fatal to a run, so it happens before workers start.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, common.NewStoreError("open store", fmt.Errorf("dsn is required"))
	}

	var (
		d   *DB
		err error
	)
	if IsPostgresDSN(cfg.DSN) {
		d, err = openPostgres(ctx, cfg, logger)
	} else {
		d, err = openSQLite(ctx, cfg, logger)
	}
	if err != nil {
		return nil, err
	}

	if err := d.applySchema(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.probeWritable(ctx); err != nil {
		d.Close()
		return nil, err
	}
	logger.Info("store ready", "dialect", d.Dialect)
	return d, nil
}

// openPostgres creates a pgx pool and wraps it as *sql.DB.
func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "pgx")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, common.NewStoreError("parse dsn", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "pdf-text-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dialCtx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewStoreError("connect", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		logger.Error("failed to ping database", "error", err)
		return nil, common.NewStoreError("ping", err)
	}

	logger.Info("successfully connected to database")
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: dialect.Postgres, pool: pool, logger: logger}, nil
}

// openSQLite opens the file with WAL and a busy timeout so concurrent readers
// never block the single writer.
func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	path := cfg.DSN
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, common.NewStoreError("create store directory", err)
			}
		}
	}
	logger.Info("opening database", "driver", "sqlite", "path", path)

	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewStoreError("open", err)
	}
	if memory {
		// every connection to :memory: is a separate database
		sqldb.SetMaxOpenConns(1)
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 10 * time.Second
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqldb.ExecContext(ctx, p); err != nil {
			sqldb.Close()
			logger.Error("failed to apply pragma", "pragma", p, "error", err)
			return nil, common.NewStoreError(p, err)
		}
	}
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, common.NewStoreError("ping", err)
	}
	return &DB{SQL: sqldb, Dialect: dialect.SQLite, logger: logger}, nil
}

func (d *DB) applySchema(ctx context.Context) error {
	ddl := db.SQLite
	if d.Dialect == dialect.Postgres {
		ddl = db.Postgres
	}
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			d.logger.Error("failed to apply schema", "error", err)
			return common.NewStoreError("apply schema", err)
		}
	}
	return nil
}

// probeWritable inserts a row inside a transaction and rolls it back.
// A read-only file or a role without INSERT fails here instead of mid-run.
func (d *DB) probeWritable(ctx context.Context) error {
	tx, err := d.SQL.BeginTx(ctx, nil)
	if err != nil {
		return common.NewStoreError("begin write probe", err)
	}
	defer tx.Rollback()

	query, args := d.builder().Insert(table).
		Columns("file_path", "extraction_method", "success").
		Values("__write_probe__", "error", false).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		d.logger.Error("store is not writable", "error", err)
		return common.NewStoreError("store is not writable", err)
	}
	return nil
}

func (d *DB) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.Dialect)
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	if d == nil {
		return
	}
	d.logger.Info("closing database connections")
	if err := d.SQL.Close(); err != nil {
		d.logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.logger.Info("database connections closed")
}

// HealthCheck pings the store.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("pinging database")
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	if err := d.SQL.PingContext(ctx); err != nil {
		return common.NewStoreError("ping", err)
	}
	d.logger.Debug("database ping successful")
	return nil
}
