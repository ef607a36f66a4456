package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/viper"

	"medreport-backend/internal/shared/telemetry"
)

const defaultApplicationName = "medreport-backend"

// Options controls the connection pool and per-session server settings.
type Options struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	StatementTimeout time.Duration
	ApplicationName  string
}

// openDB builds the pool from a parsed config; tests replace it.
var openDB = func(cfg *pgx.ConnConfig) *sql.DB {
	return stdlib.OpenDB(*cfg)
}

// DefaultServerOptions returns defaults for the API process.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxIdleTime:  2 * time.Minute,
		ConnMaxLifetime:  time.Hour,
		PingTimeout:      5 * time.Second,
		StatementTimeout: 30 * time.Second,
		ApplicationName:  defaultApplicationName,
	}
}

// DefaultMigrateOptions returns defaults for one-shot migration runs. DDL
// gets no statement timeout.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     10 * time.Second,
		ApplicationName: defaultApplicationName + "-migrate",
	}
}

// OptionsFromEnv overrides defaults with DB_* environment variables.
func OptionsFromEnv(defaults Options) Options {
	v := viper.New()
	v.SetEnvPrefix("DB")
	v.AutomaticEnv()

	opts := defaults
	if v.IsSet("MAX_OPEN_CONNS") {
		opts.MaxOpenConns = v.GetInt("MAX_OPEN_CONNS")
	}
	if v.IsSet("MAX_IDLE_CONNS") {
		opts.MaxIdleConns = v.GetInt("MAX_IDLE_CONNS")
	}
	if v.IsSet("CONN_MAX_LIFETIME") {
		opts.ConnMaxLifetime = v.GetDuration("CONN_MAX_LIFETIME")
	}
	if v.IsSet("CONN_MAX_IDLE_TIME") {
		opts.ConnMaxIdleTime = v.GetDuration("CONN_MAX_IDLE_TIME")
	}
	if v.IsSet("PING_TIMEOUT") {
		opts.PingTimeout = v.GetDuration("PING_TIMEOUT")
	}
	if v.IsSet("STATEMENT_TIMEOUT") {
		opts.StatementTimeout = v.GetDuration("STATEMENT_TIMEOUT")
	}
	return opts
}

// Connect parses databaseURL, opens a pool and pings it.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	applyRuntimeParams(cfg, opts)

	db := openDB(cfg)
	applyPoolOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", cfg.Host, err)
	}

	telemetry.Info("db.connected", map[string]any{
		"host":     cfg.Host,
		"database": cfg.Database,
		"max_open": db.Stats().MaxOpenConnections,
	})
	return db, nil
}

// applyRuntimeParams fills server settings the URL did not set itself.
func applyRuntimeParams(cfg *pgx.ConnConfig, opts Options) {
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.RuntimeParams["application_name"]; !ok && opts.ApplicationName != "" {
		cfg.RuntimeParams["application_name"] = opts.ApplicationName
	}
	if _, ok := cfg.RuntimeParams["statement_timeout"]; !ok && opts.StatementTimeout > 0 {
		cfg.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}
}

func applyPoolOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 || opts.MaxIdleConns > opts.MaxOpenConns {
		opts.MaxIdleConns = opts.MaxOpenConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}
