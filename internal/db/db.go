// Package db opens the warehouse connection: Redshift over the Postgres wire
// protocol, or a local SQLite file for development.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/ohjang121/project-three-dwh/internal/schema"
)

// DefaultConnectTimeout bounds the initial connection attempt.
const DefaultConnectTimeout = 30 * time.Second

// ConnConfig holds the warehouse endpoint and credentials.
type ConnConfig struct {
	Host           string
	Port           int
	DBName         string
	User           string
	Password       string
	SSLMode        string        // defaults to "prefer"
	ConnectTimeout time.Duration // defaults to DefaultConnectTimeout
}

// DSN renders the config as a libpq keyword/value connection string.
func (c ConnConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	pairs := []string{
		"host=" + dsnValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"dbname=" + dsnValue(c.DBName),
		"user=" + dsnValue(c.User),
		"password=" + dsnValue(c.Password),
		"sslmode=" + dsnValue(sslMode),
		"connect_timeout=" + strconv.Itoa(int(timeout.Seconds())),
	}
	return strings.Join(pairs, " ")
}

// dsnValue quotes a keyword/value DSN value.
func dsnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// DB wraps the single warehouse connection used by a run.
type DB struct {
	sql     *sql.DB
	dialect schema.Dialect
}

// New wraps an already opened database handle.
func New(sqlDB *sql.DB, dialect schema.Dialect) *DB {
	return &DB{sql: sqlDB, dialect: dialect}
}

// Open connects to Redshift. Statements are sent as plain SQL text over the
// simple query protocol; nothing is prepared server side.
func Open(ctx context.Context, cfg ConnConfig) (*DB, error) {
	connConfig, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	sqlDB := stdlib.OpenDB(*connConfig)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	// Verify connection
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging warehouse %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return New(sqlDB, schema.Redshift), nil
}

// OpenLocal opens or creates a SQLite warehouse at path with foreign keys enforced.
func OpenLocal(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating warehouse dir: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening local warehouse: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging local warehouse: %w", err)
	}

	return New(sqlDB, schema.SQLite), nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

// SQL returns the underlying handle for running pipeline statements.
func (db *DB) SQL() *sql.DB {
	return db.sql
}

// Dialect reports which engine the connection talks to.
func (db *DB) Dialect() schema.Dialect {
	return db.dialect
}
