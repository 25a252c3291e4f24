package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/migrations"
	"whatsrelay/internal/security"
)

// Database is the SQLite backed store for accounts, rules, mappings and groups
type Database struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database file without touching the schema
func Open(dbPath string) (*Database, error) {
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d&_journal_mode=WAL",
		dbPath, constants.DefaultDatabaseBusyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, now: time.Now}, nil
}

// New opens the database and applies pending migrations
func New(dbPath string) (*Database, error) {
	d, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(d.db); err != nil {
		if closeErr := d.db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// DB exposes the connection pool for health checks and migrations
func (d *Database) DB() *sql.DB {
	return d.db
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) timestamp() time.Time {
	return d.now().UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
