// Package db owns the SQLite connection, the schema, and the query helpers
// shared by the note and identity stores.
package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/kuitang/yanote/internal/obs"
)

const (
	// MaxOpenConns is the maximum number of open connections.
	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 10

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2
)

// Builder is the squirrel statement builder for SQLite placeholders.
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// DB wraps the application database.
type DB struct {
	x *sqlx.DB
}

// New wraps an existing sql.DB. Used by tests with in-memory or mocked
// connections.
func New(sqlDB *sql.DB) *DB {
	return &DB{x: sqlx.NewDb(sqlDB, SQLiteDriverName)}
}

// Open opens the database file at path, creating its directory if needed.
// A non-empty keyHex (64 hex characters) opens the file with SQLCipher page
// encryption; the key is verified before Open returns.
func Open(path, keyHex string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := path
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("database key must be 32 hex-encoded bytes")
		}
		// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
		dsn = fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, keyHex)
	}
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	// Reading the schema page fails with "file is not a database" on a wrong key.
	var tables int
	if err := sqlDB.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&tables); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to read database (wrong DATABASE_KEY?): %w", err)
	}

	obs.Pkg("db").Info("database_opened", "path", path, "encrypted", keyHex != "", "sqlite_version", sqliteVersion)
	return New(sqlDB), nil
}

// X returns the sqlx handle.
func (d *DB) X() *sqlx.DB {
	return d.x
}

// SQL returns the underlying sql.DB for direct access when needed.
func (d *DB) SQL() *sql.DB {
	return d.x.DB
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate() error {
	return ApplyMigrations(d.SQL(), Migrations, MigrationsRoot)
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.x.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			obs.From(ctx).Warn("tx_rollback_failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d == nil || d.x == nil {
		return nil
	}
	return d.x.Close()
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func sqliteCommonParams() string {
	// Production-safe defaults: WAL + NORMAL provides good throughput while preserving safety.
	// Transactions begin IMMEDIATE so a writer waits out busy_timeout for the
	// write lock instead of failing when it upgrades from a read.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
