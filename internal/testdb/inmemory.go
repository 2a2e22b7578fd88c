// Package testdb opens throwaway databases for package tests.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kuitang/yanote/internal/db"
)

// TestKeyHex is the SQLCipher key used by every in-memory test database.
var TestKeyHex = strings.Repeat("5a", 32)

var memoryDBCounter atomic.Uint64

// NewInMemory creates an encrypted, migrated in-memory database. Each call
// gets its own database.
func NewInMemory() (*db.DB, error) {
	name := fmt.Sprintf("yanote-test-%d", memoryDBCounter.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", name, TestKeyHex)

	sqlDB, err := sql.Open(db.SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	// One connection serialises access and keeps the shared-cache database
	// alive for the lifetime of the handle.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify in-memory database: %w", err)
	}

	if err := applyFastSQLitePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply fast SQLite pragmas: %w", err)
	}

	wrapped := db.New(sqlDB)
	if err := wrapped.Migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate in-memory database: %w", err)
	}
	return wrapped, nil
}

// TB is the subset of testing.TB and *rapid.T used by the Must helpers.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// MustInMemory is NewInMemory for tests; the caller closes the database.
func MustInMemory(t TB) *db.DB {
	t.Helper()
	database, err := NewInMemory()
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	return database
}

// InsertUser writes a bare user row so note tests can satisfy the author
// foreign key without going through password hashing.
func InsertUser(t TB, database *db.DB, id, username string) {
	t.Helper()
	query, args, err := db.Builder.
		Insert("users").
		Columns("id", "username", "password_hash", "created_at").
		Values(id, username, "!", time.Now().UTC().Unix()).
		ToSql()
	if err != nil {
		t.Fatalf("build user insert: %v", err)
	}
	if _, err := database.X().ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("insert user %q: %v", username, err)
	}
}

func applyFastSQLitePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA secure_delete=OFF",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
