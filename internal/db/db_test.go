package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/yanote/internal/db"
	"github.com/kuitang/yanote/internal/testdb"
)

func TestMigrate_AppliesEachFileOnce(t *testing.T) {
	database := testdb.MustInMemory(t)
	defer database.Close()

	names, err := db.AppliedMigrations(database.SQL())
	require.NoError(t, err)
	require.Equal(t, []string{"0001_users_sessions.sql", "0002_notes.sql"}, names)

	// Re-running is a no-op.
	require.NoError(t, database.Migrate())
	again, err := db.AppliedMigrations(database.SQL())
	require.NoError(t, err)
	require.Equal(t, names, again)
}

func TestApplyMigrations_SkipsAppliedFiles(t *testing.T) {
	database := testdb.MustInMemory(t)
	defer database.Close()

	fsys := fstest.MapFS{
		"m/0003_extra.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE extra (id INTEGER);\n-- +migrate Down\nDROP TABLE extra;\n")},
		"m/README.md":      {Data: []byte("not a migration")},
	}
	require.NoError(t, db.ApplyMigrations(database.SQL(), fsys, "m"))
	// A second run would fail with "table extra already exists" if the file
	// were executed again.
	require.NoError(t, db.ApplyMigrations(database.SQL(), fsys, "m"))

	names, err := db.AppliedMigrations(database.SQL())
	require.NoError(t, err)
	require.Contains(t, names, "0003_extra.sql")
	require.NotContains(t, names, "README.md")
}

func testExtractUpMigration_Properties(t *rapid.T) {
	up := rapid.StringMatching(`CREATE TABLE [a-z]{1,10} \(id INTEGER\);`).Draw(t, "up")
	down := rapid.StringMatching(`DROP TABLE [a-z]{1,10};`).Draw(t, "down")

	content := "-- +migrate Up\n" + up + "\n-- +migrate Down\n" + down + "\n"
	got := strings.TrimSpace(db.ExtractUpMigration(content))
	if got != up {
		t.Fatalf("ExtractUpMigration mismatch: got=%q want=%q", got, up)
	}

	if plain := db.ExtractUpMigration(up); plain != up {
		t.Fatalf("ExtractUpMigration without markers mismatch: got=%q want=%q", plain, up)
	}
}

func TestExtractUpMigration_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testExtractUpMigration_Properties)
}

func TestForeignKeys_Enforced(t *testing.T) {
	database := testdb.MustInMemory(t)
	defer database.Close()

	_, err := database.X().Exec(
		"INSERT INTO notes (id, title, text, slug, author_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		"n1", "title", "text", "slug", "missing-user", 1, 1,
	)
	require.Error(t, err, "insert with unknown author must violate the foreign key")
}

func TestIsUniqueViolation(t *testing.T) {
	database := testdb.MustInMemory(t)
	defer database.Close()

	testdb.InsertUser(t, database, "u1", "alice")
	_, err := database.X().Exec(
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		"u2", "alice", "!", time.Now().Unix(),
	)
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err), "duplicate username should be a unique violation: %v", err)

	require.False(t, db.IsUniqueViolation(nil))
	require.False(t, db.IsUniqueViolation(errors.New("disk I/O error")))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	database := testdb.MustInMemory(t)
	defer database.Close()

	boom := errors.New("boom")
	err := database.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1', 'bob', '!', 0)"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, database.X().Get(&count, "SELECT COUNT(*) FROM users"))
	require.Zero(t, count)
}

func TestOpen_EncryptedFileRejectsWrongKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "yanote.db")
	key := strings.Repeat("ab", 32)

	database, err := db.Open(path, key)
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	testdb.InsertUser(t, database, "u1", "carol")
	require.NoError(t, database.Close())

	reopened, err := db.Open(path, key)
	require.NoError(t, err)
	var count int
	require.NoError(t, reopened.X().Get(&count, "SELECT COUNT(*) FROM users"))
	require.Equal(t, 1, count)
	require.NoError(t, reopened.Close())

	_, err = db.Open(path, strings.Repeat("cd", 32))
	require.Error(t, err, "opening with the wrong key must fail")

	_, err = db.Open(path, "not-hex")
	require.Error(t, err)
}
