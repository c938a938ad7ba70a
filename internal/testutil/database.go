package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"groupsync/internal/database"
)

// NewTestDatabase creates an in-memory SQLite sync store with the full
// schema applied. The returned sqlx handle shares the connection with the
// store so tests can seed rows directly. The database is closed when the
// test completes.
func NewTestDatabase(t *testing.T) (*database.SQLiteDatabase, *sqlx.DB) {
	t.Helper()

	conn, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(conn, ":memory:")
	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db, conn
}
