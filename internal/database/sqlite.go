// Package database implements the sync store on SQLite. All queries go
// through sqlx; multi-statement mutations run inside a transaction so a
// crash never leaves quota accounting or the change log half-applied.
package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"groupsync/internal/database/migrations"
	"groupsync/internal/engine"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the engine.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteDatabase opens a SQLite sync store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an already-open connection. Used by tests
// that seed rows through the same handle.
func NewSQLiteDatabaseFromDB(db *sqlx.DB, path string) *SQLiteDatabase {
	return &SQLiteDatabase{db: db, path: path}
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the store relies on. Exported for tools and tests that need a
// properly configured connection.
func OpenConnection(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite ships with foreign keys off for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// Several hosts may poke the same store; wait for locks instead of
	// failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// An in-memory database exists per connection; keep the pool at one
	// so every query sees the same store.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckStatus(s.db.DB)
}

// MigrateUp brings the schema to the latest version.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.Up(s.db.DB)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements engine.Database.
var _ engine.Database = (*SQLiteDatabase)(nil)
