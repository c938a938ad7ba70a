package database

import (
	"fmt"

	"groupsync/internal/config"
)

// NewDatabaseFromConfig creates the sync store from the database config
// section.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return NewSQLiteDatabase(cfg.Path)
}
