package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"groupsync/internal/model"
)

// Change log operations.
//
// The ledger keeps one row per (kind, item) for the item's whole
// lifetime. Stamping a timestamp touches only that column; the others
// keep whatever value they had, including zero.

func (s *SQLiteDatabase) MarkCreated(userID int64, kind int, itemID, at int64) error {
	return touchChange(s.db, userID, kind, itemID, "created", at)
}

func (s *SQLiteDatabase) MarkUpdated(userID int64, kind int, itemID, at int64) error {
	return touchChange(s.db, userID, kind, itemID, "updated", at)
}

func (s *SQLiteDatabase) MarkDeleted(userID int64, kind int, itemID, at int64) error {
	return touchChange(s.db, userID, kind, itemID, "deleted", at)
}

func (s *SQLiteDatabase) ListChangeEntries(userID int64, kind int) ([]model.ChangeEntry, error) {
	var entries []model.ChangeEntry
	err := s.db.Select(&entries,
		`SELECT * FROM changelog WHERE user_id = ? AND item_kind = ?`, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("listing change entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteDatabase) FindChangeEntry(kind int, itemID int64) (*model.ChangeEntry, error) {
	var entry model.ChangeEntry
	err := s.db.Get(&entry,
		`SELECT * FROM changelog WHERE item_kind = ? AND item_id = ?`, kind, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding change entry: %w", err)
	}
	return &entry, nil
}

// touchChange upserts one timestamp column of the ledger row. column is
// always one of the fixed names "created", "updated" or "deleted"; it is
// never user input.
func touchChange(e sqlx.Execer, userID int64, kind int, itemID int64, column string, at int64) error {
	query := fmt.Sprintf(`
		INSERT INTO changelog (user_id, item_kind, item_id, %[1]s)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (item_kind, item_id) DO UPDATE SET %[1]s = excluded.%[1]s`,
		column)
	if _, err := e.Exec(query, userID, kind, itemID, at); err != nil {
		return fmt.Errorf("stamping change %s: %w", column, err)
	}
	return nil
}
