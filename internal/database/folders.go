package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"groupsync/internal/model"
)

// Mail folder operations

func (s *SQLiteDatabase) ListMailFolders(userID int64) ([]model.MailFolder, error) {
	var folders []model.MailFolder
	err := s.db.Select(&folders,
		`SELECT * FROM folders WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing mail folders: %w", err)
	}
	return folders, nil
}

func (s *SQLiteDatabase) FindMailFolder(userID, folderID int64) (*model.MailFolder, error) {
	var folder model.MailFolder
	err := s.db.Get(&folder,
		`SELECT * FROM folders WHERE user_id = ? AND id = ?`, userID, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding mail folder: %w", err)
	}
	return &folder, nil
}

func (s *SQLiteDatabase) CreateMailFolder(userID int64, title string, parent int64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO folders (user_id, title, parent, subscribed, smart) VALUES (?, ?, ?, 1, 0)`,
		userID, title, parent)
	if err != nil {
		return 0, fmt.Errorf("creating mail folder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("creating mail folder: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) RenameMailFolder(userID, folderID int64, title string) error {
	_, err := s.db.Exec(
		`UPDATE folders SET title = ? WHERE user_id = ? AND id = ?`,
		title, userID, folderID)
	if err != nil {
		return fmt.Errorf("renaming mail folder: %w", err)
	}
	return nil
}

// DeleteMailFolderTree removes a folder and all of its descendants in a
// single transaction. For every folder in the subtree, children first:
// filter rules pointing at the folder are dropped, its mails are moved
// to the trash with trashStamp recorded, and the folder row is deleted.
// It returns the number of folders removed.
func (s *SQLiteDatabase) DeleteMailFolderTree(userID, folderID int64, trashStamp int64) (int, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	removed, err := deleteFolderRecursive(tx, userID, folderID, trashStamp)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return removed, nil
}

func deleteFolderRecursive(tx *sqlx.Tx, userID, folderID, trashStamp int64) (int, error) {
	var childIDs []int64
	err := tx.Select(&childIDs,
		`SELECT id FROM folders WHERE user_id = ? AND parent = ?`, userID, folderID)
	if err != nil {
		return 0, fmt.Errorf("finding child folders: %w", err)
	}

	removed := 0
	for _, childID := range childIDs {
		n, err := deleteFolderRecursive(tx, userID, childID, trashStamp)
		if err != nil {
			return 0, err
		}
		removed += n
	}

	if _, err := tx.Exec(
		`DELETE FROM folder_rules WHERE user_id = ? AND folder_id = ?`,
		userID, folderID); err != nil {
		return 0, fmt.Errorf("deleting folder rules: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE mails SET folder = ?, trash_stamp = ? WHERE user_id = ? AND folder = ?`,
		model.FolderTrash, trashStamp, userID, folderID); err != nil {
		return 0, fmt.Errorf("moving mails to trash: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM folders WHERE user_id = ? AND id = ?`,
		userID, folderID); err != nil {
		return 0, fmt.Errorf("deleting folder: %w", err)
	}

	return removed + 1, nil
}
