package database

import (
	"database/sql"
	"errors"
	"fmt"

	"groupsync/internal/model"
)

// Mail operations

// ListMessages returns the messages of one folder whose received time is
// at or after cutoff. A zero cutoff disables the filter.
func (s *SQLiteDatabase) ListMessages(userID, folderID int64, cutoff int64) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.Select(&msgs,
		`SELECT * FROM mails WHERE user_id = ? AND folder = ? AND received >= ? ORDER BY id`,
		userID, folderID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

func (s *SQLiteDatabase) FindMessage(userID, messageID int64) (*model.Message, error) {
	var msg model.Message
	err := s.db.Get(&msg,
		`SELECT * FROM mails WHERE user_id = ? AND id = ?`, userID, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding message: %w", err)
	}
	return &msg, nil
}

func (s *SQLiteDatabase) InsertMessage(msg *model.Message) (int64, error) {
	res, err := s.db.NamedExec(`
		INSERT INTO mails (user_id, subject, from_addr, to_addrs, cc_addrs, body,
			folder, date_sent, received, trash_stamp, priority, msg_id, refs, flags, size)
		VALUES (:user_id, :subject, :from_addr, :to_addrs, :cc_addrs, :body,
			:folder, :date_sent, :received, :trash_stamp, :priority, :msg_id, :refs, :flags, :size)`,
		msg)
	if err != nil {
		return 0, fmt.Errorf("inserting message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting message: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) UpdateMessageFlags(userID, messageID int64, flags int) error {
	_, err := s.db.Exec(
		`UPDATE mails SET flags = ? WHERE user_id = ? AND id = ?`,
		flags, userID, messageID)
	if err != nil {
		return fmt.Errorf("updating message flags: %w", err)
	}
	return nil
}

// MoveMessage reassigns a message to another folder. trashStamp is
// recorded only when the target is the trash; a move out of the trash
// clears it.
func (s *SQLiteDatabase) MoveMessage(userID, messageID, folderID int64, trashStamp int64) error {
	stamp := int64(0)
	if folderID == model.FolderTrash {
		stamp = trashStamp
	}
	_, err := s.db.Exec(
		`UPDATE mails SET folder = ?, trash_stamp = ? WHERE user_id = ? AND id = ?`,
		folderID, stamp, userID, messageID)
	if err != nil {
		return fmt.Errorf("moving message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message row and releases its quota in one
// transaction. It returns the message that was deleted so the caller
// can drop the blob afterwards; nil means the message did not exist.
func (s *SQLiteDatabase) DeleteMessage(userID, messageID int64) (*model.Message, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var msg model.Message
	err = tx.Get(&msg, `SELECT * FROM mails WHERE user_id = ? AND id = ?`, userID, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("finding message: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM mails WHERE user_id = ? AND id = ?`, userID, messageID); err != nil {
		return nil, fmt.Errorf("deleting message: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE users SET space_used = MAX(0, space_used - ?) WHERE id = ?`,
		msg.Size, userID); err != nil {
		return nil, fmt.Errorf("releasing quota: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &msg, nil
}
