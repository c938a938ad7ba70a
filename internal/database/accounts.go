package database

import (
	"database/sql"
	"errors"
	"fmt"

	"groupsync/internal/model"
)

// Account operations

func (s *SQLiteDatabase) FindAccountByEmail(email string) (*model.Account, error) {
	var acct model.Account
	err := s.db.Get(&acct, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding account by email: %w", err)
	}
	return &acct, nil
}

func (s *SQLiteDatabase) FindAccountByID(id int64) (*model.Account, error) {
	var acct model.Account
	err := s.db.Get(&acct, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding account by id: %w", err)
	}
	return &acct, nil
}

func (s *SQLiteDatabase) FindGroup(id int64) (*model.Group, error) {
	var grp model.Group
	err := s.db.Get(&grp, `SELECT * FROM groups WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding group: %w", err)
	}
	return &grp, nil
}

func (s *SQLiteDatabase) FindAliases(userID int64) ([]model.Alias, error) {
	var aliases []model.Alias
	err := s.db.Select(&aliases,
		`SELECT user_id, email, flags FROM aliases WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("finding aliases: %w", err)
	}
	return aliases, nil
}

func (s *SQLiteDatabase) FindWorkgroupAddresses(userID int64) ([]string, error) {
	var addrs []string
	err := s.db.Select(&addrs, `
		SELECT w.email FROM workgroups w
		JOIN workgroup_members m ON m.workgroup_id = w.id
		WHERE m.user_id = ? AND w.email != ''`, userID)
	if err != nil {
		return nil, fmt.Errorf("finding workgroup addresses: %w", err)
	}
	return addrs, nil
}

// RecordSend updates the send throttling state after a successful
// delivery: last_send moves forward and the sent counter grows by the
// number of recipients reached.
func (s *SQLiteDatabase) RecordSend(userID int64, sentAt int64, recipients int) error {
	_, err := s.db.Exec(
		`UPDATE users SET last_send = ?, sent_mails = sent_mails + ? WHERE id = ?`,
		sentAt, recipients, userID)
	if err != nil {
		return fmt.Errorf("recording send: %w", err)
	}
	return nil
}

// AddSpaceUsed adjusts the account's quota usage by delta bytes. Delta
// may be negative when content is deleted; usage never drops below zero.
func (s *SQLiteDatabase) AddSpaceUsed(userID int64, delta int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET space_used = MAX(0, space_used + ?) WHERE id = ?`, delta, userID)
	if err != nil {
		return fmt.Errorf("adjusting space used: %w", err)
	}
	return nil
}

// BumpGeneration increments the content change counter polled by hosts.
func (s *SQLiteDatabase) BumpGeneration(userID int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET generation = generation + 1 WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("bumping generation: %w", err)
	}
	return nil
}

// BumpStructureGeneration increments the folder hierarchy change counter.
func (s *SQLiteDatabase) BumpStructureGeneration(userID int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET structure_generation = structure_generation + 1 WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("bumping structure generation: %w", err)
	}
	return nil
}
