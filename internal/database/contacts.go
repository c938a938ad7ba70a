package database

import (
	"database/sql"
	"errors"
	"fmt"

	"groupsync/internal/model"
)

// Contact operations

func (s *SQLiteDatabase) ListContacts(userID int64) ([]model.Contact, error) {
	var contacts []model.Contact
	err := s.db.Select(&contacts,
		`SELECT * FROM contacts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return contacts, nil
}

func (s *SQLiteDatabase) FindContact(userID, contactID int64) (*model.Contact, error) {
	var contact model.Contact
	err := s.db.Get(&contact,
		`SELECT * FROM contacts WHERE user_id = ? AND id = ?`, userID, contactID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding contact: %w", err)
	}
	return &contact, nil
}

func (s *SQLiteDatabase) InsertContact(contact *model.Contact) (int64, error) {
	res, err := s.db.NamedExec(`
		INSERT INTO contacts (user_id, first_name, last_name,
			home_phone, home_fax, home_street, home_city, home_zip, home_country,
			work_street, work_zip, work_city, work_country,
			work_email, work_phone, work_fax, work_mobile,
			email, web, mobile, company, job_title, birthday,
			default_address, picture, picture_type, notes)
		VALUES (:user_id, :first_name, :last_name,
			:home_phone, :home_fax, :home_street, :home_city, :home_zip, :home_country,
			:work_street, :work_zip, :work_city, :work_country,
			:work_email, :work_phone, :work_fax, :work_mobile,
			:email, :web, :mobile, :company, :job_title, :birthday,
			:default_address, :picture, :picture_type, :notes)`,
		contact)
	if err != nil {
		return 0, fmt.Errorf("inserting contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting contact: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) UpdateContact(contact *model.Contact) error {
	_, err := s.db.NamedExec(`
		UPDATE contacts SET first_name = :first_name, last_name = :last_name,
			home_phone = :home_phone, home_fax = :home_fax, home_street = :home_street,
			home_city = :home_city, home_zip = :home_zip, home_country = :home_country,
			work_street = :work_street, work_zip = :work_zip, work_city = :work_city,
			work_country = :work_country, work_email = :work_email, work_phone = :work_phone,
			work_fax = :work_fax, work_mobile = :work_mobile,
			email = :email, web = :web, mobile = :mobile, company = :company,
			job_title = :job_title, birthday = :birthday,
			default_address = :default_address, picture = :picture,
			picture_type = :picture_type, notes = :notes
		WHERE user_id = :user_id AND id = :id`,
		contact)
	if err != nil {
		return fmt.Errorf("updating contact: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteContact(userID, contactID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM contacts WHERE user_id = ? AND id = ?`, userID, contactID)
	if err != nil {
		return fmt.Errorf("deleting contact: %w", err)
	}
	return nil
}
