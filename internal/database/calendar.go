package database

import (
	"database/sql"
	"errors"
	"fmt"

	"groupsync/internal/model"
)

// Calendar operations

func (s *SQLiteDatabase) ListCalendars(userID int64) ([]model.Calendar, error) {
	var cals []model.Calendar
	err := s.db.Select(&cals,
		`SELECT * FROM calendars WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing calendars: %w", err)
	}
	return cals, nil
}

func (s *SQLiteDatabase) FindCalendar(userID, calendarID int64) (*model.Calendar, error) {
	var cal model.Calendar
	err := s.db.Get(&cal,
		`SELECT * FROM calendars WHERE user_id = ? AND id = ?`, userID, calendarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding calendar: %w", err)
	}
	return &cal, nil
}

func (s *SQLiteDatabase) CreateCalendar(userID int64, title string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO calendars (user_id, title) VALUES (?, ?)`, userID, title)
	if err != nil {
		return 0, fmt.Errorf("creating calendar: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("creating calendar: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) RenameCalendar(userID, calendarID int64, title string) error {
	_, err := s.db.Exec(
		`UPDATE calendars SET title = ? WHERE user_id = ? AND id = ?`,
		title, userID, calendarID)
	if err != nil {
		return fmt.Errorf("renaming calendar: %w", err)
	}
	return nil
}

// DeleteCalendar removes a calendar together with its events in one
// transaction. Every removed event is stamped deleted in the change log
// so hosts observe the deletions on their next poll.
func (s *SQLiteDatabase) DeleteCalendar(userID, calendarID int64, deletedAt int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var eventIDs []int64
	err = tx.Select(&eventIDs,
		`SELECT id FROM events WHERE user_id = ? AND calendar_id = ?`, userID, calendarID)
	if err != nil {
		return fmt.Errorf("finding calendar events: %w", err)
	}

	for _, eventID := range eventIDs {
		if _, err := tx.Exec(
			`DELETE FROM event_attendees WHERE event_id = ?`, eventID); err != nil {
			return fmt.Errorf("deleting event attendees: %w", err)
		}
		if _, err := tx.Exec(
			`DELETE FROM events WHERE user_id = ? AND id = ?`, userID, eventID); err != nil {
			return fmt.Errorf("deleting event: %w", err)
		}
		if err := touchChange(tx, userID, model.ChangeKindEvent, eventID, "deleted", deletedAt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`DELETE FROM calendars WHERE user_id = ? AND id = ?`, userID, calendarID); err != nil {
		return fmt.Errorf("deleting calendar: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Event operations

func (s *SQLiteDatabase) ListEvents(userID, calendarID int64) ([]model.Event, error) {
	var events []model.Event
	err := s.db.Select(&events,
		`SELECT * FROM events WHERE user_id = ? AND calendar_id = ? ORDER BY id`,
		userID, calendarID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

func (s *SQLiteDatabase) FindEvent(userID, eventID int64) (*model.Event, error) {
	var event model.Event
	err := s.db.Get(&event,
		`SELECT * FROM events WHERE user_id = ? AND id = ?`, userID, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding event: %w", err)
	}
	return &event, nil
}

func (s *SQLiteDatabase) InsertEvent(event *model.Event) (int64, error) {
	res, err := s.db.NamedExec(`
		INSERT INTO events (user_id, calendar_id, title, location, body,
			start_ts, end_ts, reminder, flags,
			repeat_flags, repeat_times, repeat_value, repeat_extra1, repeat_extra2)
		VALUES (:user_id, :calendar_id, :title, :location, :body,
			:start_ts, :end_ts, :reminder, :flags,
			:repeat_flags, :repeat_times, :repeat_value, :repeat_extra1, :repeat_extra2)`,
		event)
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) UpdateEvent(event *model.Event) error {
	_, err := s.db.NamedExec(`
		UPDATE events SET calendar_id = :calendar_id, title = :title,
			location = :location, body = :body,
			start_ts = :start_ts, end_ts = :end_ts, reminder = :reminder, flags = :flags,
			repeat_flags = :repeat_flags, repeat_times = :repeat_times,
			repeat_value = :repeat_value, repeat_extra1 = :repeat_extra1,
			repeat_extra2 = :repeat_extra2
		WHERE user_id = :user_id AND id = :id`,
		event)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event and its attendee links in one transaction.
func (s *SQLiteDatabase) DeleteEvent(userID, eventID int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM event_attendees WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("deleting event attendees: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM events WHERE user_id = ? AND id = ?`, userID, eventID); err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FindAttendees resolves the attendees of an event from the contact
// store. The mail address follows the contact's default address choice.
func (s *SQLiteDatabase) FindAttendees(eventID int64) ([]model.Attendee, error) {
	rows, err := s.db.Query(`
		SELECT c.first_name, c.last_name, c.email, c.work_email, c.default_address
		FROM contacts c
		JOIN event_attendees a ON a.contact_id = c.id
		WHERE a.event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("finding attendees: %w", err)
	}
	defer rows.Close()

	var attendees []model.Attendee
	for rows.Next() {
		var first, last, email, workEmail string
		var defaultAddress int
		if err := rows.Scan(&first, &last, &email, &workEmail, &defaultAddress); err != nil {
			return nil, fmt.Errorf("scanning attendee: %w", err)
		}
		addr := email
		if defaultAddress == 2 && workEmail != "" {
			addr = workEmail
		}
		attendees = append(attendees, model.Attendee{
			Name:  joinName(first, last),
			Email: addr,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading attendees: %w", err)
	}
	return attendees, nil
}

// ReplaceAttendees swaps the attendee set of an event atomically.
func (s *SQLiteDatabase) ReplaceAttendees(eventID int64, contactIDs []int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM event_attendees WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("clearing attendees: %w", err)
	}
	for _, contactID := range contactIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO event_attendees (event_id, contact_id) VALUES (?, ?)`,
			eventID, contactID); err != nil {
			return fmt.Errorf("adding attendee %d: %w", contactID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
