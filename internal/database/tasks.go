package database

import (
	"database/sql"
	"errors"
	"fmt"

	"groupsync/internal/model"
)

// Task list operations

func (s *SQLiteDatabase) ListTaskLists(userID int64) ([]model.TaskList, error) {
	var lists []model.TaskList
	err := s.db.Select(&lists,
		`SELECT * FROM tasklists WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing task lists: %w", err)
	}
	return lists, nil
}

func (s *SQLiteDatabase) FindTaskList(userID, listID int64) (*model.TaskList, error) {
	var list model.TaskList
	err := s.db.Get(&list,
		`SELECT * FROM tasklists WHERE user_id = ? AND id = ?`, userID, listID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding task list: %w", err)
	}
	return &list, nil
}

func (s *SQLiteDatabase) CreateTaskList(userID int64, title string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO tasklists (user_id, title) VALUES (?, ?)`, userID, title)
	if err != nil {
		return 0, fmt.Errorf("creating task list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("creating task list: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) RenameTaskList(userID, listID int64, title string) error {
	_, err := s.db.Exec(
		`UPDATE tasklists SET title = ? WHERE user_id = ? AND id = ?`,
		title, userID, listID)
	if err != nil {
		return fmt.Errorf("renaming task list: %w", err)
	}
	return nil
}

// DeleteTaskList removes a task list and hard-deletes its tasks in one
// transaction, stamping each task deleted in the change log.
func (s *SQLiteDatabase) DeleteTaskList(userID, listID int64, deletedAt int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var taskIDs []int64
	err = tx.Select(&taskIDs,
		`SELECT id FROM tasks WHERE user_id = ? AND tasklist_id = ?`, userID, listID)
	if err != nil {
		return fmt.Errorf("finding list tasks: %w", err)
	}

	for _, taskID := range taskIDs {
		if _, err := tx.Exec(
			`DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, taskID); err != nil {
			return fmt.Errorf("deleting task: %w", err)
		}
		if err := touchChange(tx, userID, model.ChangeKindTask, taskID, "deleted", deletedAt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`DELETE FROM tasklists WHERE user_id = ? AND id = ?`, userID, listID); err != nil {
		return fmt.Errorf("deleting task list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Task operations

func (s *SQLiteDatabase) ListTasks(userID, listID int64) ([]model.Task, error) {
	var tasks []model.Task
	err := s.db.Select(&tasks,
		`SELECT * FROM tasks WHERE user_id = ? AND tasklist_id = ? ORDER BY id`,
		userID, listID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

func (s *SQLiteDatabase) FindTask(userID, taskID int64) (*model.Task, error) {
	var task model.Task
	err := s.db.Get(&task,
		`SELECT * FROM tasks WHERE user_id = ? AND id = ?`, userID, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding task: %w", err)
	}
	return &task, nil
}

func (s *SQLiteDatabase) InsertTask(task *model.Task) (int64, error) {
	res, err := s.db.NamedExec(`
		INSERT INTO tasks (user_id, tasklist_id, status, start_ts, due_ts, priority, title, body)
		VALUES (:user_id, :tasklist_id, :status, :start_ts, :due_ts, :priority, :title, :body)`,
		task)
	if err != nil {
		return 0, fmt.Errorf("inserting task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting task: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) UpdateTask(task *model.Task) error {
	_, err := s.db.NamedExec(`
		UPDATE tasks SET tasklist_id = :tasklist_id, status = :status,
			start_ts = :start_ts, due_ts = :due_ts, priority = :priority,
			title = :title, body = :body
		WHERE user_id = :user_id AND id = :id`,
		task)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteTask(userID, taskID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, taskID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}
