package engine

import (
	"groupsync/internal/model"
)

// taskTranscoder converts between stored task rows and the
// protocol-neutral TaskItem.
type taskTranscoder struct {
	e *Engine
}

var _ transcoder = (*taskTranscoder)(nil)

func (t *taskTranscoder) List(sess *Session, containerID int64, cutoff int64) ([]model.ItemStat, error) {
	tasks, err := t.e.db.ListTasks(sess.UserID(), containerID)
	if err != nil {
		return nil, err
	}
	mods, err := t.e.changeMarkers(sess.UserID(), model.ChangeKindTask)
	if err != nil {
		return nil, err
	}
	stats := make([]model.ItemStat, 0, len(tasks))
	for _, task := range tasks {
		stats = append(stats, model.ItemStat{ID: task.ID, Mod: mods[task.ID], Flag: 1})
	}
	return stats, nil
}

func (t *taskTranscoder) Stat(sess *Session, itemID int64) (*model.ItemStat, error) {
	task, err := t.e.db.FindTask(sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	mod, err := t.e.changeMarker(model.ChangeKindTask, itemID)
	if err != nil {
		return nil, err
	}
	return &model.ItemStat{ID: task.ID, Mod: mod, Flag: 1}, nil
}

func (t *taskTranscoder) Fetch(sess *Session, itemID int64, opts RenderOptions) (Item, error) {
	task, err := t.e.db.FindTask(sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	item := &TaskItem{
		ID:         task.ID,
		Subject:    task.Title,
		Body:       task.Body,
		Complete:   task.Status&model.TaskStatusComplete != 0,
		Start:      task.Start,
		Due:        task.Due,
		Importance: importanceFromPriority(task.Priority),
	}
	// The store keeps no completion timestamp; completed tasks report
	// the time of the fetch.
	if item.Complete {
		item.DateCompleted = t.e.clock.Now().Unix()
	}
	return item, nil
}

func (t *taskTranscoder) Apply(sess *Session, containerID, itemID int64, item Item) (int64, error) {
	ti, ok := item.(*TaskItem)
	if !ok {
		return 0, ErrUnsupported
	}
	now := t.e.clock.Now().Unix()

	if itemID > 0 {
		task, err := t.e.db.FindTask(sess.UserID(), itemID)
		if err != nil {
			return 0, err
		}
		if task == nil {
			return 0, ErrNotFound
		}
		task.Title = ti.Subject
		task.Body = ti.Body
		task.Priority = priorityFromImportance(ti.Importance)
		if ti.Start != 0 {
			task.Start = ti.Start
		}
		if ti.Due != 0 {
			task.Due = ti.Due
		}
		task.Status = applyCompletion(task.Status, ti.Complete)
		if err := t.e.db.UpdateTask(task); err != nil {
			return 0, err
		}
		if err := t.e.db.MarkUpdated(sess.UserID(), model.ChangeKindTask, itemID, now); err != nil {
			return 0, err
		}
		if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
			return 0, err
		}
		return itemID, nil
	}

	// A new task enters as in-progress; the untouched open state only
	// exists for rows created outside sync.
	task := &model.Task{
		UserID:     sess.UserID(),
		TaskListID: containerID,
		Status:     model.TaskStatusInProgress,
		Start:      ti.Start,
		Due:        ti.Due,
		Priority:   priorityFromImportance(ti.Importance),
		Title:      ti.Subject,
		Body:       ti.Body,
	}
	if ti.Complete {
		task.Status = model.TaskStatusComplete
	}
	// New tasks default to a one-day window starting now.
	if task.Start == 0 {
		task.Start = now
	}
	if task.Due == 0 {
		task.Due = now + 86400
	}

	id, err := t.e.db.InsertTask(task)
	if err != nil {
		return 0, err
	}
	if err := t.e.db.MarkCreated(sess.UserID(), model.ChangeKindTask, id, now); err != nil {
		return 0, err
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return 0, err
	}
	return id, nil
}

// applyCompletion implements the sticky completion rule: a completion
// signal promotes to complete, an explicit not-complete signal demotes a
// completed task to in-progress, and any other status survives.
func applyCompletion(status int, complete bool) int {
	switch {
	case complete:
		return model.TaskStatusComplete
	case status&model.TaskStatusComplete != 0:
		return model.TaskStatusInProgress
	default:
		return status
	}
}

func (t *taskTranscoder) Delete(sess *Session, itemID int64) (bool, error) {
	task, err := t.e.db.FindTask(sess.UserID(), itemID)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	if err := t.e.db.DeleteTask(sess.UserID(), itemID); err != nil {
		return false, err
	}
	now := t.e.clock.Now().Unix()
	if err := t.e.db.MarkDeleted(sess.UserID(), model.ChangeKindTask, itemID, now); err != nil {
		return false, err
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return false, err
	}
	return true, nil
}

// Move reassigns a task to another task list of the same account.
func (t *taskTranscoder) Move(sess *Session, itemID, newContainerID int64) (bool, error) {
	task, err := t.e.db.FindTask(sess.UserID(), itemID)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	if newContainerID != DefaultContainer {
		list, err := t.e.db.FindTaskList(sess.UserID(), newContainerID)
		if err != nil {
			return false, err
		}
		if list == nil {
			return false, nil
		}
	}
	task.TaskListID = newContainerID
	if err := t.e.db.UpdateTask(task); err != nil {
		return false, err
	}
	now := t.e.clock.Now().Unix()
	if err := t.e.db.MarkUpdated(sess.UserID(), model.ChangeKindTask, itemID, now); err != nil {
		return false, err
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return false, err
	}
	return true, nil
}
