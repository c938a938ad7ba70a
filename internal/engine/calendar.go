package engine

import (
	"math/bits"
	"strconv"
	"strings"
	"time"

	"groupsync/internal/model"
)

// calendarTranscoder converts between stored event rows and the
// protocol-neutral EventItem, including the lossy recurrence mapping.
type calendarTranscoder struct {
	e *Engine
}

var _ transcoder = (*calendarTranscoder)(nil)

// List surfaces the events of one calendar. The modification marker
// comes from the change log (max of created and updated); the flag bit
// is always 1. Events have no receipt cutoff.
func (t *calendarTranscoder) List(sess *Session, containerID int64, cutoff int64) ([]model.ItemStat, error) {
	events, err := t.e.db.ListEvents(sess.UserID(), containerID)
	if err != nil {
		return nil, err
	}
	mods, err := t.e.changeMarkers(sess.UserID(), model.ChangeKindEvent)
	if err != nil {
		return nil, err
	}
	stats := make([]model.ItemStat, 0, len(events))
	for _, ev := range events {
		stats = append(stats, model.ItemStat{ID: ev.ID, Mod: mods[ev.ID], Flag: 1})
	}
	return stats, nil
}

func (t *calendarTranscoder) Stat(sess *Session, itemID int64) (*model.ItemStat, error) {
	ev, err := t.e.db.FindEvent(sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}
	mod, err := t.e.changeMarker(model.ChangeKindEvent, itemID)
	if err != nil {
		return nil, err
	}
	return &model.ItemStat{ID: ev.ID, Mod: mod, Flag: 1}, nil
}

func (t *calendarTranscoder) Fetch(sess *Session, itemID int64, opts RenderOptions) (Item, error) {
	ev, err := t.e.db.FindEvent(sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrNotFound
	}

	item := &EventItem{
		ID:       ev.ID,
		Subject:  ev.Title,
		Location: ev.Location,
		Body:     ev.Body,
		Start:    ev.Start,
		End:      ev.End,
	}
	if ev.Flags&model.EventFlagAllDay != 0 {
		item.AllDay = true
		item.Start = localMidnight(ev.Start)
		// The stored end sits one second before the nominal day
		// boundary; surface the boundary itself.
		item.End = ev.End + 1
	}
	if ev.Reminder > 0 && ev.Flags&(model.EventFlagRemindMail|model.EventFlagRemindOther) != 0 {
		minutes := ev.Reminder / 60
		item.ReminderMinutes = &minutes
	}
	item.Recurrence = recurrenceFromStored(ev)

	attendees, err := t.e.db.FindAttendees(ev.ID)
	if err != nil {
		return nil, err
	}
	item.Attendees = attendees
	return item, nil
}

func (t *calendarTranscoder) Apply(sess *Session, containerID, itemID int64, item Item) (int64, error) {
	ei, ok := item.(*EventItem)
	if !ok {
		return 0, ErrUnsupported
	}
	now := t.e.clock.Now().Unix()

	var ev *model.Event
	if itemID > 0 {
		existing, err := t.e.db.FindEvent(sess.UserID(), itemID)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, ErrNotFound
		}
		ev = existing
	} else {
		ev = &model.Event{UserID: sess.UserID(), CalendarID: containerID}
	}

	ev.Title = ei.Subject
	ev.Location = ei.Location
	ev.Body = ei.Body
	ev.Start = ei.Start
	ev.End = ei.End
	ev.Flags &^= model.EventFlagAllDay
	if ei.AllDay {
		ev.Flags |= model.EventFlagAllDay
		ev.End = ei.End - 1
	}

	ev.Reminder = 0
	if ei.ReminderMinutes != nil && *ei.ReminderMinutes > 0 {
		ev.Reminder = *ei.ReminderMinutes * 60
		if ev.Flags&(model.EventFlagRemindMail|model.EventFlagRemindOther) == 0 {
			ev.Flags |= model.EventFlagRemindMail
		}
	}

	applyRecurrence(ev, ei.Recurrence)

	var id int64
	if itemID > 0 {
		if err := t.e.db.UpdateEvent(ev); err != nil {
			return 0, err
		}
		id = ev.ID
		if err := t.e.db.MarkUpdated(sess.UserID(), model.ChangeKindEvent, id, now); err != nil {
			return 0, err
		}
	} else {
		newID, err := t.e.db.InsertEvent(ev)
		if err != nil {
			return 0, err
		}
		id = newID
		if err := t.e.db.MarkCreated(sess.UserID(), model.ChangeKindEvent, id, now); err != nil {
			return 0, err
		}
	}

	if err := t.applyAttendees(sess, id, ei.Attendees); err != nil {
		return 0, err
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return 0, err
	}
	return id, nil
}

// applyAttendees resolves the incoming attendee list against the contact
// store by e-mail match and replaces the event's attendee set.
func (t *calendarTranscoder) applyAttendees(sess *Session, eventID int64, attendees []model.Attendee) error {
	if attendees == nil {
		return nil
	}
	contacts, err := t.e.db.ListContacts(sess.UserID())
	if err != nil {
		return err
	}
	var ids []int64
	for _, att := range attendees {
		for _, c := range contacts {
			if strings.EqualFold(c.Email, att.Email) || strings.EqualFold(c.WorkEmail, att.Email) {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return t.e.db.ReplaceAttendees(eventID, ids)
}

func (t *calendarTranscoder) Delete(sess *Session, itemID int64) (bool, error) {
	ev, err := t.e.db.FindEvent(sess.UserID(), itemID)
	if err != nil {
		return false, err
	}
	if ev == nil {
		return false, nil
	}
	if err := t.e.db.DeleteEvent(sess.UserID(), itemID); err != nil {
		return false, err
	}
	now := t.e.clock.Now().Unix()
	if err := t.e.db.MarkDeleted(sess.UserID(), model.ChangeKindEvent, itemID, now); err != nil {
		return false, err
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return false, err
	}
	return true, nil
}

// Move reassigns an event to another calendar of the same account.
func (t *calendarTranscoder) Move(sess *Session, itemID, newContainerID int64) (bool, error) {
	ev, err := t.e.db.FindEvent(sess.UserID(), itemID)
	if err != nil {
		return false, err
	}
	if ev == nil {
		return false, nil
	}
	if newContainerID != DefaultContainer {
		cal, err := t.e.db.FindCalendar(sess.UserID(), newContainerID)
		if err != nil {
			return false, err
		}
		if cal == nil {
			return false, nil
		}
	}
	ev.CalendarID = newContainerID
	if err := t.e.db.UpdateEvent(ev); err != nil {
		return false, err
	}
	now := t.e.clock.Now().Unix()
	if err := t.e.db.MarkUpdated(sess.UserID(), model.ChangeKindEvent, itemID, now); err != nil {
		return false, err
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return false, err
	}
	return true, nil
}

// recurrenceFromStored decodes the stored repeat fields. A stored daily
// pattern always surfaces as daily with the weekday mask set to every
// day not on the exception list, so a weekly pattern that collapsed to
// daily on apply comes back as daily. Stored weekly carries no weekday
// mask.
func recurrenceFromStored(ev *model.Event) *Recurrence {
	flags := ev.RepeatFlags
	var rec Recurrence
	switch {
	case flags&model.RepeatDaily != 0:
		rec.Type = RecurDaily
		rec.Interval = int(ev.RepeatValue)
		rec.WeekdayMask = WeekdayMaskAll &^ excludedWeekdayMask(ev.RepeatExtra1)
	case flags&model.RepeatWeekly != 0:
		rec.Type = RecurWeekly
		rec.Interval = int(ev.RepeatValue)
	case flags&model.RepeatMonthlyDay != 0:
		rec.Type = RecurMonthlyDay
		rec.Interval = int(ev.RepeatValue)
		day, _ := strconv.Atoi(ev.RepeatExtra1)
		rec.DayOfMonth = day
	case flags&model.RepeatMonthlyWeekday != 0:
		rec.Type = RecurMonthlyWeekday
		week, _ := strconv.Atoi(ev.RepeatExtra1)
		day, _ := strconv.Atoi(ev.RepeatExtra2)
		rec.WeekOfMonth = week + 1
		rec.WeekdayMask = 1 << day
	default:
		return nil
	}
	if rec.Interval < 1 {
		rec.Interval = 1
	}

	switch {
	case flags&model.RepeatTerminateCount != 0:
		// The count is off by one in both directions between the store
		// and the surfaced form; kept that way for stored rows.
		rec.Occurrences = int(ev.RepeatTimes) + 1
	case flags&model.RepeatTerminateDate != 0:
		rec.Until = ev.RepeatTimes
	}
	return &rec
}

// applyRecurrence encodes a protocol recurrence into the stored repeat
// fields, clearing them when rec is nil. Weekly interval 1 with an
// explicit weekday set collapses to daily with the skipped weekdays
// recorded as an exception list.
func applyRecurrence(ev *model.Event, rec *Recurrence) {
	ev.RepeatFlags = 0
	ev.RepeatTimes = 0
	ev.RepeatValue = 0
	ev.RepeatExtra1 = ""
	ev.RepeatExtra2 = ""
	if rec == nil {
		return
	}

	interval := rec.Interval
	if interval < 1 {
		interval = 1
	}

	switch rec.Type {
	case RecurDaily:
		ev.RepeatFlags |= model.RepeatDaily
		ev.RepeatValue = int64(interval)
	case RecurWeekly:
		if interval == 1 && rec.WeekdayMask != 0 {
			ev.RepeatFlags |= model.RepeatDaily
			ev.RepeatValue = 1
			ev.RepeatExtra1 = excludedWeekdayList(rec.WeekdayMask)
		} else {
			ev.RepeatFlags |= model.RepeatWeekly
			ev.RepeatValue = int64(interval)
		}
	case RecurMonthlyDay:
		ev.RepeatFlags |= model.RepeatMonthlyDay
		ev.RepeatValue = int64(interval)
		ev.RepeatExtra1 = strconv.Itoa(clampDayOfMonth(rec.DayOfMonth))
	case RecurMonthlyWeekday:
		ev.RepeatFlags |= model.RepeatMonthlyWeekday
		week := rec.WeekOfMonth
		if week < 1 {
			week = 1
		}
		ev.RepeatExtra1 = strconv.Itoa(week - 1)
		ev.RepeatExtra2 = strconv.Itoa(lowestWeekday(rec.WeekdayMask))
	}

	switch {
	case rec.Occurrences > 0:
		ev.RepeatFlags |= model.RepeatTerminateCount
		ev.RepeatTimes = int64(rec.Occurrences) + 1
	case rec.Until > 0:
		ev.RepeatFlags |= model.RepeatTerminateDate
		ev.RepeatTimes = rec.Until
	}
}

// excludedWeekdayList renders the weekdays absent from mask as the
// stored comma-separated exception list, 0 = Sunday through 6 =
// Saturday. A full mask yields an empty list.
func excludedWeekdayList(mask int) string {
	var out []string
	for day := 0; day < 7; day++ {
		if mask&(1<<day) == 0 {
			out = append(out, strconv.Itoa(day))
		}
	}
	return strings.Join(out, ",")
}

func excludedWeekdayMask(list string) int {
	mask := 0
	for _, part := range strings.Split(list, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || day < 0 || day > 6 {
			continue
		}
		mask |= 1 << day
	}
	return mask
}

func clampDayOfMonth(day int) int {
	if day < 1 {
		return 1
	}
	if day > 31 {
		return 31
	}
	return day
}

func lowestWeekday(mask int) int {
	if mask&WeekdayMaskAll == 0 {
		return 0
	}
	return bits.TrailingZeros32(uint32(mask & WeekdayMaskAll))
}

// localMidnight truncates a timestamp to the start of its local day.
func localMidnight(ts int64) int64 {
	t := time.Unix(ts, 0).Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Unix()
}
