package engine

import "groupsync/internal/model"

// Database is the sync store contract consumed by the engine. Lookup
// methods return (nil, nil) when the row does not exist; only real
// query failures produce an error.
type Database interface {
	// Accounts
	FindAccountByEmail(email string) (*model.Account, error)
	FindAccountByID(id int64) (*model.Account, error)
	FindGroup(id int64) (*model.Group, error)
	FindAliases(userID int64) ([]model.Alias, error)
	FindWorkgroupAddresses(userID int64) ([]string, error)
	RecordSend(userID int64, sentAt int64, recipients int) error
	AddSpaceUsed(userID int64, delta int64) error
	BumpGeneration(userID int64) error
	BumpStructureGeneration(userID int64) error

	// Mail folders
	ListMailFolders(userID int64) ([]model.MailFolder, error)
	FindMailFolder(userID, folderID int64) (*model.MailFolder, error)
	CreateMailFolder(userID int64, title string, parent int64) (int64, error)
	RenameMailFolder(userID, folderID int64, title string) error
	DeleteMailFolderTree(userID, folderID int64, trashStamp int64) (int, error)

	// Mail
	ListMessages(userID, folderID int64, cutoff int64) ([]model.Message, error)
	FindMessage(userID, messageID int64) (*model.Message, error)
	InsertMessage(msg *model.Message) (int64, error)
	UpdateMessageFlags(userID, messageID int64, flags int) error
	MoveMessage(userID, messageID, folderID int64, trashStamp int64) error
	DeleteMessage(userID, messageID int64) (*model.Message, error)

	// Calendars and events
	ListCalendars(userID int64) ([]model.Calendar, error)
	FindCalendar(userID, calendarID int64) (*model.Calendar, error)
	CreateCalendar(userID int64, title string) (int64, error)
	RenameCalendar(userID, calendarID int64, title string) error
	DeleteCalendar(userID, calendarID int64, deletedAt int64) error
	ListEvents(userID, calendarID int64) ([]model.Event, error)
	FindEvent(userID, eventID int64) (*model.Event, error)
	InsertEvent(event *model.Event) (int64, error)
	UpdateEvent(event *model.Event) error
	DeleteEvent(userID, eventID int64) error
	FindAttendees(eventID int64) ([]model.Attendee, error)
	ReplaceAttendees(eventID int64, contactIDs []int64) error

	// Task lists and tasks
	ListTaskLists(userID int64) ([]model.TaskList, error)
	FindTaskList(userID, listID int64) (*model.TaskList, error)
	CreateTaskList(userID int64, title string) (int64, error)
	RenameTaskList(userID, listID int64, title string) error
	DeleteTaskList(userID, listID int64, deletedAt int64) error
	ListTasks(userID, listID int64) ([]model.Task, error)
	FindTask(userID, taskID int64) (*model.Task, error)
	InsertTask(task *model.Task) (int64, error)
	UpdateTask(task *model.Task) error
	DeleteTask(userID, taskID int64) error

	// Contacts
	ListContacts(userID int64) ([]model.Contact, error)
	FindContact(userID, contactID int64) (*model.Contact, error)
	InsertContact(contact *model.Contact) (int64, error)
	UpdateContact(contact *model.Contact) error
	DeleteContact(userID, contactID int64) error

	// Change log
	MarkCreated(userID int64, kind int, itemID, at int64) error
	MarkUpdated(userID int64, kind int, itemID, at int64) error
	MarkDeleted(userID int64, kind int, itemID, at int64) error
	ListChangeEntries(userID int64, kind int) ([]model.ChangeEntry, error)
	FindChangeEntry(kind int, itemID int64) (*model.ChangeEntry, error)

	Close() error
}
