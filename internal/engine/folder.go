package engine

import (
	"strconv"
	"strings"

	"groupsync/internal/model"
)

// Domain identifies which entity family a folder belongs to.
type Domain int

const (
	DomainMail Domain = iota
	DomainCalendar
	DomainTask
	DomainContact
)

func (d Domain) String() string {
	switch d {
	case DomainMail:
		return "mail"
	case DomainCalendar:
		return "calendar"
	case DomainTask:
		return "task"
	case DomainContact:
		return "contact"
	}
	return "unknown"
}

// Folder identifier grammar. The string form is persisted in device sync
// state, so it is a compatibility surface: ".{domain}:{containerId}" for
// mail, calendar and task containers, and the literal ".contacts" for
// the address book singleton. Prefix matching is case-sensitive and
// exact.
const (
	prefixMail     = ".email:"
	prefixCalendar = ".dates:"
	prefixTask     = ".tasks:"
	idContacts     = ".contacts"
)

// DefaultContainer is the stored group id of the implicit default
// calendar and default task list. Neither has a backing row. On the
// wire the default containers appear as ".dates:0" and ".tasks:0"; any
// parsed container id at or below zero means the default.
const DefaultContainer = -1

// RootFolderID is the parent reported for top-level folders.
const RootFolderID = "0"

// FolderKind classifies a folder for the host driver.
type FolderKind int

const (
	KindUserMail FolderKind = iota
	KindInbox
	KindDrafts
	KindTrash
	KindSent
	KindSpam
	KindCalendar
	KindUserCalendar
	KindTasks
	KindUserTasks
	KindContacts
)

// FolderDescriptor describes one synchronizable container.
type FolderDescriptor struct {
	ID          string
	ParentID    string
	DisplayName string
	Domain      Domain
	ContainerID int64
	Kind        FolderKind
}

// FormatFolderID renders the stable string identifier of a container.
// The default calendar and task list render as container 0 regardless
// of the stored group id.
func FormatFolderID(domain Domain, containerID int64) string {
	switch domain {
	case DomainMail:
		return prefixMail + strconv.FormatInt(containerID, 10)
	case DomainCalendar:
		if containerID <= 0 {
			containerID = 0
		}
		return prefixCalendar + strconv.FormatInt(containerID, 10)
	case DomainTask:
		if containerID <= 0 {
			containerID = 0
		}
		return prefixTask + strconv.FormatInt(containerID, 10)
	case DomainContact:
		return idContacts
	}
	return ""
}

// ParseFolderID maps a folder identifier back to its (domain, container)
// pair. An unrecognized prefix or malformed container number reports
// ok=false; that is a not-found condition for the caller, not an error.
func ParseFolderID(id string) (domain Domain, containerID int64, ok bool) {
	if id == idContacts {
		return DomainContact, 0, true
	}
	if len(id) < len(prefixMail) {
		return 0, 0, false
	}
	var rest string
	switch id[:len(prefixMail)] {
	case prefixMail:
		domain = DomainMail
		rest = id[len(prefixMail):]
	case prefixCalendar:
		domain = DomainCalendar
		rest = id[len(prefixCalendar):]
	case prefixTask:
		domain = DomainTask
		rest = id[len(prefixTask):]
	default:
		return 0, 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	// Calendars and task lists treat every non-positive container id as
	// the default container's stored group.
	if (domain == DomainCalendar || domain == DomainTask) && n <= 0 {
		n = DefaultContainer
	}
	return domain, n, true
}

// Wastebasket returns the folder identifier of the mail trash, which the
// host driver uses as the deletion target.
func Wastebasket() string {
	return FormatFolderID(DomainMail, model.FolderTrash)
}

// systemMailFolder describes the fixed system containers that exist for
// every account without a folders row.
type systemMailFolder struct {
	id    int64
	title string
	kind  FolderKind
}

var systemMailFolders = []systemMailFolder{
	{model.FolderInbox, "Inbox", KindInbox},
	{model.FolderSent, "Sent", KindSent},
	{model.FolderDrafts, "Drafts", KindDrafts},
	{model.FolderSpam, "Spam", KindSpam},
	{model.FolderTrash, "Trash", KindTrash},
}

// isSystemMailFolder reports whether the container is one of the fixed
// system mail folders.
func isSystemMailFolder(containerID int64) bool {
	for _, f := range systemMailFolders {
		if f.id == containerID {
			return true
		}
	}
	return false
}

// sanitizeFolderTitle strips characters that would corrupt the stored
// hierarchy display.
func sanitizeFolderTitle(title string) string {
	return strings.TrimSpace(title)
}
