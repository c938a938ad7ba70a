// Package engine implements the groupware sync core: folder identity,
// per-domain entity transcoding and the reconciliation operations the
// host protocol driver calls. One Engine serves many sessions; each
// session carries its own account snapshot and blob store handle.
package engine

import (
	"fmt"

	"groupsync/internal/blob"
	"groupsync/internal/model"
	"groupsync/internal/transport"
)

// transcoder is the per-domain conversion contract. Lookups report
// missing items with nil results (Stat) or ErrNotFound (Fetch); Delete
// and Move report a missing item as false without error.
type transcoder interface {
	List(sess *Session, containerID int64, cutoff int64) ([]model.ItemStat, error)
	Stat(sess *Session, itemID int64) (*model.ItemStat, error)
	Fetch(sess *Session, itemID int64, opts RenderOptions) (Item, error)
	Apply(sess *Session, containerID, itemID int64, item Item) (int64, error)
	Delete(sess *Session, itemID int64) (bool, error)
	Move(sess *Session, itemID, newContainerID int64) (bool, error)
}

// Engine orchestrates list/stat/fetch/apply/delete/move operations
// across domains and owns the quota and generation counter side effects.
type Engine struct {
	db        Database
	blobs     blob.Opener
	transport transport.Transport
	logger    Logger
	clock     Clock
	idgen     IDGenerator

	// hostname qualifies generated fallback Message-IDs.
	hostname string
	// inlineLimit is the body size in bytes above which message
	// payloads are externalized to the blob store.
	inlineLimit int64

	transcoders map[Domain]transcoder
}

// NewEngine creates an Engine with the provided dependencies.
func NewEngine(db Database, blobs blob.Opener, tr transport.Transport, logger Logger, clock Clock, idgen IDGenerator, hostname string, inlineLimit int64) *Engine {
	e := &Engine{
		db:          db,
		blobs:       blobs,
		transport:   tr,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		hostname:    hostname,
		inlineLimit: inlineLimit,
	}
	e.transcoders = map[Domain]transcoder{
		DomainMail:     &mailTranscoder{e: e},
		DomainCalendar: &calendarTranscoder{e: e},
		DomainTask:     &taskTranscoder{e: e},
		DomainContact:  &contactTranscoder{e: e},
	}
	return e
}

// dispatch resolves a folder identifier to its domain transcoder and
// container ID. An unrecognized identifier is a not-found condition.
func (e *Engine) dispatch(folderID string) (transcoder, Domain, int64, error) {
	domain, containerID, ok := ParseFolderID(folderID)
	if !ok {
		return nil, 0, 0, ErrNotFound
	}
	return e.transcoders[domain], domain, containerID, nil
}

// Folder operations

// ListFolders enumerates every synchronizable container of the session's
// account: the fixed system mail folders, user mail folders, calendars,
// task lists and the contacts singleton. Filter ("smart") folders are
// not synchronized.
func (e *Engine) ListFolders(sess *Session) ([]FolderDescriptor, error) {
	var out []FolderDescriptor

	for _, sys := range systemMailFolders {
		out = append(out, FolderDescriptor{
			ID:          FormatFolderID(DomainMail, sys.id),
			ParentID:    RootFolderID,
			DisplayName: sys.title,
			Domain:      DomainMail,
			ContainerID: sys.id,
			Kind:        sys.kind,
		})
	}

	folders, err := e.db.ListMailFolders(sess.UserID())
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		if f.Smart {
			continue
		}
		parent := RootFolderID
		if f.Parent > 0 {
			parent = FormatFolderID(DomainMail, f.Parent)
		}
		out = append(out, FolderDescriptor{
			ID:          FormatFolderID(DomainMail, f.ID),
			ParentID:    parent,
			DisplayName: f.Title,
			Domain:      DomainMail,
			ContainerID: f.ID,
			Kind:        KindUserMail,
		})
	}

	out = append(out, FolderDescriptor{
		ID:          FormatFolderID(DomainCalendar, DefaultContainer),
		ParentID:    RootFolderID,
		DisplayName: "Calendar",
		Domain:      DomainCalendar,
		ContainerID: DefaultContainer,
		Kind:        KindCalendar,
	})
	calendars, err := e.db.ListCalendars(sess.UserID())
	if err != nil {
		return nil, err
	}
	for _, cal := range calendars {
		out = append(out, FolderDescriptor{
			ID:          FormatFolderID(DomainCalendar, cal.ID),
			ParentID:    FormatFolderID(DomainCalendar, DefaultContainer),
			DisplayName: cal.Title,
			Domain:      DomainCalendar,
			ContainerID: cal.ID,
			Kind:        KindUserCalendar,
		})
	}

	out = append(out, FolderDescriptor{
		ID:          FormatFolderID(DomainTask, DefaultContainer),
		ParentID:    RootFolderID,
		DisplayName: "Tasks",
		Domain:      DomainTask,
		ContainerID: DefaultContainer,
		Kind:        KindTasks,
	})
	lists, err := e.db.ListTaskLists(sess.UserID())
	if err != nil {
		return nil, err
	}
	for _, list := range lists {
		out = append(out, FolderDescriptor{
			ID:          FormatFolderID(DomainTask, list.ID),
			ParentID:    FormatFolderID(DomainTask, DefaultContainer),
			DisplayName: list.Title,
			Domain:      DomainTask,
			ContainerID: list.ID,
			Kind:        KindUserTasks,
		})
	}

	out = append(out, FolderDescriptor{
		ID:          idContacts,
		ParentID:    RootFolderID,
		DisplayName: "Contacts",
		Domain:      DomainContact,
		Kind:        KindContacts,
	})
	return out, nil
}

// ResolveFolder maps a folder identifier to its descriptor, or
// ErrNotFound when the container does not exist.
func (e *Engine) ResolveFolder(sess *Session, folderID string) (*FolderDescriptor, error) {
	domain, containerID, ok := ParseFolderID(folderID)
	if !ok {
		return nil, ErrNotFound
	}
	switch domain {
	case DomainMail:
		for _, sys := range systemMailFolders {
			if sys.id == containerID {
				return &FolderDescriptor{
					ID: folderID, ParentID: RootFolderID, DisplayName: sys.title,
					Domain: domain, ContainerID: containerID, Kind: sys.kind,
				}, nil
			}
		}
		f, err := e.db.FindMailFolder(sess.UserID(), containerID)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, ErrNotFound
		}
		parent := RootFolderID
		if f.Parent > 0 {
			parent = FormatFolderID(DomainMail, f.Parent)
		}
		return &FolderDescriptor{
			ID: folderID, ParentID: parent, DisplayName: f.Title,
			Domain: domain, ContainerID: containerID, Kind: KindUserMail,
		}, nil
	case DomainCalendar:
		if containerID == DefaultContainer {
			return &FolderDescriptor{
				ID: FormatFolderID(domain, containerID), ParentID: RootFolderID,
				DisplayName: "Calendar",
				Domain:      domain, ContainerID: containerID, Kind: KindCalendar,
			}, nil
		}
		cal, err := e.db.FindCalendar(sess.UserID(), containerID)
		if err != nil {
			return nil, err
		}
		if cal == nil {
			return nil, ErrNotFound
		}
		return &FolderDescriptor{
			ID: folderID, ParentID: FormatFolderID(domain, DefaultContainer),
			DisplayName: cal.Title,
			Domain:      domain, ContainerID: containerID, Kind: KindUserCalendar,
		}, nil
	case DomainTask:
		if containerID == DefaultContainer {
			return &FolderDescriptor{
				ID: FormatFolderID(domain, containerID), ParentID: RootFolderID,
				DisplayName: "Tasks",
				Domain:      domain, ContainerID: containerID, Kind: KindTasks,
			}, nil
		}
		list, err := e.db.FindTaskList(sess.UserID(), containerID)
		if err != nil {
			return nil, err
		}
		if list == nil {
			return nil, ErrNotFound
		}
		return &FolderDescriptor{
			ID: folderID, ParentID: FormatFolderID(domain, DefaultContainer),
			DisplayName: list.Title,
			Domain:      domain, ContainerID: containerID, Kind: KindUserTasks,
		}, nil
	case DomainContact:
		return &FolderDescriptor{
			ID: idContacts, ParentID: RootFolderID, DisplayName: "Contacts",
			Domain: domain, Kind: KindContacts,
		}, nil
	}
	return nil, ErrNotFound
}

// CreateOrRenameFolder creates a container under parentID when
// existingID is empty, and renames the container existingID otherwise.
// System containers cannot be renamed. Both paths bump the structure and
// content generation counters.
func (e *Engine) CreateOrRenameFolder(sess *Session, parentID, existingID, displayName string) (*FolderDescriptor, error) {
	title := sanitizeFolderTitle(displayName)
	if title == "" {
		return nil, fmt.Errorf("folder name must not be empty")
	}

	if existingID != "" {
		domain, containerID, ok := ParseFolderID(existingID)
		if !ok {
			return nil, ErrNotFound
		}
		switch domain {
		case DomainMail:
			if containerID <= 0 {
				return nil, ErrUnsupported
			}
			f, err := e.db.FindMailFolder(sess.UserID(), containerID)
			if err != nil {
				return nil, err
			}
			if f == nil {
				return nil, ErrNotFound
			}
			if err := e.db.RenameMailFolder(sess.UserID(), containerID, title); err != nil {
				return nil, err
			}
		case DomainCalendar:
			if containerID <= 0 {
				return nil, ErrUnsupported
			}
			cal, err := e.db.FindCalendar(sess.UserID(), containerID)
			if err != nil {
				return nil, err
			}
			if cal == nil {
				return nil, ErrNotFound
			}
			if err := e.db.RenameCalendar(sess.UserID(), containerID, title); err != nil {
				return nil, err
			}
		case DomainTask:
			if containerID <= 0 {
				return nil, ErrUnsupported
			}
			list, err := e.db.FindTaskList(sess.UserID(), containerID)
			if err != nil {
				return nil, err
			}
			if list == nil {
				return nil, ErrNotFound
			}
			if err := e.db.RenameTaskList(sess.UserID(), containerID, title); err != nil {
				return nil, err
			}
		default:
			return nil, ErrUnsupported
		}
		if err := e.bumpStructure(sess); err != nil {
			return nil, err
		}
		return e.ResolveFolder(sess, existingID)
	}

	// Creation: the parent decides the domain. The root creates a
	// top-level mail folder.
	switch {
	case parentID == RootFolderID || parentID == "":
		id, err := e.db.CreateMailFolder(sess.UserID(), title, -1)
		if err != nil {
			return nil, err
		}
		if err := e.bumpStructure(sess); err != nil {
			return nil, err
		}
		return e.ResolveFolder(sess, FormatFolderID(DomainMail, id))
	default:
		domain, containerID, ok := ParseFolderID(parentID)
		if !ok {
			return nil, ErrNotFound
		}
		switch domain {
		case DomainMail:
			parent := containerID
			if parent <= 0 {
				parent = -1
			}
			id, err := e.db.CreateMailFolder(sess.UserID(), title, parent)
			if err != nil {
				return nil, err
			}
			if err := e.bumpStructure(sess); err != nil {
				return nil, err
			}
			return e.ResolveFolder(sess, FormatFolderID(DomainMail, id))
		case DomainCalendar:
			id, err := e.db.CreateCalendar(sess.UserID(), title)
			if err != nil {
				return nil, err
			}
			if err := e.bumpStructure(sess); err != nil {
				return nil, err
			}
			return e.ResolveFolder(sess, FormatFolderID(DomainCalendar, id))
		case DomainTask:
			id, err := e.db.CreateTaskList(sess.UserID(), title)
			if err != nil {
				return nil, err
			}
			if err := e.bumpStructure(sess); err != nil {
				return nil, err
			}
			return e.ResolveFolder(sess, FormatFolderID(DomainTask, id))
		default:
			return nil, ErrUnsupported
		}
	}
}

// DeleteFolder removes a user-created container. Mail folders delete
// depth-first with their messages preserved in the trash; task lists
// hard-delete their tasks; calendars delete their events. System
// containers are never deleted.
func (e *Engine) DeleteFolder(sess *Session, folderID string) (bool, error) {
	domain, containerID, ok := ParseFolderID(folderID)
	if !ok || containerID <= 0 {
		return false, nil
	}
	now := e.clock.Now().Unix()

	switch domain {
	case DomainMail:
		f, err := e.db.FindMailFolder(sess.UserID(), containerID)
		if err != nil {
			return false, err
		}
		if f == nil {
			return false, nil
		}
		removed, err := e.db.DeleteMailFolderTree(sess.UserID(), containerID, now)
		if err != nil {
			return false, err
		}
		// One structure and one content bump per folder level removed.
		for i := 0; i < removed; i++ {
			if err := e.bumpStructure(sess); err != nil {
				return false, err
			}
		}
		return true, nil
	case DomainCalendar:
		cal, err := e.db.FindCalendar(sess.UserID(), containerID)
		if err != nil {
			return false, err
		}
		if cal == nil {
			return false, nil
		}
		if err := e.db.DeleteCalendar(sess.UserID(), containerID, now); err != nil {
			return false, err
		}
		if err := e.bumpStructure(sess); err != nil {
			return false, err
		}
		return true, nil
	case DomainTask:
		list, err := e.db.FindTaskList(sess.UserID(), containerID)
		if err != nil {
			return false, err
		}
		if list == nil {
			return false, nil
		}
		if err := e.db.DeleteTaskList(sess.UserID(), containerID, now); err != nil {
			return false, err
		}
		if err := e.bumpStructure(sess); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// bumpStructure increments both generation counters: structure changes
// affect visible content too.
func (e *Engine) bumpStructure(sess *Session) error {
	if err := e.db.BumpGeneration(sess.UserID()); err != nil {
		return err
	}
	return e.db.BumpStructureGeneration(sess.UserID())
}

// Item operations

// ListItems enumerates the items of one container as (id, modification
// marker, flag) triples. cutoff limits mail listings by receipt time and
// is ignored by the other domains.
func (e *Engine) ListItems(sess *Session, folderID string, cutoff int64) ([]model.ItemStat, error) {
	t, _, containerID, err := e.dispatch(folderID)
	if err != nil {
		return nil, err
	}
	return t.List(sess, containerID, cutoff)
}

// StatItem returns the stat triple of a single item, or nil when the
// item does not exist.
func (e *Engine) StatItem(sess *Session, folderID string, itemID int64) (*model.ItemStat, error) {
	t, _, _, err := e.dispatch(folderID)
	if err != nil {
		return nil, err
	}
	return t.Stat(sess, itemID)
}

// FetchItem renders one item into its protocol-neutral form.
func (e *Engine) FetchItem(sess *Session, folderID string, itemID int64, opts RenderOptions) (Item, error) {
	t, _, _, err := e.dispatch(folderID)
	if err != nil {
		return nil, err
	}
	return t.Fetch(sess, itemID, opts)
}

// ApplyItem creates (itemID zero) or updates an item from its
// protocol-neutral form and returns the item's ID. The item's domain
// must match the target folder.
func (e *Engine) ApplyItem(sess *Session, folderID string, itemID int64, item Item) (int64, error) {
	t, domain, containerID, err := e.dispatch(folderID)
	if err != nil {
		return 0, err
	}
	if item.itemDomain() != domain {
		return 0, ErrUnsupported
	}
	return t.Apply(sess, containerID, itemID, item)
}

// DeleteItem removes one item. A missing item reports false, not an
// error.
func (e *Engine) DeleteItem(sess *Session, folderID string, itemID int64) (bool, error) {
	t, _, _, err := e.dispatch(folderID)
	if err != nil {
		return false, err
	}
	return t.Delete(sess, itemID)
}

// MoveItem transfers an item between two containers of the same domain.
// Cross-domain targets are unsupported.
func (e *Engine) MoveItem(sess *Session, itemID int64, srcFolderID, dstFolderID string) (bool, error) {
	t, srcDomain, _, err := e.dispatch(srcFolderID)
	if err != nil {
		return false, err
	}
	dstDomain, dstContainer, ok := ParseFolderID(dstFolderID)
	if !ok {
		return false, ErrNotFound
	}
	if srcDomain != dstDomain {
		return false, ErrUnsupported
	}
	return t.Move(sess, itemID, dstContainer)
}

// SetReadFlag toggles the read state of a message. Only mail folders
// carry a read flag.
func (e *Engine) SetReadFlag(sess *Session, folderID string, itemID int64, read bool) (bool, error) {
	t, domain, _, err := e.dispatch(folderID)
	if err != nil {
		return false, err
	}
	if domain != DomainMail {
		return false, ErrUnsupported
	}
	return t.(*mailTranscoder).setReadFlag(sess, itemID, read)
}

// Change-log helpers shared by the calendar, task and contact
// transcoders: the modification marker is max(created, updated).

func (e *Engine) changeMarkers(userID int64, kind int) (map[int64]int64, error) {
	entries, err := e.db.ListChangeEntries(userID, kind)
	if err != nil {
		return nil, err
	}
	mods := make(map[int64]int64, len(entries))
	for _, entry := range entries {
		mods[entry.ItemID] = maxInt64(entry.Created, entry.Updated)
	}
	return mods, nil
}

func (e *Engine) changeMarker(kind int, itemID int64) (int64, error) {
	entry, err := e.db.FindChangeEntry(kind, itemID)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, nil
	}
	return maxInt64(entry.Created, entry.Updated), nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
