package engine_test

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"groupsync/internal/database"
	"groupsync/internal/engine"
	"groupsync/internal/model"
	"groupsync/internal/testutil"
)

// fixture wires an Engine to an in-memory store with one authenticated
// account.
type fixture struct {
	Engine    *engine.Engine
	Session   *engine.Session
	DB        *database.SQLiteDatabase
	Conn      *sqlx.DB
	Transport *testutil.StubTransport
	Blobs     *testutil.MemoryOpener
	Clock     *testutil.StubClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, conn := testutil.NewTestDatabase(t)
	testutil.SeedAccount(t, conn, "alice@example.com", "secret")

	f := &fixture{
		DB:        db,
		Conn:      conn,
		Transport: testutil.NewStubTransport(),
		Blobs:     testutil.NewMemoryOpener(),
		Clock:     testutil.FixedClock(),
	}
	f.Engine = engine.NewEngine(db, f.Blobs, f.Transport, engine.NewNopLogger(),
		f.Clock, testutil.NewStubIDGenerator(), "mail.example.com", 32*1024)

	sess, err := f.Engine.Authenticate("alice@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	f.Session = sess
	return f
}

// generations reads the account's counters straight from the store.
func (f *fixture) generations(t *testing.T) (content, structure int64) {
	t.Helper()

	acct, err := f.DB.FindAccountByID(f.Session.UserID())
	if err != nil {
		t.Fatalf("FindAccountByID() error = %v", err)
	}
	if acct == nil {
		t.Fatal("account row disappeared")
	}
	return acct.Generation, acct.StructureGeneration
}

func TestEngine_ListFolders(t *testing.T) {
	t.Run("fresh account has system folders and defaults only", func(t *testing.T) {
		f := newFixture(t)

		folders, err := f.Engine.ListFolders(f.Session)
		if err != nil {
			t.Fatalf("ListFolders() error = %v", err)
		}

		// 5 system mail folders, default calendar, default tasks, contacts.
		if len(folders) != 8 {
			t.Fatalf("ListFolders() count = %d, want 8", len(folders))
		}
		byID := make(map[string]engine.FolderDescriptor)
		for _, fd := range folders {
			byID[fd.ID] = fd
		}
		for _, want := range []string{".email:0", ".email:-2", ".email:-3", ".email:-4", ".email:-5", ".dates:0", ".tasks:0", ".contacts"} {
			if _, ok := byID[want]; !ok {
				t.Errorf("ListFolders() missing %q", want)
			}
		}
		if got := byID[".email:0"].DisplayName; got != "Inbox" {
			t.Errorf("inbox display name = %q, want Inbox", got)
		}
		if got := byID[".email:-5"].Kind; got != engine.KindTrash {
			t.Errorf("trash kind = %v, want KindTrash", got)
		}
	})

	t.Run("user calendars and task lists parent under the defaults", func(t *testing.T) {
		f := newFixture(t)
		userID := f.Session.UserID()

		calID, err := f.DB.CreateCalendar(userID, "Team")
		if err != nil {
			t.Fatalf("CreateCalendar() error = %v", err)
		}
		listID, err := f.DB.CreateTaskList(userID, "Projects")
		if err != nil {
			t.Fatalf("CreateTaskList() error = %v", err)
		}

		folders, err := f.Engine.ListFolders(f.Session)
		if err != nil {
			t.Fatalf("ListFolders() error = %v", err)
		}
		byID := make(map[string]engine.FolderDescriptor)
		for _, fd := range folders {
			byID[fd.ID] = fd
		}
		cal, ok := byID[engine.FormatFolderID(engine.DomainCalendar, calID)]
		if !ok {
			t.Fatal("user calendar not listed")
		}
		if cal.ParentID != ".dates:0" {
			t.Errorf("calendar parent = %q, want .dates:0", cal.ParentID)
		}
		list, ok := byID[engine.FormatFolderID(engine.DomainTask, listID)]
		if !ok {
			t.Fatal("user task list not listed")
		}
		if list.ParentID != ".tasks:0" {
			t.Errorf("task list parent = %q, want .tasks:0", list.ParentID)
		}
	})

	t.Run("filter folders are not listed", func(t *testing.T) {
		f := newFixture(t)

		if _, err := f.Conn.Exec(
			`INSERT INTO folders (user_id, title, parent, smart) VALUES (?, 'Filtered', -1, 1)`,
			f.Session.UserID()); err != nil {
			t.Fatalf("seeding folder: %v", err)
		}

		folders, err := f.Engine.ListFolders(f.Session)
		if err != nil {
			t.Fatalf("ListFolders() error = %v", err)
		}
		for _, fd := range folders {
			if fd.DisplayName == "Filtered" {
				t.Error("ListFolders() included a filter folder")
			}
		}
	})

	t.Run("nested mail folder carries its parent's identifier", func(t *testing.T) {
		f := newFixture(t)

		parent, err := f.Engine.CreateOrRenameFolder(f.Session, engine.RootFolderID, "", "Projects")
		if err != nil {
			t.Fatalf("CreateOrRenameFolder() error = %v", err)
		}
		child, err := f.Engine.CreateOrRenameFolder(f.Session, parent.ID, "", "Alpha")
		if err != nil {
			t.Fatalf("CreateOrRenameFolder() error = %v", err)
		}
		if child.ParentID != parent.ID {
			t.Errorf("child parent = %q, want %q", child.ParentID, parent.ID)
		}
	})
}

func TestEngine_ResolveFolder(t *testing.T) {
	t.Run("default container aliases resolve to the canonical id", func(t *testing.T) {
		f := newFixture(t)

		for _, alias := range []string{".dates:0", ".dates:-1"} {
			fd, err := f.Engine.ResolveFolder(f.Session, alias)
			if err != nil {
				t.Fatalf("ResolveFolder(%q) error = %v", alias, err)
			}
			if fd.ID != ".dates:0" {
				t.Errorf("ResolveFolder(%q) id = %q, want .dates:0", alias, fd.ID)
			}
			if fd.ContainerID != engine.DefaultContainer {
				t.Errorf("ResolveFolder(%q) container = %d, want %d", alias, fd.ContainerID, engine.DefaultContainer)
			}
		}

		fd, err := f.Engine.ResolveFolder(f.Session, ".tasks:0")
		if err != nil {
			t.Fatalf("ResolveFolder(.tasks:0) error = %v", err)
		}
		if fd.ID != ".tasks:0" || fd.DisplayName != "Tasks" {
			t.Errorf("ResolveFolder(.tasks:0) = %+v, want the default task list", fd)
		}
	})

	t.Run("missing user containers report not found", func(t *testing.T) {
		f := newFixture(t)

		if _, err := f.Engine.ResolveFolder(f.Session, ".dates:99"); !errors.Is(err, engine.ErrNotFound) {
			t.Errorf("ResolveFolder(.dates:99) error = %v, want ErrNotFound", err)
		}
	})
}

func TestEngine_CreateOrRenameFolder(t *testing.T) {
	t.Run("create under root makes a mail folder", func(t *testing.T) {
		f := newFixture(t)

		fd, err := f.Engine.CreateOrRenameFolder(f.Session, engine.RootFolderID, "", "Archive")
		if err != nil {
			t.Fatalf("CreateOrRenameFolder() error = %v", err)
		}
		if fd.Domain != engine.DomainMail {
			t.Errorf("domain = %v, want DomainMail", fd.Domain)
		}
		if fd.DisplayName != "Archive" {
			t.Errorf("display name = %q, want Archive", fd.DisplayName)
		}
	})

	t.Run("create under default calendar makes a calendar", func(t *testing.T) {
		f := newFixture(t)

		fd, err := f.Engine.CreateOrRenameFolder(f.Session, ".dates:-1", "", "Team")
		if err != nil {
			t.Fatalf("CreateOrRenameFolder() error = %v", err)
		}
		if fd.Domain != engine.DomainCalendar {
			t.Errorf("domain = %v, want DomainCalendar", fd.Domain)
		}
	})

	t.Run("create under contacts is unsupported", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.Engine.CreateOrRenameFolder(f.Session, ".contacts", "", "More Contacts")
		if !errors.Is(err, engine.ErrUnsupported) {
			t.Errorf("CreateOrRenameFolder() error = %v, want ErrUnsupported", err)
		}
	})

	t.Run("rename bumps both generation counters once", func(t *testing.T) {
		f := newFixture(t)

		fd, err := f.Engine.CreateOrRenameFolder(f.Session, engine.RootFolderID, "", "Old Name")
		if err != nil {
			t.Fatalf("CreateOrRenameFolder() error = %v", err)
		}
		contentBefore, structureBefore := f.generations(t)

		renamed, err := f.Engine.CreateOrRenameFolder(f.Session, "", fd.ID, "New Name")
		if err != nil {
			t.Fatalf("rename error = %v", err)
		}
		if renamed.DisplayName != "New Name" {
			t.Errorf("display name = %q, want New Name", renamed.DisplayName)
		}

		content, structure := f.generations(t)
		if content != contentBefore+1 {
			t.Errorf("content generation = %d, want %d", content, contentBefore+1)
		}
		if structure != structureBefore+1 {
			t.Errorf("structure generation = %d, want %d", structure, structureBefore+1)
		}
	})

	t.Run("system folders cannot be renamed", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.Engine.CreateOrRenameFolder(f.Session, "", ".email:0", "Not Inbox")
		if !errors.Is(err, engine.ErrUnsupported) {
			t.Errorf("rename inbox error = %v, want ErrUnsupported", err)
		}
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		f := newFixture(t)

		if _, err := f.Engine.CreateOrRenameFolder(f.Session, engine.RootFolderID, "", "   "); err == nil {
			t.Error("CreateOrRenameFolder() with blank name succeeded")
		}
	})
}

func TestEngine_DeleteFolder(t *testing.T) {
	t.Run("system folders are never deleted", func(t *testing.T) {
		f := newFixture(t)

		ok, err := f.Engine.DeleteFolder(f.Session, ".email:0")
		if err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}
		if ok {
			t.Error("DeleteFolder() deleted the inbox")
		}
	})

	t.Run("recursive mail delete moves messages to trash", func(t *testing.T) {
		f := newFixture(t)
		userID := f.Session.UserID()

		parent, err := f.DB.CreateMailFolder(userID, "Projects", -1)
		if err != nil {
			t.Fatalf("CreateMailFolder() error = %v", err)
		}
		child, err := f.DB.CreateMailFolder(userID, "Alpha", parent)
		if err != nil {
			t.Fatalf("CreateMailFolder() error = %v", err)
		}
		for i, folder := range []int64{parent, parent, parent, child} {
			if _, err := f.DB.InsertMessage(&model.Message{
				UserID: userID, Subject: "m", Folder: folder, Received: int64(1000 + i),
			}); err != nil {
				t.Fatalf("InsertMessage() error = %v", err)
			}
		}
		contentBefore, structureBefore := f.generations(t)

		ok, err := f.Engine.DeleteFolder(f.Session, engine.FormatFolderID(engine.DomainMail, parent))
		if err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}
		if !ok {
			t.Fatal("DeleteFolder() = false, want true")
		}

		// Both folder rows are gone.
		for _, id := range []int64{parent, child} {
			folder, err := f.DB.FindMailFolder(userID, id)
			if err != nil {
				t.Fatalf("FindMailFolder() error = %v", err)
			}
			if folder != nil {
				t.Errorf("folder %d still exists", id)
			}
		}

		// All four messages are in the trash with a fresh trash stamp.
		trashed, err := f.DB.ListMessages(userID, model.FolderTrash, 0)
		if err != nil {
			t.Fatalf("ListMessages() error = %v", err)
		}
		if len(trashed) != 4 {
			t.Fatalf("trash count = %d, want 4", len(trashed))
		}
		now := f.Clock.Now().Unix()
		for _, msg := range trashed {
			if msg.TrashStamp != now {
				t.Errorf("trash stamp = %d, want %d", msg.TrashStamp, now)
			}
		}

		// One bump pair per removed folder level.
		content, structure := f.generations(t)
		if content != contentBefore+2 {
			t.Errorf("content generation = %d, want %d", content, contentBefore+2)
		}
		if structure != structureBefore+2 {
			t.Errorf("structure generation = %d, want %d", structure, structureBefore+2)
		}
	})

	t.Run("deleting a calendar stamps its events deleted", func(t *testing.T) {
		f := newFixture(t)
		userID := f.Session.UserID()

		calID, err := f.DB.CreateCalendar(userID, "Team")
		if err != nil {
			t.Fatalf("CreateCalendar() error = %v", err)
		}
		eventID, err := f.DB.InsertEvent(&model.Event{
			UserID: userID, CalendarID: calID, Title: "standup", Start: 1000, End: 2000,
		})
		if err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}

		ok, err := f.Engine.DeleteFolder(f.Session, engine.FormatFolderID(engine.DomainCalendar, calID))
		if err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}
		if !ok {
			t.Fatal("DeleteFolder() = false, want true")
		}

		event, err := f.DB.FindEvent(userID, eventID)
		if err != nil {
			t.Fatalf("FindEvent() error = %v", err)
		}
		if event != nil {
			t.Error("event row survived calendar delete")
		}
		entry, err := f.DB.FindChangeEntry(model.ChangeKindEvent, eventID)
		if err != nil {
			t.Fatalf("FindChangeEntry() error = %v", err)
		}
		if entry == nil || entry.Deleted != f.Clock.Now().Unix() {
			t.Errorf("change entry = %+v, want deleted at %d", entry, f.Clock.Now().Unix())
		}
	})

	t.Run("missing folder reports false without error", func(t *testing.T) {
		f := newFixture(t)

		ok, err := f.Engine.DeleteFolder(f.Session, ".email:9999")
		if err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}
		if ok {
			t.Error("DeleteFolder() = true for a missing folder")
		}
	})
}

func TestEngine_MoveItem(t *testing.T) {
	t.Run("cross-domain move is unsupported", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.Engine.MoveItem(f.Session, 1, ".email:0", ".dates:-1")
		if !errors.Is(err, engine.ErrUnsupported) {
			t.Errorf("MoveItem() error = %v, want ErrUnsupported", err)
		}
	})

	t.Run("moving a message to trash sets the trash stamp", func(t *testing.T) {
		f := newFixture(t)
		userID := f.Session.UserID()

		msgID, err := f.DB.InsertMessage(&model.Message{
			UserID: userID, Subject: "hi", Folder: model.FolderInbox, Received: 1000,
		})
		if err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}

		ok, err := f.Engine.MoveItem(f.Session, msgID, ".email:0", engine.Wastebasket())
		if err != nil {
			t.Fatalf("MoveItem() error = %v", err)
		}
		if !ok {
			t.Fatal("MoveItem() = false, want true")
		}

		msg, err := f.DB.FindMessage(userID, msgID)
		if err != nil {
			t.Fatalf("FindMessage() error = %v", err)
		}
		if msg.Folder != model.FolderTrash {
			t.Errorf("folder = %d, want %d", msg.Folder, model.FolderTrash)
		}
		if msg.TrashStamp != f.Clock.Now().Unix() {
			t.Errorf("trash stamp = %d, want %d", msg.TrashStamp, f.Clock.Now().Unix())
		}
	})

	t.Run("moving a message to a missing folder reports false", func(t *testing.T) {
		f := newFixture(t)
		userID := f.Session.UserID()

		msgID, err := f.DB.InsertMessage(&model.Message{
			UserID: userID, Subject: "hi", Folder: model.FolderInbox, Received: 1000,
		})
		if err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}

		ok, err := f.Engine.MoveItem(f.Session, msgID, ".email:0", ".email:424242")
		if err != nil {
			t.Fatalf("MoveItem() error = %v", err)
		}
		if ok {
			t.Error("MoveItem() = true for a missing target folder")
		}

		msg, err := f.DB.FindMessage(userID, msgID)
		if err != nil {
			t.Fatalf("FindMessage() error = %v", err)
		}
		if msg.Folder != model.FolderInbox {
			t.Errorf("folder = %d, message moved despite missing target", msg.Folder)
		}
	})
}

func TestEngine_SetReadFlag(t *testing.T) {
	t.Run("bumps the content generation only", func(t *testing.T) {
		f := newFixture(t)
		userID := f.Session.UserID()

		msgID, err := f.DB.InsertMessage(&model.Message{
			UserID: userID, Subject: "hi", Folder: model.FolderInbox,
			Received: 1000, Flags: model.MessageFlagUnread,
		})
		if err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}
		contentBefore, structureBefore := f.generations(t)

		ok, err := f.Engine.SetReadFlag(f.Session, ".email:0", msgID, true)
		if err != nil {
			t.Fatalf("SetReadFlag() error = %v", err)
		}
		if !ok {
			t.Fatal("SetReadFlag() = false, want true")
		}

		msg, err := f.DB.FindMessage(userID, msgID)
		if err != nil {
			t.Fatalf("FindMessage() error = %v", err)
		}
		if msg.Flags&model.MessageFlagUnread != 0 {
			t.Error("unread bit still set after marking read")
		}

		content, structure := f.generations(t)
		if content != contentBefore+1 {
			t.Errorf("content generation = %d, want %d", content, contentBefore+1)
		}
		if structure != structureBefore {
			t.Errorf("structure generation = %d, want %d", structure, structureBefore)
		}
	})

	t.Run("rejected outside the mail domain", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.Engine.SetReadFlag(f.Session, ".dates:-1", 1, true)
		if !errors.Is(err, engine.ErrUnsupported) {
			t.Errorf("SetReadFlag() error = %v, want ErrUnsupported", err)
		}
	})
}

func TestEngine_ApplyItem(t *testing.T) {
	t.Run("item domain must match the folder", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.Engine.ApplyItem(f.Session, ".dates:-1", 0, &engine.TaskItem{Subject: "x"})
		if !errors.Is(err, engine.ErrUnsupported) {
			t.Errorf("ApplyItem() error = %v, want ErrUnsupported", err)
		}
	})
}
