package database_test

import (
	"testing"

	"groupsync/internal/model"
	"groupsync/internal/testutil"
)

func TestSQLiteDatabase_Accounts(t *testing.T) {
	t.Run("missing account reports nil without error", func(t *testing.T) {
		db, _ := testutil.NewTestDatabase(t)

		acct, err := db.FindAccountByEmail("nobody@example.com")
		if err != nil {
			t.Fatalf("FindAccountByEmail() error = %v", err)
		}
		if acct != nil {
			t.Errorf("FindAccountByEmail() = %+v, want nil", acct)
		}
	})

	t.Run("record send updates the stamp and counter", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")

		if err := db.RecordSend(userID, 1700000000, 1); err != nil {
			t.Fatalf("RecordSend() error = %v", err)
		}
		if err := db.RecordSend(userID, 1700000100, 3); err != nil {
			t.Fatalf("RecordSend() error = %v", err)
		}

		acct, err := db.FindAccountByID(userID)
		if err != nil {
			t.Fatalf("FindAccountByID() error = %v", err)
		}
		if acct.LastSend != 1700000100 {
			t.Errorf("last send = %d, want 1700000100", acct.LastSend)
		}
		if acct.SentMails != 4 {
			t.Errorf("sent mails = %d, want 4", acct.SentMails)
		}
	})

	t.Run("space accounting goes both directions", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")

		if err := db.AddSpaceUsed(userID, 700); err != nil {
			t.Fatalf("AddSpaceUsed() error = %v", err)
		}
		if err := db.AddSpaceUsed(userID, -200); err != nil {
			t.Fatalf("AddSpaceUsed() error = %v", err)
		}
		acct, err := db.FindAccountByID(userID)
		if err != nil {
			t.Fatalf("FindAccountByID() error = %v", err)
		}
		if acct.SpaceUsed != 500 {
			t.Errorf("space used = %d, want 500", acct.SpaceUsed)
		}
	})

	t.Run("space used never drops below zero", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")

		if err := db.AddSpaceUsed(userID, 100); err != nil {
			t.Fatalf("AddSpaceUsed() error = %v", err)
		}
		if err := db.AddSpaceUsed(userID, -900); err != nil {
			t.Fatalf("AddSpaceUsed() error = %v", err)
		}
		acct, err := db.FindAccountByID(userID)
		if err != nil {
			t.Fatalf("FindAccountByID() error = %v", err)
		}
		if acct.SpaceUsed != 0 {
			t.Errorf("space used = %d, want 0", acct.SpaceUsed)
		}
	})

	t.Run("workgroup addresses skip blank entries", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")
		other := testutil.SeedAccountWith(t, conn, testutil.AccountSpec{
			Email: "other@example.com", Password: "x", GroupID: 1,
		})
		testutil.SeedWorkgroup(t, conn, "sales", "sales@example.com", userID, other)
		testutil.SeedWorkgroup(t, conn, "internal", "", userID)
		testutil.SeedWorkgroup(t, conn, "unrelated", "ops@example.com", other)

		addrs, err := db.FindWorkgroupAddresses(userID)
		if err != nil {
			t.Fatalf("FindWorkgroupAddresses() error = %v", err)
		}
		if len(addrs) != 1 || addrs[0] != "sales@example.com" {
			t.Errorf("addresses = %v, want [sales@example.com]", addrs)
		}
	})
}

func TestSQLiteDatabase_Messages(t *testing.T) {
	t.Run("delete returns the removed row and releases quota", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")
		if err := db.AddSpaceUsed(userID, 800); err != nil {
			t.Fatalf("AddSpaceUsed() error = %v", err)
		}
		id, err := db.InsertMessage(&model.Message{
			UserID: userID, Subject: "bye", Folder: model.FolderInbox, Size: 800,
		})
		if err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}

		msg, err := db.DeleteMessage(userID, id)
		if err != nil {
			t.Fatalf("DeleteMessage() error = %v", err)
		}
		if msg == nil || msg.Subject != "bye" {
			t.Fatalf("DeleteMessage() = %+v, want the removed row", msg)
		}
		acct, err := db.FindAccountByID(userID)
		if err != nil {
			t.Fatalf("FindAccountByID() error = %v", err)
		}
		if acct.SpaceUsed != 0 {
			t.Errorf("space used = %d, want 0", acct.SpaceUsed)
		}
	})

	t.Run("delete of an oversized row floors quota at zero", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")
		if err := db.AddSpaceUsed(userID, 300); err != nil {
			t.Fatalf("AddSpaceUsed() error = %v", err)
		}
		id, err := db.InsertMessage(&model.Message{
			UserID: userID, Subject: "big", Folder: model.FolderInbox, Size: 900,
		})
		if err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}

		if _, err := db.DeleteMessage(userID, id); err != nil {
			t.Fatalf("DeleteMessage() error = %v", err)
		}
		acct, err := db.FindAccountByID(userID)
		if err != nil {
			t.Fatalf("FindAccountByID() error = %v", err)
		}
		if acct.SpaceUsed != 0 {
			t.Errorf("space used = %d, want 0", acct.SpaceUsed)
		}
	})

	t.Run("delete of a missing row is a no-op", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")

		msg, err := db.DeleteMessage(userID, 999)
		if err != nil {
			t.Fatalf("DeleteMessage() error = %v", err)
		}
		if msg != nil {
			t.Errorf("DeleteMessage() = %+v, want nil", msg)
		}
	})

	t.Run("move stamps only trash targets", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")
		folderID, err := db.CreateMailFolder(userID, "Archive", -1)
		if err != nil {
			t.Fatalf("CreateMailFolder() error = %v", err)
		}
		id, err := db.InsertMessage(&model.Message{
			UserID: userID, Subject: "wander", Folder: model.FolderInbox,
		})
		if err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}

		if err := db.MoveMessage(userID, id, folderID, 1700000000); err != nil {
			t.Fatalf("MoveMessage() error = %v", err)
		}
		msg, err := db.FindMessage(userID, id)
		if err != nil {
			t.Fatalf("FindMessage() error = %v", err)
		}
		if msg.Folder != folderID {
			t.Errorf("folder = %d, want %d", msg.Folder, folderID)
		}
		if msg.TrashStamp != 0 {
			t.Errorf("trash stamp = %d, want 0 for a non-trash move", msg.TrashStamp)
		}

		if err := db.MoveMessage(userID, id, model.FolderTrash, 1700000000); err != nil {
			t.Fatalf("MoveMessage() error = %v", err)
		}
		msg, err = db.FindMessage(userID, id)
		if err != nil {
			t.Fatalf("FindMessage() error = %v", err)
		}
		if msg.TrashStamp != 1700000000 {
			t.Errorf("trash stamp = %d, want 1700000000", msg.TrashStamp)
		}
	})

	t.Run("messages are scoped to their account", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		alice := testutil.SeedAccount(t, conn, "alice@example.com", "secret")
		bob := testutil.SeedAccountWith(t, conn, testutil.AccountSpec{
			Email: "bob@example.com", Password: "x", GroupID: 1,
		})
		id, err := db.InsertMessage(&model.Message{
			UserID: alice, Subject: "private", Folder: model.FolderInbox,
		})
		if err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}

		msg, err := db.FindMessage(bob, id)
		if err != nil {
			t.Fatalf("FindMessage() error = %v", err)
		}
		if msg != nil {
			t.Error("another account's message was visible")
		}
	})
}

func TestSQLiteDatabase_Attendees(t *testing.T) {
	t.Run("prefers the work address when the contact says so", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")

		homeID, err := db.InsertContact(&model.Contact{
			UserID: userID, FirstName: "Holly", LastName: "Home",
			Email: "holly@example.com", WorkEmail: "holly@corp.example.com",
		})
		if err != nil {
			t.Fatalf("InsertContact() error = %v", err)
		}
		workID, err := db.InsertContact(&model.Contact{
			UserID: userID, FirstName: "Walter", LastName: "Work",
			Email: "walter@example.com", WorkEmail: "walter@corp.example.com",
			DefaultAddress: 2,
		})
		if err != nil {
			t.Fatalf("InsertContact() error = %v", err)
		}
		eventID, err := db.InsertEvent(&model.Event{
			UserID: userID, CalendarID: -1, Title: "sync", Start: 1, End: 2,
		})
		if err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
		if err := db.ReplaceAttendees(eventID, []int64{homeID, workID}); err != nil {
			t.Fatalf("ReplaceAttendees() error = %v", err)
		}

		attendees, err := db.FindAttendees(eventID)
		if err != nil {
			t.Fatalf("FindAttendees() error = %v", err)
		}
		if len(attendees) != 2 {
			t.Fatalf("attendee count = %d, want 2", len(attendees))
		}
		byName := make(map[string]string)
		for _, a := range attendees {
			byName[a.Name] = a.Email
		}
		if byName["Holly Home"] != "holly@example.com" {
			t.Errorf("home-preferring contact = %q, want the home address", byName["Holly Home"])
		}
		if byName["Walter Work"] != "walter@corp.example.com" {
			t.Errorf("work-preferring contact = %q, want the work address", byName["Walter Work"])
		}
	})

	t.Run("replace swaps the attendee set", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")

		a, err := db.InsertContact(&model.Contact{UserID: userID, FirstName: "A", Email: "a@example.com"})
		if err != nil {
			t.Fatalf("InsertContact() error = %v", err)
		}
		b, err := db.InsertContact(&model.Contact{UserID: userID, FirstName: "B", Email: "b@example.com"})
		if err != nil {
			t.Fatalf("InsertContact() error = %v", err)
		}
		eventID, err := db.InsertEvent(&model.Event{
			UserID: userID, CalendarID: -1, Title: "sync", Start: 1, End: 2,
		})
		if err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}

		if err := db.ReplaceAttendees(eventID, []int64{a}); err != nil {
			t.Fatalf("ReplaceAttendees() error = %v", err)
		}
		if err := db.ReplaceAttendees(eventID, []int64{b}); err != nil {
			t.Fatalf("ReplaceAttendees() error = %v", err)
		}

		attendees, err := db.FindAttendees(eventID)
		if err != nil {
			t.Fatalf("FindAttendees() error = %v", err)
		}
		if len(attendees) != 1 || attendees[0].Email != "b@example.com" {
			t.Errorf("attendees = %+v, want only b@example.com", attendees)
		}
	})
}

func TestSQLiteDatabase_FolderTree(t *testing.T) {
	t.Run("counts removed levels in a deep tree", func(t *testing.T) {
		db, conn := testutil.NewTestDatabase(t)
		userID := testutil.SeedAccount(t, conn, "user@example.com", "secret")

		top, err := db.CreateMailFolder(userID, "a", -1)
		if err != nil {
			t.Fatalf("CreateMailFolder() error = %v", err)
		}
		mid, err := db.CreateMailFolder(userID, "b", top)
		if err != nil {
			t.Fatalf("CreateMailFolder() error = %v", err)
		}
		if _, err := db.CreateMailFolder(userID, "c", mid); err != nil {
			t.Fatalf("CreateMailFolder() error = %v", err)
		}

		removed, err := db.DeleteMailFolderTree(userID, top, 1700000000)
		if err != nil {
			t.Fatalf("DeleteMailFolderTree() error = %v", err)
		}
		if removed != 3 {
			t.Errorf("removed = %d, want 3", removed)
		}
		folders, err := db.ListMailFolders(userID)
		if err != nil {
			t.Fatalf("ListMailFolders() error = %v", err)
		}
		if len(folders) != 0 {
			t.Errorf("remaining folders = %d, want 0", len(folders))
		}
	})
}
