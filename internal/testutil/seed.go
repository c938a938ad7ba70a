package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"
)

// GroupSpec describes a permission group row to seed.
type GroupSpec struct {
	Title         string
	SyncAllowed   bool
	SendInterval  int64
	MaxRecipients int64
	StorageLimit  int64
}

// DefaultGroup is a permissive group: sync allowed, no send throttle,
// 50 recipients, unlimited storage.
func DefaultGroup() GroupSpec {
	return GroupSpec{Title: "default", SyncAllowed: true, MaxRecipients: 50}
}

// SeedGroup inserts a group row and returns its id.
func SeedGroup(t *testing.T, conn *sqlx.DB, spec GroupSpec) int64 {
	t.Helper()

	res, err := conn.Exec(
		`INSERT INTO groups (title, sync_allowed, send_interval, max_recipients, storage_limit) VALUES (?, ?, ?, ?, ?)`,
		spec.Title, boolInt(spec.SyncAllowed), spec.SendInterval, spec.MaxRecipients, spec.StorageLimit)
	if err != nil {
		t.Fatalf("failed to seed group: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get group id: %v", err)
	}
	return id
}

// AccountSpec describes an account row to seed. The password is stored
// salted and hashed the way the store expects.
type AccountSpec struct {
	Email     string
	Password  string
	Locked    bool
	GroupID   int64
	LastSend  int64
	SpaceUsed int64
}

const seedSalt = "0a1b2c3d"

// SeedAccountWith inserts an account row and returns its id.
func SeedAccountWith(t *testing.T, conn *sqlx.DB, spec AccountSpec) int64 {
	t.Helper()

	res, err := conn.Exec(
		`INSERT INTO users (email, password_hash, password_salt, locked, group_id, last_send, space_used) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		spec.Email, PasswordHash(spec.Password, seedSalt), seedSalt,
		boolInt(spec.Locked), spec.GroupID, spec.LastSend, spec.SpaceUsed)
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get account id: %v", err)
	}
	return id
}

// SeedAccount inserts a permissive group plus an account in it and
// returns the account id.
func SeedAccount(t *testing.T, conn *sqlx.DB, email, password string) int64 {
	t.Helper()

	groupID := SeedGroup(t, conn, DefaultGroup())
	return SeedAccountWith(t, conn, AccountSpec{Email: email, Password: password, GroupID: groupID})
}

// SeedAlias inserts an alias address for the account.
func SeedAlias(t *testing.T, conn *sqlx.DB, userID int64, email string, flags int64) {
	t.Helper()

	if _, err := conn.Exec(
		`INSERT INTO aliases (user_id, email, flags) VALUES (?, ?, ?)`,
		userID, email, flags); err != nil {
		t.Fatalf("failed to seed alias: %v", err)
	}
}

// SeedWorkgroup inserts a workgroup with an address and makes the given
// accounts members.
func SeedWorkgroup(t *testing.T, conn *sqlx.DB, title, email string, memberIDs ...int64) int64 {
	t.Helper()

	res, err := conn.Exec(
		`INSERT INTO workgroups (title, email) VALUES (?, ?)`, title, email)
	if err != nil {
		t.Fatalf("failed to seed workgroup: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get workgroup id: %v", err)
	}
	for _, userID := range memberIDs {
		if _, err := conn.Exec(
			`INSERT INTO workgroup_members (workgroup_id, user_id) VALUES (?, ?)`,
			id, userID); err != nil {
			t.Fatalf("failed to seed workgroup member: %v", err)
		}
	}
	return id
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
