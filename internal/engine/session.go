package engine

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"groupsync/internal/blob"
	"groupsync/internal/model"
)

// DenyReason classifies why authentication was refused.
type DenyReason int

const (
	DenyNotFound DenyReason = iota
	DenyLocked
	DenyBadCredential
	DenySyncNotPermitted
)

func (r DenyReason) String() string {
	switch r {
	case DenyNotFound:
		return "not-found"
	case DenyLocked:
		return "locked"
	case DenyBadCredential:
		return "bad-credential"
	case DenySyncNotPermitted:
		return "sync-not-permitted"
	}
	return "unknown"
}

// AuthError is the typed denial returned by Authenticate. It is an
// expected outcome, not a fault.
type AuthError struct {
	Reason DenyReason
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication denied: %s", e.Reason)
}

// Session is the per-user context of one authenticated sync session. It
// owns the account and group policy snapshots and the opened blob store;
// it is not shared across sessions.
type Session struct {
	Account *model.Account
	Group   *model.Group
	Blobs   blob.Store
}

// UserID returns the owning account ID.
func (s *Session) UserID() int64 { return s.Account.ID }

// Close releases the session's blob store handle.
func (s *Session) Close() error {
	if s.Blobs != nil {
		return s.Blobs.Close()
	}
	return nil
}

// Authenticate looks up the account by its primary address and verifies
// the password. On denial it returns an *AuthError carrying the typed
// reason; only storage failures produce other errors.
func (e *Engine) Authenticate(email, password string) (*Session, error) {
	acct, err := e.db.FindAccountByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if acct == nil {
		e.logger.Info("login denied", "email", email, "reason", DenyNotFound.String())
		return nil, &AuthError{Reason: DenyNotFound}
	}
	if acct.Locked {
		e.logger.Info("login denied", "email", email, "reason", DenyLocked.String())
		return nil, &AuthError{Reason: DenyLocked}
	}
	if hashPassword(password, acct.PasswordSalt) != acct.PasswordHash {
		e.logger.Info("login denied", "email", email, "reason", DenyBadCredential.String())
		return nil, &AuthError{Reason: DenyBadCredential}
	}

	group, err := e.db.FindGroup(acct.GroupID)
	if err != nil {
		return nil, fmt.Errorf("looking up group: %w", err)
	}
	if group == nil || !group.SyncAllowed {
		e.logger.Info("login denied", "email", email, "reason", DenySyncNotPermitted.String())
		return nil, &AuthError{Reason: DenySyncNotPermitted}
	}

	blobs, err := e.blobs.OpenStore(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	e.logger.Debug("login ok", "email", email, "user", acct.ID)
	return &Session{Account: acct, Group: group, Blobs: blobs}, nil
}

// hashPassword applies the account store's legacy salted scheme:
// hex(md5(hex(md5(password)) + salt)).
func hashPassword(password, salt string) string {
	inner := md5.Sum([]byte(password))
	outer := md5.Sum([]byte(hex.EncodeToString(inner[:]) + salt))
	return hex.EncodeToString(outer[:])
}
