package testutil

import (
	"groupsync/internal/blob"
)

// MemoryOpener hands out the same in-memory blob store for every
// account, so tests can inspect stored payloads after a session ends.
type MemoryOpener struct {
	Store *blob.MemoryStore
}

func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{Store: blob.NewMemoryStore()}
}

func (o *MemoryOpener) OpenStore(userID int64) (blob.Store, error) {
	return o.Store, nil
}

// Compile-time check that MemoryOpener implements blob.Opener.
var _ blob.Opener = (*MemoryOpener)(nil)
