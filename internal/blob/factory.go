package blob

import (
	"fmt"

	"groupsync/internal/config"
)

// Opener creates a payload store bound to one account. Sessions hold a
// store for their lifetime; the userdb backend keeps one database file
// per account, so the account must be known at open time.
type Opener interface {
	OpenStore(userID int64) (Store, error)
}

// ConfigOpener selects the backend from the blobstore config.
type ConfigOpener struct {
	cfg config.BlobStoreConfig
}

// NewOpener creates an Opener for the configured backend type. The type
// is validated here so a misconfiguration fails at startup, not at login.
func NewOpener(cfg config.BlobStoreConfig) (*ConfigOpener, error) {
	switch cfg.Type {
	case "filesystem", "userdb", "memory":
		return &ConfigOpener{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown blobstore type: %q", cfg.Type)
	}
}

func (o *ConfigOpener) OpenStore(userID int64) (Store, error) {
	switch o.cfg.Type {
	case "filesystem":
		return NewFileStore(o.cfg.DataDir, o.cfg.Sharded)
	case "userdb":
		return OpenUserDBStore(o.cfg.DataDir, userID, o.cfg.Compress)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blobstore type: %q", o.cfg.Type)
	}
}

// Compile-time check that ConfigOpener implements the Opener interface
var _ Opener = (*ConfigOpener)(nil)
