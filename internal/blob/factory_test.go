package blob

import (
	"testing"

	"groupsync/internal/config"
)

func TestNewOpener(t *testing.T) {
	t.Run("filesystem", func(t *testing.T) {
		opener, err := NewOpener(config.BlobStoreConfig{
			Type:    "filesystem",
			DataDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewOpener() error = %v", err)
		}
		store, err := opener.OpenStore(1)
		if err != nil {
			t.Fatalf("OpenStore() error = %v", err)
		}
		defer store.Close()
		if _, ok := store.(*FileStore); !ok {
			t.Errorf("OpenStore() = %T, want *FileStore", store)
		}
	})

	t.Run("userdb", func(t *testing.T) {
		opener, err := NewOpener(config.BlobStoreConfig{
			Type:    "userdb",
			DataDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewOpener() error = %v", err)
		}
		store, err := opener.OpenStore(1)
		if err != nil {
			t.Fatalf("OpenStore() error = %v", err)
		}
		defer store.Close()
		if _, ok := store.(*UserDBStore); !ok {
			t.Errorf("OpenStore() = %T, want *UserDBStore", store)
		}
	})

	t.Run("memory opens a fresh store per call", func(t *testing.T) {
		opener, err := NewOpener(config.BlobStoreConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewOpener() error = %v", err)
		}
		first, err := opener.OpenStore(1)
		if err != nil {
			t.Fatalf("OpenStore() error = %v", err)
		}
		second, err := opener.OpenStore(1)
		if err != nil {
			t.Fatalf("OpenStore() error = %v", err)
		}
		if first == second {
			t.Error("OpenStore() returned the same memory store twice")
		}
	})

	t.Run("unknown type fails at construction", func(t *testing.T) {
		if _, err := NewOpener(config.BlobStoreConfig{Type: "s3"}); err == nil {
			t.Error("NewOpener() accepted an unknown backend type")
		}
	})
}
