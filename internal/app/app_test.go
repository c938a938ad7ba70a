package app

import (
	"errors"
	"testing"

	"groupsync/internal/config"
	"groupsync/internal/engine"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig("mail.example.com", t.TempDir())
	cfg.BlobStore = config.BlobStoreConfig{Type: "memory"}
	return cfg
}

func TestNewSyncApp(t *testing.T) {
	t.Run("rejects an invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Hostname = ""

		if _, err := NewSyncApp(cfg, "Folders"); err == nil {
			t.Error("NewSyncApp() accepted a config without a hostname")
		}
	})

	t.Run("refuses an unmigrated store", func(t *testing.T) {
		cfg := testConfig(t)

		if _, err := NewSyncApp(cfg, "Folders"); err == nil {
			t.Error("NewSyncApp() opened a store with no schema")
		}
	})

	t.Run("wires up after migration", func(t *testing.T) {
		cfg := testConfig(t)
		if err := Migrate(cfg); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}

		a, err := NewSyncApp(cfg, "Folders")
		if err != nil {
			t.Fatalf("NewSyncApp() error = %v", err)
		}
		defer a.Close()

		if _, err := a.ListFolders(); err == nil {
			t.Error("ListFolders() succeeded without a login")
		}

		err = a.Login("nobody@example.com", "secret")
		var authErr *engine.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Login() error = %v, want an AuthError", err)
		}
		if authErr.Reason != engine.DenyNotFound {
			t.Errorf("deny reason = %v, want %v", authErr.Reason, engine.DenyNotFound)
		}
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	if err := Migrate(cfg); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := Migrate(cfg); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}
