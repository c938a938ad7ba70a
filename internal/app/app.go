// Package app is the application layer between the CLI and the engine.
// It constructs all dependencies from config and manages the store
// lifecycle on Close.
package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"groupsync/internal/blob"
	"groupsync/internal/config"
	"groupsync/internal/database"
	"groupsync/internal/engine"
	"groupsync/internal/model"
	"groupsync/internal/transport"
)

// SyncApp wires the sync store, blob store, transport and engine for one
// CLI invocation. The caller must call Close when done.
type SyncApp struct {
	cfg     *config.Config
	db      engine.Database
	engine  *engine.Engine
	session *engine.Session
	logFile *os.File
}

// NewSyncApp creates a fully wired SyncApp from the given config.
// operation identifies the CLI command being run (e.g. "Folders",
// "SendMail").
func NewSyncApp(cfg *config.Config, operation string) (*SyncApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	blobs, err := blob.NewOpener(cfg.BlobStore)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	tr, err := transport.NewTransportFromConfig(cfg.Transport)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating transport: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	eng := engine.NewEngine(db, blobs, tr, &slogAdapter{l: logger},
		engine.RealClock{}, engine.UUIDGenerator{}, cfg.Hostname, cfg.Mail.InlineLimit)

	return &SyncApp{
		cfg:     cfg,
		db:      db,
		engine:  eng,
		logFile: logFile,
	}, nil
}

// Login authenticates the account and binds the session to the app.
func (a *SyncApp) Login(email, password string) error {
	sess, err := a.engine.Authenticate(email, password)
	if err != nil {
		return err
	}
	a.session = sess
	return nil
}

func (a *SyncApp) requireSession() (*engine.Session, error) {
	if a.session == nil {
		return nil, fmt.Errorf("not logged in")
	}
	return a.session, nil
}

// ListFolders returns the account's synchronizable folder tree.
func (a *SyncApp) ListFolders() ([]engine.FolderDescriptor, error) {
	sess, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	return a.engine.ListFolders(sess)
}

// ListItems enumerates the items of one folder.
func (a *SyncApp) ListItems(folderID string, cutoff int64) ([]model.ItemStat, error) {
	sess, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	return a.engine.ListItems(sess, folderID, cutoff)
}

// FetchItem renders one item in its protocol-neutral form.
func (a *SyncApp) FetchItem(folderID string, itemID int64, opts engine.RenderOptions) (engine.Item, error) {
	sess, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	return a.engine.FetchItem(sess, folderID, itemID, opts)
}

// FetchAttachment retrieves one MIME part by composite reference.
func (a *SyncApp) FetchAttachment(ref string) (io.ReadCloser, string, error) {
	sess, err := a.requireSession()
	if err != nil {
		return nil, "", err
	}
	return a.engine.FetchAttachment(sess, ref)
}

// SendMail delivers a raw MIME payload as the logged-in account.
func (a *SyncApp) SendMail(raw []byte) error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	return a.engine.SendMail(sess, raw)
}

// Generations reports the account's current generation counters.
func (a *SyncApp) Generations() (content, structure int64, err error) {
	sess, err := a.requireSession()
	if err != nil {
		return 0, 0, err
	}
	acct, err := a.db.FindAccountByID(sess.UserID())
	if err != nil {
		return 0, 0, err
	}
	if acct == nil {
		return 0, 0, fmt.Errorf("account vanished")
	}
	return acct.Generation, acct.StructureGeneration, nil
}

// Close releases the session and all resources.
func (a *SyncApp) Close() error {
	var firstErr error
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			firstErr = fmt.Errorf("closing session: %w", err)
		}
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// Migrate brings the sync store schema to the latest version.
func Migrate(cfg *config.Config) error {
	db, err := database.NewSQLiteDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	return db.MigrateUp()
}
