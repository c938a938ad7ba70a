package blob

import (
	"bytes"
	"compress/zlib"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// flag bits stored alongside each userdb blob row.
const userdbFlagCompressed = 1

const userdbSchema = `CREATE TABLE IF NOT EXISTS blobs (
	type INTEGER,
	id INTEGER,
	flags INTEGER,
	size INTEGER,
	data BLOB,
	PRIMARY KEY(type, id)
)`

// UserDBStore keeps all payloads of one account in a single embedded
// sqlite database, optionally zlib-compressed. The database file lives
// under the shared data directory as <userID>.blobdb.
type UserDBStore struct {
	db       *sql.DB
	compress bool
}

// OpenUserDBStore opens (creating if needed) the per-account blob database.
func OpenUserDBStore(dataDir string, userID int64, compress bool) (*UserDBStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	path := filepath.Join(dataDir, strconv.FormatInt(userID, 10)+".blobdb")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 15000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(userdbSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize blob database: %w", err)
	}

	return &UserDBStore{db: db, compress: compress}, nil
}

func (s *UserDBStore) Put(kind Kind, id int64, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read blob data: %w", err)
	}
	size := int64(len(data))

	flags := 0
	if s.compress && kind == KindMail {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return 0, fmt.Errorf("failed to create compressor: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			return 0, fmt.Errorf("failed to compress blob: %w", err)
		}
		if err := zw.Close(); err != nil {
			return 0, fmt.Errorf("failed to finish compression: %w", err)
		}
		data = buf.Bytes()
		flags |= userdbFlagCompressed
	}

	_, err = s.db.Exec("REPLACE INTO blobs(type, id, data, flags, size) VALUES(?, ?, ?, ?, ?)",
		int(kind), id, data, flags, size)
	if err != nil {
		return 0, fmt.Errorf("failed to store blob: %w", err)
	}
	return size, nil
}

func (s *UserDBStore) Open(kind Kind, id int64) (io.ReadCloser, error) {
	var data []byte
	var flags int
	err := s.db.QueryRow("SELECT data, flags FROM blobs WHERE type = ? AND id = ?",
		int(kind), id).Scan(&data, &flags)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}

	if flags&userdbFlagCompressed != 0 {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress blob: %w", err)
		}
		return zr, nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *UserDBStore) Delete(kind Kind, id int64) error {
	_, err := s.db.Exec("DELETE FROM blobs WHERE type = ? AND id = ?", int(kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *UserDBStore) Close() error {
	return s.db.Close()
}

// Compile-time check that UserDBStore implements the Store interface
var _ Store = (*UserDBStore)(nil)
