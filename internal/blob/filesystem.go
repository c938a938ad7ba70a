package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// ErrNotFound is returned by Open when no blob exists for the given key.
var ErrNotFound = errors.New("blob not found")

// FileStore keeps one file per payload under a data directory. With
// sharding enabled the numeric id is split into digit pairs forming a
// directory chain, so id 123456 is stored at <root>/12/34/56.msg; an
// existing flat file <root>/<id>.msg always wins, which keeps stores
// readable after the sharding setting is flipped.
type FileStore struct {
	root    string
	sharded bool
}

// NewFileStore creates a filesystem store rooted at the given directory.
func NewFileStore(root string, sharded bool) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileStore{root: root, sharded: sharded}, nil
}

func (s *FileStore) Put(kind Kind, id int64, r io.Reader) (int64, error) {
	path, err := s.fileName(kind, id, true)
	if err != nil {
		return 0, err
	}
	return writeFileAtomic(path, r)
}

func (s *FileStore) Open(kind Kind, id int64) (io.ReadCloser, error) {
	path, err := s.fileName(kind, id, false)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open blob file: %w", err)
	}
	return f, nil
}

func (s *FileStore) Delete(kind Kind, id int64) error {
	path, err := s.fileName(kind, id, false)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// fileName resolves the on-disk path for a blob. A flat file takes
// precedence; otherwise the sharded path is used (creating intermediate
// directories when mkdir is set and sharding is enabled).
func (s *FileStore) fileName(kind Kind, id int64, mkdir bool) (string, error) {
	flat := filepath.Join(s.root, strconv.FormatInt(id, 10)+"."+kind.ext())
	if _, err := os.Stat(flat); err == nil {
		return flat, nil
	}
	if !s.sharded {
		return flat, nil
	}

	digits := strconv.FormatInt(id, 10)
	dir := s.root
	for len(digits) > 2 {
		dir = filepath.Join(dir, digits[:2])
		digits = digits[2:]
	}
	if mkdir {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create shard directory: %w", err)
		}
	}
	return filepath.Join(dir, digits+"."+kind.ext()), nil
}

// writeFileAtomic writes data from r to path via a temp file and rename.
func writeFileAtomic(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write blob data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return written, nil
}

// Compile-time check that FileStore implements the Store interface
var _ Store = (*FileStore)(nil)
