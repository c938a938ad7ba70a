package blob

import (
	"bytes"
	"fmt"
	"io"
)

type memoryKey struct {
	kind Kind
	id   int64
}

// MemoryStore is an in-memory Store. Use in tests.
type MemoryStore struct {
	blobs map[memoryKey][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[memoryKey][]byte)}
}

func (s *MemoryStore) Put(kind Kind, id int64, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read blob data: %w", err)
	}
	s.blobs[memoryKey{kind, id}] = data
	return int64(len(data)), nil
}

func (s *MemoryStore) Open(kind Kind, id int64) (io.ReadCloser, error) {
	data, ok := s.blobs[memoryKey{kind, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(kind Kind, id int64) error {
	delete(s.blobs, memoryKey{kind, id})
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int { return len(s.blobs) }

// Compile-time check that MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)
