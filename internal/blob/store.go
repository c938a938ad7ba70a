// Package blob stores large message payloads behind a uniform streaming
// interface. Two production backends exist: one file per payload on the
// filesystem (optionally sharded into digit-pair subdirectories) and one
// embedded sqlite database per account with optional zlib compression.
package blob

import "io"

// Kind identifies the payload type of a blob. Only mail payloads exist
// today; the value is part of the userdb on-disk format.
type Kind int

// KindMail is the raw MIME payload of a message.
const KindMail Kind = 0

// ext returns the file extension used by the filesystem backend.
func (k Kind) ext() string {
	return "msg"
}

// Store is the streaming read/write/delete contract for one account's
// payloads. Implementations are not safe for concurrent use; a store
// belongs to a single session.
type Store interface {
	// Put stores the payload read from r, replacing any previous blob
	// with the same kind and id. It returns the number of bytes stored.
	Put(kind Kind, id int64, r io.Reader) (int64, error)

	// Open returns a reader over the payload. A missing blob yields
	// ErrNotFound.
	Open(kind Kind, id int64) (io.ReadCloser, error)

	// Delete removes the payload. Deleting a missing blob is a no-op.
	Delete(kind Kind, id int64) error

	// Close releases backend resources.
	Close() error
}
