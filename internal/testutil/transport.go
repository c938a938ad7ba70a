package testutil

import (
	"io"
	"sync"

	"groupsync/internal/transport"
)

// StubTransport records every submitted message instead of delivering it.
type StubTransport struct {
	mu        sync.Mutex
	Envelopes []transport.Envelope
	Raw       [][]byte

	// Err, when set, is returned by Send without recording anything.
	Err error
}

func NewStubTransport() *StubTransport {
	return &StubTransport{}
}

func (s *StubTransport) Send(env transport.Envelope, raw io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	data, err := io.ReadAll(raw)
	if err != nil {
		return err
	}
	s.Envelopes = append(s.Envelopes, env)
	s.Raw = append(s.Raw, data)
	return nil
}

// Count returns the number of recorded sends.
func (s *StubTransport) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Envelopes)
}

// Compile-time check that StubTransport implements transport.Transport.
var _ transport.Transport = (*StubTransport)(nil)
