package stt

import (
	"context"
	"sync"
)

// MockStreamer implements Streamer for testing. It records every chunk
// sent to the provider and exposes the registered callbacks so tests can
// fire turn events by hand.
type MockStreamer struct {
	// OpenErr, when set, is returned from OpenStream.
	OpenErr error

	// SendErr, when set, is returned from SendAudio.
	SendErr error

	mu       sync.Mutex
	stream   *MockStream
	callback Callbacks
}

// MockStream is the session handed out by MockStreamer.
type MockStream struct {
	mu         sync.Mutex
	sent       [][]byte
	terminated bool
	closed     bool
	sendErr    error
}

// OpenStream records the callbacks and returns the mock session.
func (m *MockStreamer) OpenStream(_ context.Context, cb Callbacks) (Stream, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
	m.stream = &MockStream{sendErr: m.SendErr}
	return m.stream, nil
}

// Callbacks returns the callbacks registered by the worker under test.
func (m *MockStreamer) Callbacks() Callbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callback
}

// Stream returns the live mock session, or nil before OpenStream.
func (m *MockStreamer) Stream() *MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream
}

// EmitTurn fires a turn event as the provider would.
func (m *MockStreamer) EmitTurn(transcript string, endOfTurn bool) {
	cb := m.Callbacks()
	if cb.OnTurn != nil {
		cb.OnTurn(transcript, endOfTurn)
	}
}

// SendAudio records the chunk.
func (s *MockStream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	if s.closed {
		return ErrStreamClosed
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	s.sent = append(s.sent, c)
	return nil
}

// Terminate records the terminate request.
func (s *MockStream) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
	return nil
}

// Close marks the session closed.
func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Sent returns copies of every chunk forwarded to the provider.
func (s *MockStream) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// Terminated reports whether the worker requested termination.
func (s *MockStream) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Verify MockStreamer implements Streamer at compile time.
var _ Streamer = (*MockStreamer)(nil)
