package llm

import (
	"context"
	"sync"
)

// Mock implements Generator for testing.
// Behavior is customized via function fields; calls are tracked.
type Mock struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns "mock reply".
	GenerateFunc func(ctx context.Context, req *Request) (string, error)

	// StreamFunc is called when Stream is invoked.
	// If nil, delivers GenerateFunc's reply as a single fragment.
	StreamFunc func(ctx context.Context, req *Request, onText func(string)) (string, error)

	mu    sync.Mutex
	calls []*Request
}

// Generate calls GenerateFunc and records the call.
func (m *Mock) Generate(ctx context.Context, req *Request) (string, error) {
	m.record(req)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "mock reply", nil
}

// Stream calls StreamFunc and records the call.
func (m *Mock) Stream(ctx context.Context, req *Request, onText func(string)) (string, error) {
	m.record(req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req, onText)
	}
	reply := "mock reply"
	if m.GenerateFunc != nil {
		var err error
		reply, err = m.GenerateFunc(ctx, req)
		if err != nil {
			return "", err
		}
	}
	if onText != nil {
		onText(reply)
	}
	return reply, nil
}

func (m *Mock) record(req *Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
}

// Calls returns every recorded request.
func (m *Mock) Calls() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded requests.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Verify Mock implements Generator at compile time.
var _ Generator = (*Mock)(nil)
