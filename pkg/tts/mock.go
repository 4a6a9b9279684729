package tts

import (
	"context"
	"sync"
)

// Mock implements Synthesizer for testing.
// Behavior is customized via function fields; calls are tracked.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns a small fixed buffer.
	SynthesizeFunc func(ctx context.Context, text, voiceID string) ([]byte, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one Synthesize invocation.
type MockCall struct {
	Text  string
	Voice string
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Text: text, Voice: voiceID})
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, voiceID)
	}
	return []byte("mock audio"), nil
}

// Calls returns every recorded invocation.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded invocations.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Verify Mock implements Synthesizer at compile time.
var _ Synthesizer = (*Mock)(nil)
