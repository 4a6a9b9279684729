package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/voicewire/go-voicewire/pkg/llm"
	"github.com/voicewire/go-voicewire/pkg/protocol"
	"github.com/voicewire/go-voicewire/pkg/tts"
)

func TestDispatcherAnswersInOrder(t *testing.T) {
	gen := &llm.Mock{
		GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
			return "echo: " + req.Prompt, nil
		},
	}
	// Text-only turns keep the message stream easy to assert on.
	synth := &tts.Mock{
		SynthesizeFunc: func(ctx context.Context, text, voiceID string) ([]byte, error) {
			return nil, tts.ErrNoAudio
		},
	}
	a := newTestAgent(gen, synth)
	sink := &collectSink{}

	d := NewDispatcher(a, "sess", sink, nil)
	go d.Run(context.Background())

	for i := 1; i <= 3; i++ {
		d.Dispatch(fmt.Sprintf("question %d", i))
	}
	d.Close()
	d.Join()

	var texts []string
	for _, msg := range sink.all() {
		if m, ok := msg.(protocol.AgentResponseText); ok {
			texts = append(texts, m.Text)
		}
	}
	if len(texts) != 3 {
		t.Fatalf("got %d replies, want 3", len(texts))
	}
	for i, text := range texts {
		want := fmt.Sprintf("echo: question %d", i+1)
		if text != want {
			t.Errorf("reply %d = %q, want %q", i, text, want)
		}
	}
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	a := newTestAgent(&llm.Mock{}, &tts.Mock{})
	d := NewDispatcher(a, "sess", &collectSink{}, nil)
	go d.Run(context.Background())

	d.Close()
	d.Close()
	d.Close()
	d.Join()

	// Dispatch after close is a no-op, not a panic or deadlock.
	d.Dispatch("late transcript")
}

func TestDispatcherStopsOnContextCancel(t *testing.T) {
	a := newTestAgent(&llm.Mock{}, &tts.Mock{})
	d := NewDispatcher(a, "sess", &collectSink{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		d.Join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on context cancellation")
	}
}
