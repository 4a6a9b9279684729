package stt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/voicewire/go-voicewire/pkg/protocol"
)

// collectSink records every message pushed to the outbound sink.
type collectSink struct {
	mu   sync.Mutex
	msgs []any
}

func (c *collectSink) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collectSink) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerForwardsAllBytes(t *testing.T) {
	streamer := &MockStreamer{}
	sink := &collectSink{}
	w := NewWorker(streamer, sink, nil, nil)

	go w.Run(context.Background())
	waitFor(t, func() bool { return streamer.Stream() != nil })

	// Deliveries both below and above the minimum chunk size.
	total := 0
	for _, n := range []int{100, 1500, 1600, 5000, 3} {
		w.Enqueue(make([]byte, n))
		total += n
	}
	w.Shutdown()
	w.Join()

	got := 0
	sent := streamer.Stream().Sent()
	for i, c := range sent {
		got += len(c)
		if i < len(sent)-1 && len(c) != MinChunkSize {
			t.Errorf("chunk %d: %d bytes, want %d", i, len(c), MinChunkSize)
		}
	}
	if got != total {
		t.Errorf("forwarded %d bytes, want %d", got, total)
	}
	if !streamer.Stream().Terminated() {
		t.Error("expected Terminate after shutdown sentinel")
	}
}

func TestWorkerSingleDispatchPerTurn(t *testing.T) {
	streamer := &MockStreamer{}
	sink := &collectSink{}

	var mu sync.Mutex
	var dispatched []string
	w := NewWorker(streamer, sink, func(transcript string) {
		mu.Lock()
		dispatched = append(dispatched, transcript)
		mu.Unlock()
	}, nil)

	go w.Run(context.Background())
	waitFor(t, func() bool { return streamer.Stream() != nil })

	streamer.EmitTurn("what is", false)
	streamer.EmitTurn("what is the weather", false)
	streamer.EmitTurn("what is the weather today", true)
	// A duplicate end-of-turn for the same utterance must not re-dispatch:
	// the buffer was reset on the first one.
	streamer.EmitTurn("", true)

	mu.Lock()
	got := len(dispatched)
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected exactly 1 dispatch, got %d", got)
	}
	if dispatched[0] != "what is the weather today" {
		t.Errorf("dispatched %q", dispatched[0])
	}

	// The sink saw exactly one turn_end carrying the final transcript.
	turnEnds := 0
	for _, m := range sink.messages() {
		if te, ok := m.(protocol.TurnEnd); ok {
			turnEnds++
			if te.Transcript != "what is the weather today" {
				t.Errorf("turn_end transcript %q", te.Transcript)
			}
		}
	}
	if turnEnds != 1 {
		t.Errorf("expected 1 turn_end message, got %d", turnEnds)
	}

	w.Shutdown()
	w.Join()
}

func TestWorkerRepeatedFinalNotRedispatched(t *testing.T) {
	streamer := &MockStreamer{}

	var mu sync.Mutex
	var dispatched []string
	w := NewWorker(streamer, &collectSink{}, func(transcript string) {
		mu.Lock()
		dispatched = append(dispatched, transcript)
		mu.Unlock()
	}, nil)

	go w.Run(context.Background())
	waitFor(t, func() bool { return streamer.Stream() != nil })

	// Formatting providers finalize the same utterance twice, raw text
	// first and punctuated text after, both with end_of_turn set.
	streamer.EmitTurn("what is the weather today", false)
	streamer.EmitTurn("what is the weather today", true)
	streamer.EmitTurn("What is the weather today?", true)

	// Fresh speech re-arms the worker for the next utterance.
	streamer.EmitTurn("and tomorrow", false)
	streamer.EmitTurn("And tomorrow?", true)

	w.Shutdown()
	w.Join()

	mu.Lock()
	defer mu.Unlock()
	if len(dispatched) != 2 {
		t.Fatalf("dispatched %d turns, want 2: %v", len(dispatched), dispatched)
	}
	if dispatched[0] != "what is the weather today" {
		t.Errorf("first dispatch %q", dispatched[0])
	}
	if dispatched[1] != "And tomorrow?" {
		t.Errorf("second dispatch %q", dispatched[1])
	}
}

func TestWorkerShutdownIdempotent(t *testing.T) {
	streamer := &MockStreamer{}
	w := NewWorker(streamer, &collectSink{}, nil, nil)

	go w.Run(context.Background())
	waitFor(t, func() bool { return streamer.Stream() != nil })

	// Sentinel is pushed exactly once no matter how often Shutdown runs.
	w.Shutdown()
	w.Shutdown()
	w.Shutdown()
	w.Join()

	// Enqueue after shutdown must not block or panic.
	w.Enqueue([]byte{1, 2, 3})
}

func TestTurnEndWireShape(t *testing.T) {
	data, err := json.Marshal(protocol.NewTurnEnd("hello"))
	if err != nil {
		t.Fatal(err)
	}
	typ, err := protocol.PeekType(data)
	if err != nil {
		t.Fatal(err)
	}
	if typ != protocol.TypeTurnEnd {
		t.Errorf("type = %q", typ)
	}
}
