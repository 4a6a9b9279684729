package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voicewire/go-voicewire/pkg/llm"
	"github.com/voicewire/go-voicewire/pkg/protocol"
	"github.com/voicewire/go-voicewire/pkg/relay"
	"github.com/voicewire/go-voicewire/pkg/tools"
	"github.com/voicewire/go-voicewire/pkg/tts"
)

// collectSink records messages across goroutines.
type collectSink struct {
	mu   sync.Mutex
	msgs []any
	err  error
}

func (s *collectSink) Send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *collectSink) all() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *collectSink) types() []protocol.MessageType {
	var out []protocol.MessageType
	for _, msg := range s.all() {
		switch msg.(type) {
		case protocol.TurnEnd:
			out = append(out, protocol.TypeTurnEnd)
		case protocol.RetryToast:
			out = append(out, protocol.TypeRetryToast)
		case protocol.AgentResponseText:
			out = append(out, protocol.TypeAgentResponseText)
		case protocol.ImageGenerated:
			out = append(out, protocol.TypeImageGenerated)
		case protocol.AudioChunk:
			out = append(out, protocol.TypeAudioChunk)
		case protocol.AudioComplete:
			out = append(out, protocol.TypeAudioComplete)
		}
	}
	return out
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	t.Cleanup(func() { sleep = orig })
}

func newTestAgent(gen llm.Generator, synth tts.Synthesizer) *Agent {
	return New(Options{
		Generator: gen,
		Synth:     synth,
		Relay:     relay.New(64, nil),
	})
}

func TestRetryCeiling(t *testing.T) {
	noSleep(t)

	gen := &llm.Mock{
		GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
			return "", &llm.APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}
		},
	}
	a := newTestAgent(gen, &tts.Mock{})
	sink := &collectSink{}

	if err := a.HandleTurn(context.Background(), "sess", "tell me a joke", sink); err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}

	if gen.CallCount() != 3 {
		t.Errorf("model called %d times, want exactly 3", gen.CallCount())
	}

	var toasts []protocol.RetryToast
	var texts []protocol.AgentResponseText
	for _, msg := range sink.all() {
		switch m := msg.(type) {
		case protocol.RetryToast:
			toasts = append(toasts, m)
		case protocol.AgentResponseText:
			texts = append(texts, m)
		}
	}

	// A toast per retry, none for the first attempt.
	if len(toasts) != 2 {
		t.Fatalf("got %d retry toasts, want 2", len(toasts))
	}
	if toasts[0].Attempt != 2 || toasts[1].Attempt != 3 {
		t.Errorf("toast attempts %d,%d, want 2,3", toasts[0].Attempt, toasts[1].Attempt)
	}

	if len(texts) != 1 || texts[0].Text != modelApology {
		t.Errorf("exhausted retries should answer with the apology, got %+v", texts)
	}
}

func TestNonRateLimitAbortsImmediately(t *testing.T) {
	noSleep(t)

	gen := &llm.Mock{
		GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
			return "", &llm.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
		},
	}
	a := newTestAgent(gen, &tts.Mock{})
	sink := &collectSink{}

	if err := a.HandleTurn(context.Background(), "sess", "tell me a joke", sink); err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}

	if gen.CallCount() != 1 {
		t.Errorf("model called %d times, want 1 for a non-rate-limit error", gen.CallCount())
	}
	for _, typ := range sink.types() {
		if typ == protocol.TypeRetryToast {
			t.Error("retry toast sent for a non-rate-limit error")
		}
	}
}

func TestTextBeforeAudio(t *testing.T) {
	gen := &llm.Mock{
		GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
			return "Here is a joke.", nil
		},
	}
	a := newTestAgent(gen, &tts.Mock{})
	sink := &collectSink{}

	if err := a.HandleTurn(context.Background(), "sess", "tell me a joke", sink); err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}

	types := sink.types()
	textAt, firstAudioAt, completeAt := -1, -1, -1
	for i, typ := range types {
		switch typ {
		case protocol.TypeAgentResponseText:
			textAt = i
		case protocol.TypeAudioChunk:
			if firstAudioAt == -1 {
				firstAudioAt = i
			}
		case protocol.TypeAudioComplete:
			completeAt = i
		}
	}

	if textAt == -1 || firstAudioAt == -1 || completeAt == -1 {
		t.Fatalf("missing messages, got %v", types)
	}
	if textAt > firstAudioAt {
		t.Error("reply text must precede audio frames")
	}
	if completeAt != len(types)-1 {
		t.Error("completion marker must be last")
	}
}

func TestSynthesisFailureIsTextOnly(t *testing.T) {
	gen := &llm.Mock{
		GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
			return "Still a fine answer.", nil
		},
	}
	synth := &tts.Mock{
		SynthesizeFunc: func(ctx context.Context, text, voiceID string) ([]byte, error) {
			return nil, tts.ErrNoAudio
		},
	}
	a := newTestAgent(gen, synth)
	sink := &collectSink{}

	if err := a.HandleTurn(context.Background(), "sess", "tell me a joke", sink); err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}

	types := sink.types()
	if len(types) != 1 || types[0] != protocol.TypeAgentResponseText {
		t.Errorf("text-only turn should send exactly the reply text, got %v", types)
	}
}

func TestToolRoutesDegradeWithoutClients(t *testing.T) {
	// No search or image client configured.
	a := newTestAgent(&llm.Mock{}, &tts.Mock{})

	cases := []struct {
		transcript string
		want       string
	}{
		{"what's the latest news", tools.SearchApology},
		{"draw a cat", tools.ImageApology},
	}
	for _, tc := range cases {
		sink := &collectSink{}
		if err := a.HandleTurn(context.Background(), "sess", tc.transcript, sink); err != nil {
			t.Fatalf("HandleTurn(%q) returned error: %v", tc.transcript, err)
		}
		var text protocol.AgentResponseText
		for _, msg := range sink.all() {
			if m, ok := msg.(protocol.AgentResponseText); ok {
				text = m
			}
		}
		if text.Text != tc.want {
			t.Errorf("HandleTurn(%q) replied %q, want apology", tc.transcript, text.Text)
		}
	}
}

func TestEmptyTranscriptIgnored(t *testing.T) {
	gen := &llm.Mock{}
	a := newTestAgent(gen, &tts.Mock{})
	sink := &collectSink{}

	if err := a.HandleTurn(context.Background(), "sess", "   ", sink); err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}
	if gen.CallCount() != 0 || len(sink.all()) != 0 {
		t.Error("blank transcript should not produce a turn")
	}
}

func TestDeadSinkAbortsTurn(t *testing.T) {
	gen := &llm.Mock{
		GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
			return "reply", nil
		},
	}
	a := newTestAgent(gen, &tts.Mock{})
	sink := &collectSink{err: errors.New("connection closed")}

	if err := a.HandleTurn(context.Background(), "sess", "tell me a joke", sink); err == nil {
		t.Fatal("expected error for a dead sink")
	}
}

func TestModelReplyStreamsFragments(t *testing.T) {
	gen := &llm.Mock{
		GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
			return "", errors.New("blocking call not expected")
		},
		StreamFunc: func(ctx context.Context, req *llm.Request, onText func(string)) (string, error) {
			for _, fragment := range []string{"Here ", "is ", "a joke."} {
				if onText != nil {
					onText(fragment)
				}
			}
			return "Here is a joke.", nil
		},
	}
	a := newTestAgent(gen, &tts.Mock{})
	sink := &collectSink{}

	if err := a.HandleTurn(context.Background(), "sess", "tell me a joke", sink); err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}

	var text protocol.AgentResponseText
	for _, msg := range sink.all() {
		if m, ok := msg.(protocol.AgentResponseText); ok {
			text = m
		}
	}
	if text.Text != "Here is a joke." {
		t.Errorf("reply %q, want the accumulated fragments", text.Text)
	}
}

func TestTrimReply(t *testing.T) {
	short := "A short answer."
	if got := TrimReply(short); got != short {
		t.Errorf("short reply modified: %q", got)
	}

	long := strings.Repeat("This sentence pads the reply out. ", 200)
	got := TrimReply(long)
	if len(got) > tts.MaxTextLen {
		t.Errorf("trimmed reply is %d chars, over the synthesis ceiling", len(got))
	}

	closing := ""
	for _, p := range closingPhrases {
		if strings.HasSuffix(got, p) {
			closing = p
		}
	}
	if closing == "" {
		t.Fatal("trimmed reply should end with one of the closing phrases")
	}
	body := strings.TrimSuffix(got, closing)
	if !strings.HasSuffix(body, ".") {
		t.Errorf("trim should land on a sentence boundary, got ...%q", body[len(body)-10:])
	}
}
