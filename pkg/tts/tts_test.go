package tts

import (
	"context"
	"errors"
	"testing"
)

func TestFallbackUsesFirstWorkingVoice(t *testing.T) {
	mock := &Mock{
		SynthesizeFunc: func(ctx context.Context, text, voiceID string) ([]byte, error) {
			if voiceID == VoiceNatalie {
				return nil, &ProviderError{Provider: "murf", Voice: voiceID, Err: ErrNoAudio}
			}
			return []byte("audio-" + voiceID), nil
		},
	}

	f := NewFallbackWithVoices(mock, []string{VoiceNatalie, VoiceRohan}, nil)
	audio, err := f.Synthesize(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "audio-"+VoiceRohan {
		t.Errorf("got %q, want audio from fallback voice", audio)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d attempts, want 2", len(calls))
	}
	if calls[0].Voice != VoiceNatalie || calls[1].Voice != VoiceRohan {
		t.Errorf("wrong attempt order: %+v", calls)
	}
}

func TestFallbackPrefersRequestedVoice(t *testing.T) {
	mock := &Mock{}
	f := NewFallbackWithVoices(mock, []string{VoiceNatalie, VoiceRohan}, nil)

	if _, err := f.Synthesize(context.Background(), "hello", VoiceRohan); err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d attempts, want 1", len(calls))
	}
	if calls[0].Voice != VoiceRohan {
		t.Errorf("first attempt used %q, want requested voice", calls[0].Voice)
	}
}

func TestFallbackExhausted(t *testing.T) {
	provErr := errors.New("boom")
	mock := &Mock{
		SynthesizeFunc: func(ctx context.Context, text, voiceID string) ([]byte, error) {
			return nil, provErr
		},
	}

	f := NewFallbackWithVoices(mock, []string{VoiceNatalie, VoiceRohan, ""}, nil)
	_, err := f.Synthesize(context.Background(), "hello", "")
	if !errors.Is(err, ErrVoicesExhausted) {
		t.Fatalf("got %v, want ErrVoicesExhausted", err)
	}
	if !errors.Is(err, provErr) {
		t.Errorf("exhaustion error should wrap the last provider failure")
	}
	if mock.CallCount() != 3 {
		t.Errorf("got %d attempts, want every voice tried once", mock.CallCount())
	}
}

func TestFallbackTreatsEmptyAudioAsFailure(t *testing.T) {
	mock := &Mock{
		SynthesizeFunc: func(ctx context.Context, text, voiceID string) ([]byte, error) {
			if voiceID == VoiceNatalie {
				return []byte{}, nil
			}
			return []byte("real audio"), nil
		},
	}

	f := NewFallbackWithVoices(mock, []string{VoiceNatalie, VoiceRohan}, nil)
	audio, err := f.Synthesize(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "real audio" {
		t.Errorf("empty audio should not satisfy the fallback")
	}
}

func TestTruncateForSpeech(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"short text untouched", "Hello there.", 100, "Hello there."},
		{"cuts at sentence end", "One fact. Two facts. Three facts trail on", 22, "One fact. Two facts."},
		{"hard cut without boundary", "abcdefghij", 5, "abcde"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateForSpeech(tc.text, tc.limit); got != tc.want {
				t.Errorf("TruncateForSpeech(%q, %d) = %q, want %q", tc.text, tc.limit, got, tc.want)
			}
		})
	}
}
