package tts

import (
	"context"
	"errors"
	"log/slog"
)

// Fallback tries a fixed list of voices in order until one produces
// audio. The zero result of a voice (no audio, provider error) moves on
// to the next; context cancellation stops the walk immediately.
type Fallback struct {
	synth  Synthesizer
	voices []string
	logger *slog.Logger
}

// NewFallback wraps a synthesizer with the default voice preference.
func NewFallback(synth Synthesizer, logger *slog.Logger) *Fallback {
	return NewFallbackWithVoices(synth, VoicePreference, logger)
}

// NewFallbackWithVoices wraps a synthesizer with a custom voice order.
func NewFallbackWithVoices(synth Synthesizer, voices []string, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		synth:  synth,
		voices: voices,
		logger: logger.With("component", "tts.fallback"),
	}
}

// Synthesize tries each voice in order, starting with voiceID when it
// is set. Returns ErrVoicesExhausted wrapping the last failure when
// every attempt fails.
func (f *Fallback) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	voices := f.voices
	if voiceID != "" {
		voices = prepend(voiceID, voices)
	}

	var lastErr error
	for _, voice := range voices {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		audio, err := f.synth.Synthesize(ctx, text, voice)
		if err == nil && len(audio) > 0 {
			return audio, nil
		}
		lastErr = err
		f.logger.Warn("voice failed, trying next", "voice", voice, "error", err)
	}

	return nil, errors.Join(ErrVoicesExhausted, lastErr)
}

// prepend puts voice first and drops its duplicate from the rest.
func prepend(voice string, voices []string) []string {
	out := make([]string, 0, len(voices)+1)
	out = append(out, voice)
	for _, v := range voices {
		if v != voice {
			out = append(out, v)
		}
	}
	return out
}

// Verify Fallback implements Synthesizer at compile time.
var _ Synthesizer = (*Fallback)(nil)
