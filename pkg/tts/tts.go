// Package tts provides a unified interface for text-to-speech providers.
//
// The default backend is Murf, reached two ways: a per-call streaming
// WebSocket that returns raw audio bytes (used for the voice loop), and
// the HTTP generate endpoint that returns a hosted audio URL (used for
// one-shot synthesis requests).
//
// Example usage:
//
//	synth, _ := tts.NewMurfWS(
//	    tts.WithAPIKey(os.Getenv("MURF_API_KEY")),
//	)
//
//	audio, _ := synth.Synthesize(ctx, "Hello world", tts.DefaultVoice)
//	// audio contains WAV bytes ready for chunked relay
package tts

import "context"

// Synthesizer converts text to speech audio for a given voice.
// Implementations must be safe for concurrent use; each call is an
// independent synthesis with no shared provider state.
type Synthesizer interface {
	// Synthesize renders text with the given voice and returns the
	// complete audio buffer. An empty voiceID selects the provider
	// default. Returns ErrNoAudio when the provider produced nothing.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// URLSynthesizer generates hosted audio and returns a playback URL.
type URLSynthesizer interface {
	GenerateURL(ctx context.Context, text, voiceID string) (string, error)
}

// AudioFormat describes the audio encoding parameters of a synthesis.
type AudioFormat struct {
	// Format is the container or codec name (e.g. WAV, MP3).
	Format string `json:"format"`

	// SampleRate in Hz.
	SampleRate int `json:"sample_rate"`

	// Channels is 1 for mono, 2 for stereo.
	Channels int `json:"channels"`
}

// ChannelType is the provider wire name for the channel count.
func (f AudioFormat) ChannelType() string {
	if f.Channels == 2 {
		return "STEREO"
	}
	return "MONO"
}

// DefaultFormat is what the streaming endpoint is asked to produce.
// 44.1kHz mono WAV plays directly in browser audio elements.
func DefaultFormat() AudioFormat {
	return AudioFormat{Format: "WAV", SampleRate: 44100, Channels: 1}
}
