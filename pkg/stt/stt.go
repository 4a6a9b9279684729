// Package stt provides speech-to-text via AssemblyAI.
//
// Two modes are supported: a duplex streaming session for live audio
// (Streamer/Stream) and a synchronous file transcription API for uploaded
// recordings (FileTranscriber). The streaming Worker in this package owns
// the re-chunking discipline the provider requires and raises turn events
// exactly once per spoken utterance.
package stt

import "context"

// Callbacks receive events from a live streaming session.
// Callbacks are invoked from the session's read goroutine; handlers must
// not block.
type Callbacks struct {
	// OnBegin is called once when the provider opens the session.
	OnBegin func(sessionID string)

	// OnTurn is called with the incremental transcript for the current
	// utterance. endOfTurn is true when the provider has detected the
	// speaker finished.
	OnTurn func(transcript string, endOfTurn bool)

	// OnError is called on provider-reported failures. Errors are
	// non-fatal to the session.
	OnError func(err error)

	// OnTerminated is called once with the total audio duration after the
	// session closes.
	OnTerminated func(audioDurationSeconds float64)
}

// Streamer opens duplex streaming transcription sessions.
type Streamer interface {
	// OpenStream dials the provider and begins a live session.
	// The stream must be closed by the caller.
	OpenStream(ctx context.Context, cb Callbacks) (Stream, error)
}

// Stream is one live transcription session.
type Stream interface {
	// SendAudio forwards one chunk of raw PCM16 audio to the provider.
	// Chunks must already respect the provider cadence; use Worker for
	// arbitrary-sized deliveries.
	SendAudio(chunk []byte) error

	// Terminate asks the provider to finalize any pending turn and close
	// the session from its side.
	Terminate() error

	// Close tears down the connection.
	Close() error
}

// FileTranscriber transcribes a complete recording in one call.
type FileTranscriber interface {
	// TranscribeFile uploads audio and returns the finished transcript.
	// Returns ErrNoSpeech if the provider detected no speech.
	TranscribeFile(ctx context.Context, audio []byte) (string, error)
}

// Audio cadence constants for the streaming provider.
// The provider expects 16kHz mono PCM16 in chunks of at least 50ms.
const (
	SampleRate     = 16000
	BytesPerSample = 2
	BytesPerSecond = SampleRate * BytesPerSample

	MinChunkMs = 50
	MaxChunkMs = 1000

	// MinChunkSize is 50ms of audio: the smallest slice forwarded upstream.
	MinChunkSize = MinChunkMs * BytesPerSecond / 1000

	// MaxChunkSize bounds a single forwarded slice.
	MaxChunkSize = MaxChunkMs * BytesPerSecond / 1000
)
