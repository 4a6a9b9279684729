// Package relay streams synthesized audio to a client as a sequence of
// base64 frames followed by a completion marker.
//
// The payload is encoded once and the encoded string is split, so every
// frame but the last has the same size. Frame sizes are a multiple of
// four, which keeps each frame independently decodable base64.
package relay

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/voicewire/go-voicewire/pkg/protocol"
)

// DefaultFrameSize is the encoded bytes per frame. Multiple of four.
const DefaultFrameSize = 32768

// Relay splits audio into sequenced frames for one client sink.
type Relay struct {
	frameSize int
	logger    *slog.Logger
}

// New creates a relay with the given frame size. Sizes are rounded down
// to a multiple of four; non-positive sizes use the default.
func New(frameSize int, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	frameSize -= frameSize % 4
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	return &Relay{
		frameSize: frameSize,
		logger:    logger.With("component", "relay"),
	}
}

// FrameSize returns the encoded bytes per frame.
func (r *Relay) FrameSize() int {
	return r.frameSize
}

// Send encodes audio and delivers it as numbered frames, then the
// completion marker. Chunk ids start at one. A sink failure stops the
// stream immediately: no further frames, no completion marker, so the
// client treats the audio as truncated.
func (r *Relay) Send(sink protocol.Sink, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(audio)
	total := (len(encoded) + r.frameSize - 1) / r.frameSize

	for i := 0; i < total; i++ {
		start := i * r.frameSize
		end := start + r.frameSize
		if end > len(encoded) {
			end = len(encoded)
		}

		frame := protocol.NewAudioChunk(i+1, encoded[start:end])
		if err := sink.Send(frame); err != nil {
			r.logger.Warn("client gone mid-stream", "chunk", i+1, "of", total, "error", err)
			return fmt.Errorf("relay: send chunk %d/%d: %w", i+1, total, err)
		}
	}

	if err := sink.Send(protocol.NewAudioComplete(total, len(encoded))); err != nil {
		return fmt.Errorf("relay: send completion: %w", err)
	}

	r.logger.Debug("audio relayed", "bytes", len(audio), "chunks", total)
	return nil
}
