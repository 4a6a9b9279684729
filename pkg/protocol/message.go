// Package protocol defines the WebSocket message types sent to streaming
// clients. Every message is a flat JSON object tagged by a "type" field so
// browser clients can switch on it directly.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of an outbound WebSocket message.
type MessageType string

const (
	// TypeTurnEnd signals the transcription provider detected end of turn.
	TypeTurnEnd MessageType = "turn_end"

	// TypeRetryToast notifies the client of a rate-limit retry in progress.
	TypeRetryToast MessageType = "retry_toast"

	// TypeAgentResponseText carries the agent's finalized reply text.
	TypeAgentResponseText MessageType = "agent_response_text"

	// TypeImageGenerated carries the URL of a generated image.
	TypeImageGenerated MessageType = "image_generated"

	// TypeAudioChunk carries one bounded slice of base64 audio.
	TypeAudioChunk MessageType = "audio_chunk"

	// TypeAudioComplete marks the end of an audio delivery.
	// A client that never receives it must treat the delivery as truncated.
	TypeAudioComplete MessageType = "audio_complete"
)

// TurnEnd is sent when the speaker has finished an utterance.
type TurnEnd struct {
	Type       MessageType `json:"type"`
	Transcript string      `json:"transcript"`
	Timestamp  int64       `json:"ts"`
}

// RetryToast is sent on each model-call retry beyond the first attempt.
type RetryToast struct {
	Type       MessageType `json:"type"`
	Message    string      `json:"message"`
	Attempt    int         `json:"attempt"`
	MaxRetries int         `json:"max_retries"`
	Timestamp  int64       `json:"ts"`
}

// AgentResponseText carries the agent's reply before any audio frames.
type AgentResponseText struct {
	Type      MessageType `json:"type"`
	Text      string      `json:"text"`
	Timestamp int64       `json:"ts"`
}

// ImageGenerated carries the URL of an image produced by the image tool.
type ImageGenerated struct {
	Type      MessageType `json:"type"`
	ImageURL  string      `json:"image_url"`
	Timestamp int64       `json:"ts"`
}

// AudioChunk carries one frame of the encoded audio payload.
// ChunkID starts at 1 and increases by one per frame; Data is base64 whose
// length is always a multiple of 4, so any prefix of frames decodes cleanly.
type AudioChunk struct {
	Type      MessageType `json:"type"`
	ChunkID   int         `json:"chunk_id"`
	Data      string      `json:"data"`
	Timestamp int64       `json:"ts"`
}

// AudioComplete closes an audio delivery.
type AudioComplete struct {
	Type        MessageType `json:"type"`
	TotalChunks int         `json:"total_chunks"`
	TotalLength int         `json:"total_length"`
	Timestamp   int64       `json:"ts"`
}

// now returns the current timestamp in Unix milliseconds.
func now() int64 {
	return time.Now().UnixMilli()
}

// NewTurnEnd creates a turn_end message.
func NewTurnEnd(transcript string) TurnEnd {
	return TurnEnd{Type: TypeTurnEnd, Transcript: transcript, Timestamp: now()}
}

// NewRetryToast creates a retry_toast message.
func NewRetryToast(message string, attempt, maxRetries int) RetryToast {
	return RetryToast{
		Type:       TypeRetryToast,
		Message:    message,
		Attempt:    attempt,
		MaxRetries: maxRetries,
		Timestamp:  now(),
	}
}

// NewAgentResponseText creates an agent_response_text message.
func NewAgentResponseText(text string) AgentResponseText {
	return AgentResponseText{Type: TypeAgentResponseText, Text: text, Timestamp: now()}
}

// NewImageGenerated creates an image_generated message.
func NewImageGenerated(imageURL string) ImageGenerated {
	return ImageGenerated{Type: TypeImageGenerated, ImageURL: imageURL, Timestamp: now()}
}

// NewAudioChunk creates an audio_chunk message.
func NewAudioChunk(chunkID int, data string) AudioChunk {
	return AudioChunk{Type: TypeAudioChunk, ChunkID: chunkID, Data: data, Timestamp: now()}
}

// NewAudioComplete creates an audio_complete message.
func NewAudioComplete(totalChunks, totalLength int) AudioComplete {
	return AudioComplete{
		Type:        TypeAudioComplete,
		TotalChunks: totalChunks,
		TotalLength: totalLength,
		Timestamp:   now(),
	}
}

// PeekType returns the "type" field of an encoded message.
func PeekType(data []byte) (MessageType, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", fmt.Errorf("protocol: parse message: %w", err)
	}
	return envelope.Type, nil
}
