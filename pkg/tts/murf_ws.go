package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const murfStreamURL = "wss://api.murf.ai/v1/speech/stream-input"

// MurfWS synthesizes speech over Murf's streaming WebSocket.
//
// Each Synthesize call opens a fresh connection with its own context
// id, so concurrent calls never share provider state and a failed call
// leaves nothing behind.
type MurfWS struct {
	config *Config
	logger *slog.Logger
}

// NewMurfWS creates a streaming Murf synthesizer.
func NewMurfWS(opts ...Option) (*MurfWS, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &MurfWS{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.murf_ws"),
	}, nil
}

// voiceConfigMsg configures the voice before any text is sent.
type voiceConfigMsg struct {
	VoiceConfig voiceConfig `json:"voice_config"`
	ContextID   string      `json:"context_id"`
}

type voiceConfig struct {
	VoiceID   string `json:"voiceId"`
	Style     string `json:"style"`
	Rate      int    `json:"rate"`
	Pitch     int    `json:"pitch"`
	Variation int    `json:"variation"`
}

// textMsg carries the text to synthesize. End true closes the context
// so the server flushes the final audio frame.
type textMsg struct {
	Text      string `json:"text"`
	ContextID string `json:"context_id"`
	End       bool   `json:"end"`
}

// streamResp is one server frame. Audio is base64; Final marks the
// last frame for the context.
type streamResp struct {
	Audio string `json:"audio"`
	Final bool   `json:"final"`
	Error string `json:"error"`
}

// Synthesize renders text and returns the complete audio buffer.
func (m *MurfWS) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	conn, err := m.dial(ctx)
	if err != nil {
		return nil, &ProviderError{Provider: "murf", Voice: voiceID, Err: err}
	}
	defer conn.Close()

	contextID := "ctx_" + uuid.NewString()[:8]
	start := time.Now()

	// An empty voice sends no voice_config at all, leaving the provider
	// on its own default.
	if voiceID != "" {
		cfg := voiceConfigMsg{
			VoiceConfig: voiceConfig{
				VoiceID:   voiceID,
				Style:     m.config.Style,
				Rate:      0,
				Pitch:     0,
				Variation: 1,
			},
			ContextID: contextID,
		}
		if err := conn.WriteJSON(cfg); err != nil {
			return nil, &ProviderError{Provider: "murf", Voice: voiceID, Err: fmt.Errorf("send voice config: %w", err)}
		}
	}

	msg := textMsg{Text: text, ContextID: contextID, End: true}
	if err := conn.WriteJSON(msg); err != nil {
		return nil, &ProviderError{Provider: "murf", Voice: voiceID, Err: fmt.Errorf("send text: %w", err)}
	}

	audio, err := m.readAudio(ctx, conn, voiceID)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, &ProviderError{Provider: "murf", Voice: voiceID, Err: ErrNoAudio}
	}

	m.logger.Info("synthesis complete",
		"voice", voiceID,
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", time.Since(start).Milliseconds())
	return audio, nil
}

// dial opens a connection with the credentials and audio format in the
// query string, the way the streaming endpoint expects them.
func (m *MurfWS) dial(ctx context.Context) (*websocket.Conn, error) {
	format := DefaultFormat()
	q := url.Values{}
	q.Set("api-key", m.config.APIKey)
	q.Set("sample_rate", fmt.Sprintf("%d", m.config.SampleRate))
	q.Set("channel_type", format.ChannelType())
	q.Set("format", format.Format)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, m.config.StreamURL+"?"+q.Encode(), nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// readAudio accumulates decoded audio frames until the final frame.
// Each frame's base64 payload decodes independently; concatenating the
// decoded bytes, not the encoded strings, reassembles the audio.
func (m *MurfWS) readAudio(ctx context.Context, conn *websocket.Conn, voiceID string) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	var audio []byte
	for {
		select {
		case <-ctx.Done():
			return nil, &ProviderError{Provider: "murf", Voice: voiceID, Err: ctx.Err()}
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// A close after audio arrived still counts as a result;
			// the server sometimes drops the connection instead of
			// sending a final frame.
			if len(audio) > 0 {
				m.logger.Warn("stream closed before final frame", "bytes", len(audio))
				return audio, nil
			}
			return nil, &ProviderError{Provider: "murf", Voice: voiceID, Err: fmt.Errorf("read stream: %w", err)}
		}

		var resp streamResp
		if err := json.Unmarshal(message, &resp); err != nil {
			m.logger.Warn("unparseable stream frame", "error", err)
			continue
		}
		if resp.Error != "" {
			return nil, &ProviderError{Provider: "murf", Voice: voiceID, Err: fmt.Errorf("provider error: %s", resp.Error)}
		}

		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				m.logger.Warn("undecodable audio frame", "error", err)
				continue
			}
			audio = append(audio, chunk...)
		}

		if resp.Final {
			return audio, nil
		}
	}
}

// Verify MurfWS implements Synthesizer at compile time.
var _ Synthesizer = (*MurfWS)(nil)
