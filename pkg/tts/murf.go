package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voicewire/go-voicewire/internal/httpc"
)

const murfBaseURL = "https://api.murf.ai/v1"

// Murf calls the HTTP generate endpoint, which returns a hosted URL for
// the rendered audio rather than the bytes themselves.
type Murf struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// NewMurf creates an HTTP-based Murf client.
func NewMurf(opts ...Option) (*Murf, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Murf{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "tts.murf"),
	}, nil
}

// GenerateURL renders text and returns the hosted audio URL.
// Text beyond the provider ceiling is truncated at the last sentence
// break that fits.
func (m *Murf) GenerateURL(ctx context.Context, text, voiceID string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if voiceID == "" {
		voiceID = DefaultVoice
	}
	text = TruncateForSpeech(text, MaxTextLen)

	payload, err := json.Marshal(map[string]any{
		"text":       text,
		"voiceId":    voiceID,
		"format":     "MP3",
		"sampleRate": m.config.SampleRate,
	})
	if err != nil {
		return "", fmt.Errorf("tts: marshal generate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.config.BaseURL+"/speech/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("tts: create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.config.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: "murf", Voice: voiceID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var out struct {
		AudioFile string `json:"audioFile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("tts: decode generate response: %w", err)
	}
	if out.AudioFile == "" {
		return "", &ProviderError{Provider: "murf", Voice: voiceID, Err: ErrNoAudio}
	}

	m.logger.Info("audio generated", "voice", voiceID, "chars", len(text))
	return out.AudioFile, nil
}

// TruncateForSpeech shortens text to at most limit characters, cutting
// at the last sentence end that fits when one exists.
func TruncateForSpeech(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexAny(cut, ".!?"); idx > 0 {
		return cut[:idx+1]
	}
	return cut
}

// Verify Murf implements URLSynthesizer at compile time.
var _ URLSynthesizer = (*Murf)(nil)
