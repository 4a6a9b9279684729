package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	assemblyAIBaseURL   = "https://api.assemblyai.com/v2"
	assemblyAIStreamURL = "wss://streaming.assemblyai.com/v3/ws"
)

// AssemblyAI implements Streamer and FileTranscriber.
type AssemblyAI struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// NewAssemblyAI creates a new AssemblyAI transcription provider.
func NewAssemblyAI(opts ...Option) (*AssemblyAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &AssemblyAI{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger.With("component", "stt.assemblyai"),
	}, nil
}

// streamMessage is the wire shape of streaming session events.
type streamMessage struct {
	Type string `json:"type"`

	// Begin
	ID string `json:"id,omitempty"`

	// Turn
	Transcript      string `json:"transcript,omitempty"`
	EndOfTurn       bool   `json:"end_of_turn,omitempty"`
	TurnIsFormatted bool   `json:"turn_is_formatted,omitempty"`

	// Termination
	AudioDurationSeconds float64 `json:"audio_duration_seconds,omitempty"`

	// Error
	Error string `json:"error,omitempty"`
}

// OpenStream dials the streaming endpoint and starts the read loop.
func (a *AssemblyAI) OpenStream(ctx context.Context, cb Callbacks) (Stream, error) {
	base := a.config.StreamURL
	if base == "" {
		base = assemblyAIStreamURL
	}
	url := fmt.Sprintf("%s?sample_rate=%d&format_turns=%t", base, a.config.SampleRate, a.config.FormatTurns)

	headers := http.Header{}
	headers.Set("Authorization", a.config.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("stt: websocket dial failed: %w", err)
	}

	s := &assemblyStream{
		conn:        conn,
		cb:          cb,
		formatTurns: a.config.FormatTurns,
		logger:      a.logger,
	}
	go s.readLoop()

	return s, nil
}

// assemblyStream is one live streaming session.
type assemblyStream struct {
	conn        *websocket.Conn
	cb          Callbacks
	formatTurns bool
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
}

// SendAudio forwards one binary audio chunk to the provider.
func (s *assemblyStream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// Terminate asks the provider to finalize and close the session.
func (s *assemblyStream) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	return s.conn.WriteJSON(map[string]string{"type": "Terminate"})
}

// Close tears down the connection.
func (s *assemblyStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

// readLoop delivers provider events to the registered callbacks.
func (s *assemblyStream) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("stream read failed", "error", err)
				if s.cb.OnError != nil {
					s.cb.OnError(err)
				}
			}
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("unparseable stream message", "error", err)
			continue
		}

		switch msg.Type {
		case "Begin":
			s.logger.Info("stream session opened", "session_id", msg.ID)
			if s.cb.OnBegin != nil {
				s.cb.OnBegin(msg.ID)
			}
		case "Turn":
			endOfTurn := msg.EndOfTurn
			// With formatting on the provider finalizes each utterance
			// twice, raw text first and punctuated text after; only the
			// formatted event ends the turn.
			if endOfTurn && s.formatTurns && !msg.TurnIsFormatted {
				endOfTurn = false
			}
			if s.cb.OnTurn != nil {
				s.cb.OnTurn(msg.Transcript, endOfTurn)
			}
		case "Termination":
			s.logger.Info("stream session terminated",
				"audio_duration_s", msg.AudioDurationSeconds)
			if s.cb.OnTerminated != nil {
				s.cb.OnTerminated(msg.AudioDurationSeconds)
			}
			return
		case "Error":
			if s.cb.OnError != nil {
				s.cb.OnError(&ProviderError{Code: msg.Type, Err: fmt.Errorf("%s", msg.Error)})
			}
		}
	}
}

// transcriptJob is the wire shape of the file transcription resource.
type transcriptJob struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Text   *string `json:"text"`
	Error  string  `json:"error,omitempty"`
}

// TranscribeFile uploads a recording and polls until the transcript is done.
func (a *AssemblyAI) TranscribeFile(ctx context.Context, audio []byte) (string, error) {
	base := a.config.BaseURL
	if base == "" {
		base = assemblyAIBaseURL
	}

	uploadURL, err := a.upload(ctx, base, audio)
	if err != nil {
		return "", err
	}

	jobID, err := a.submit(ctx, base, uploadURL)
	if err != nil {
		return "", err
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.config.PollInterval):
		}

		job, err := a.poll(ctx, base, jobID)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case "completed":
			if job.Text == nil || *job.Text == "" {
				return "", ErrNoSpeech
			}
			return *job.Text, nil
		case "error":
			return "", &APIError{StatusCode: http.StatusInternalServerError,
				Message: fmt.Sprintf("transcription failed: %s", job.Error)}
		}
	}
}

// upload sends raw audio bytes and returns the provider-side URL.
func (a *AssemblyAI) upload(ctx context.Context, base string, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", base+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("stt: create upload request: %w", err)
	}
	req.Header.Set("Authorization", a.config.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", a.parseError(resp)
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("stt: decode upload response: %w", err)
	}
	return out.UploadURL, nil
}

// submit creates a transcription job for an uploaded recording.
func (a *AssemblyAI) submit(ctx context.Context, base, audioURL string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"audio_url":    audioURL,
		"speech_model": "best",
	})
	if err != nil {
		return "", fmt.Errorf("stt: marshal job payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", base+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("stt: create job request: %w", err)
	}
	req.Header.Set("Authorization", a.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: submit job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", a.parseError(resp)
	}

	var job transcriptJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", fmt.Errorf("stt: decode job response: %w", err)
	}
	return job.ID, nil
}

// poll fetches the current state of a transcription job.
func (a *AssemblyAI) poll(ctx context.Context, base, jobID string) (*transcriptJob, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", base+"/transcript/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("stt: create poll request: %w", err)
	}
	req.Header.Set("Authorization", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stt: poll job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a.parseError(resp)
	}

	var job transcriptJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("stt: decode poll response: %w", err)
	}
	return &job, nil
}

// parseError reads and parses an error response.
func (a *AssemblyAI) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error string `json:"error"`
	}
	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

// Verify interfaces at compile time.
var (
	_ Streamer        = (*AssemblyAI)(nil)
	_ FileTranscriber = (*AssemblyAI)(nil)
)
