package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini implements Generator against the Gemini REST API.
type Gemini struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// NewGemini creates a new Gemini generation provider.
func NewGemini(opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Gemini{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger.With("component", "llm.gemini"),
	}, nil
}

// geminiContent is the wire shape of one conversation turn.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse is the wire shape of one (streamed or whole) response.
type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// buildPayload assembles the request body from history and prompt.
func (g *Gemini) buildPayload(req *Request) ([]byte, error) {
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, m := range req.History {
		contents = append(contents, geminiContent{
			Role:  string(m.Role),
			Parts: []geminiPart{{Text: m.Text}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  string(RoleUser),
		Parts: []geminiPart{{Text: req.Prompt}},
	})

	body := map[string]any{"contents": contents}
	if req.System != "" {
		body["systemInstruction"] = geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	return json.Marshal(body)
}

// Generate returns the complete reply in one call.
func (g *Gemini) Generate(ctx context.Context, req *Request) (string, error) {
	if req.Prompt == "" {
		return "", ErrEmptyPrompt
	}

	payload, err := g.buildPayload(req)
	if err != nil {
		return "", fmt.Errorf("llm: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL(), g.config.Model, g.config.APIKey)
	resp, err := g.post(ctx, url, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", g.parseError(resp)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	return flatten(&out), nil
}

// Stream invokes onText per fragment and returns the accumulated reply.
// The endpoint delivers server-sent events, one JSON response per data line.
func (g *Gemini) Stream(ctx context.Context, req *Request, onText func(fragment string)) (string, error) {
	if req.Prompt == "" {
		return "", ErrEmptyPrompt
	}

	payload, err := g.buildPayload(req)
	if err != nil {
		return "", fmt.Errorf("llm: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", g.baseURL(), g.config.Model, g.config.APIKey)
	resp, err := g.post(ctx, url, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", g.parseError(resp)
	}

	var reply strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			g.logger.Warn("unparseable stream chunk", "error", err)
			continue
		}
		if fragment := flatten(&chunk); fragment != "" {
			reply.WriteString(fragment)
			if onText != nil {
				onText(fragment)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		// Fragments already delivered stay delivered; report the break.
		return reply.String(), fmt.Errorf("llm: stream read: %w", err)
	}

	g.logger.Debug("stream complete", "chars", reply.Len(), "model", g.config.Model)
	return reply.String(), nil
}

// post issues the request with JSON headers.
func (g *Gemini) post(ctx context.Context, url string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request: %w", err)
	}
	return resp, nil
}

// parseError reads and parses an error response.
func (g *Gemini) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp geminiResponse
	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
		message = errResp.Error.Message
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func (g *Gemini) baseURL() string {
	if g.config.BaseURL != "" {
		return g.config.BaseURL
	}
	return geminiBaseURL
}

// flatten concatenates the text parts of the first candidate.
func flatten(r *geminiResponse) string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Verify Gemini implements Generator at compile time.
var _ Generator = (*Gemini)(nil)
