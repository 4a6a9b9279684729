package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/voicewire/go-voicewire/internal/httpc"
)

const tavilyBaseURL = "https://api.tavily.com"

// ErrSearchUnavailable is returned when the search credential is missing.
var ErrSearchUnavailable = errors.New("tools: web search not configured")

// SearchResult is one web result.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchResponse is the outcome of one search call.
type SearchResponse struct {
	Query   string
	Answer  string
	Results []SearchResult
}

// SearchClient queries the Tavily search API.
type SearchClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewSearchClient creates a search client. apiKey may come from the
// runtime credential registry; an empty key yields ErrSearchUnavailable
// on use rather than at construction.
func NewSearchClient(apiKey string, logger *slog.Logger) *SearchClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchClient{
		apiKey:  apiKey,
		baseURL: tavilyBaseURL,
		client:  httpc.Client,
		logger:  logger.With("component", "tools.search"),
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (s *SearchClient) WithBaseURL(url string) *SearchClient {
	s.baseURL = url
	return s
}

// Search runs one web search and returns up to maxResults results with a
// direct answer when the provider has one.
func (s *SearchClient) Search(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	if s.apiKey == "" {
		return nil, ErrSearchUnavailable
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	payload, err := json.Marshal(map[string]any{
		"api_key":        s.apiKey,
		"query":          query,
		"search_depth":   "basic",
		"max_results":    maxResults,
		"include_answer": true,
	})
	if err != nil {
		return nil, fmt.Errorf("tools: marshal search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tools: create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tools: search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tools: search API error %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Answer  string         `json:"answer"`
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tools: decode search response: %w", err)
	}
	if len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}

	s.logger.Info("web search complete", "query", query, "results", len(out.Results))
	return &SearchResponse{Query: query, Answer: out.Answer, Results: out.Results}, nil
}

// maxSpokenAnswer bounds how much search text is read aloud.
const maxSpokenAnswer = 220

// FormatForSpeech renders a search response as a short spoken summary.
func (r *SearchResponse) FormatForSpeech() string {
	if r.Answer != "" {
		answer := r.Answer
		if len(answer) > maxSpokenAnswer {
			answer = answer[:maxSpokenAnswer] + "..."
		}
		return fmt.Sprintf("Here's what I found: %s", answer)
	}
	if len(r.Results) > 0 {
		content := r.Results[0].Content
		if len(content) > maxSpokenAnswer {
			content = content[:maxSpokenAnswer] + "..."
		}
		return fmt.Sprintf("Here's what came up: %s", content)
	}
	return "I searched, but the web came back empty on that one. Try asking another way?"
}

// SearchApology is the degraded reply when the search tool fails; the
// turn still completes with some text.
const SearchApology = "I tried to look that up, but my web search is having a moment. Ask me again in a bit?"
