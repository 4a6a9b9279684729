package tts

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
var (
	// ErrNoAPIKey indicates the API key is missing.
	ErrNoAPIKey = errors.New("tts: API key is required")

	// ErrEmptyText indicates there was nothing to synthesize.
	ErrEmptyText = errors.New("tts: text is empty")

	// ErrNoAudio indicates the provider completed without producing
	// any audio bytes.
	ErrNoAudio = errors.New("tts: provider returned no audio")

	// ErrVoicesExhausted indicates every voice in the preference list
	// failed, including the final default-voice attempt.
	ErrVoicesExhausted = errors.New("tts: all voices failed")
)

// APIError represents an error response from a TTS provider API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("tts: API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true if the error is due to rate limiting.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsAuthFailure returns true if the error is due to invalid credentials.
func (e *APIError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ProviderError wraps a provider-specific failure with its source.
type ProviderError struct {
	// Provider names the backend (e.g. "murf").
	Provider string

	// Voice is the voice that failed, if any.
	Voice string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Voice != "" {
		return fmt.Sprintf("tts: %s (voice %s): %v", e.Provider, e.Voice, e.Err)
	}
	return fmt.Sprintf("tts: %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
