package stt

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrNoSpeech is returned when a recording contains no detectable speech.
	ErrNoSpeech = errors.New("stt: no speech detected in audio")

	// ErrStreamClosed is returned when sending on a closed stream.
	ErrStreamClosed = errors.New("stt: stream closed")
)

// APIError represents an error response from the transcription API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stt: API error %d: %s", e.StatusCode, e.Message)
}

// IsAuthFailure returns true for credential problems (HTTP 401/403).
func (e *APIError) IsAuthFailure() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// ProviderError wraps an error reported inside an open session.
type ProviderError struct {
	Code string
	Err  error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stt [%s]: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("stt: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
