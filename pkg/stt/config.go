package stt

import (
	"log/slog"
	"time"
)

// Config holds transcription provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// APIKey is the provider credential.
	APIKey string

	// BaseURL overrides the default HTTP API endpoint.
	BaseURL string

	// StreamURL overrides the default streaming WebSocket endpoint.
	StreamURL string

	// SampleRate of inbound audio in Hz.
	SampleRate int

	// FormatTurns requests punctuated, formatted turn transcripts.
	FormatTurns bool

	// Timeout for HTTP requests.
	Timeout time.Duration

	// PollInterval between transcript status checks for file jobs.
	PollInterval time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Option is a functional option for configuring the provider.
type Option func(*Config)

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default HTTP API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithStreamURL overrides the default streaming endpoint.
func WithStreamURL(url string) Option {
	return func(c *Config) { c.StreamURL = url }
}

// WithSampleRate sets the inbound audio sample rate.
func WithSampleRate(hz int) Option {
	return func(c *Config) { c.SampleRate = hz }
}

// WithFormatTurns toggles formatted turn transcripts.
func WithFormatTurns(on bool) Option {
	return func(c *Config) { c.FormatTurns = on }
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithPollInterval sets the file-job polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:   SampleRate,
		FormatTurns:  true,
		Timeout:      30 * time.Second,
		PollInterval: 2 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
