package tts

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	// DefaultSampleRate matches what browser playback expects.
	DefaultSampleRate = 44100

	// DefaultStyle is the speaking style requested from the provider.
	DefaultStyle = "Conversational"

	// DefaultTimeout bounds one complete synthesis, dial to final frame.
	DefaultTimeout = 60 * time.Second

	// MaxTextLen is the provider's per-request character ceiling.
	// Callers should truncate at a sentence boundary before this.
	MaxTextLen = 2900
)

// Config holds TTS provider configuration.
type Config struct {
	// APIKey is the provider API key.
	APIKey string

	// BaseURL is the HTTP API base URL (overridable for testing).
	BaseURL string

	// StreamURL is the streaming WebSocket URL (overridable for testing).
	StreamURL string

	// SampleRate in Hz for generated audio.
	SampleRate int

	// Style is the speaking style passed in the voice config.
	Style string

	// Timeout for one complete synthesis.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets a custom HTTP API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithStreamURL sets a custom streaming WebSocket URL.
func WithStreamURL(url string) Option {
	return func(c *Config) { c.StreamURL = url }
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(hz int) Option {
	return func(c *Config) { c.SampleRate = hz }
}

// WithStyle sets the speaking style.
func WithStyle(style string) Option {
	return func(c *Config) { c.Style = style }
}

// WithTimeout sets the synthesis timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    murfBaseURL,
		StreamURL:  murfStreamURL,
		SampleRate: DefaultSampleRate,
		Style:      DefaultStyle,
		Timeout:    DefaultTimeout,
		Logger:     slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the config for required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
