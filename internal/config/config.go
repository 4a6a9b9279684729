// Package config provides configuration helpers for voicewire commands.
package config

import (
	"fmt"
	"os"
)

// Environment variable names for provider credentials.
const (
	EnvAssemblyAIKey  = "ASSEMBLYAI_API_KEY"
	EnvGeminiKey      = "GEMINI_API_KEY"
	EnvMurfKey        = "MURF_API_KEY"
	EnvTavilyKey      = "TAVILY_API_KEY"
	EnvHuggingFaceKey = "HUGGINGFACE_API_KEY"
)

// Default server configuration.
const (
	DefaultPort   = "8080"
	DefaultDBPath = "chat_history.db"
)

// Env returns the value of an environment variable, or the provided
// default if not set.
func Env(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// EnvRequired returns the value of an environment variable.
// Exits with a usage message if not set.
func EnvRequired(name string) string {
	v := os.Getenv(name)
	if v == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable is required\n", name)
		os.Exit(1)
	}
	return v
}

// Port returns the HTTP port from the PORT env var or the default.
func Port() string {
	return Env("PORT", DefaultPort)
}

// DBPath returns the SQLite database path from DB_PATH or the default.
func DBPath() string {
	return Env("DB_PATH", DefaultDBPath)
}
