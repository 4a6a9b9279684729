package config

import (
	"errors"
	"fmt"
	"sync"
)

// ErrKeyNotConfigured is returned when a provider credential is needed
// but neither a runtime value nor an environment value is set.
var ErrKeyNotConfigured = errors.New("config: credential not configured")

// Known runtime credential names.
const (
	KeyAssemblyAI  = "assemblyai"
	KeyGemini      = "gemini"
	KeyMurf        = "murf"
	KeyTavily      = "tavily"
	KeyHuggingFace = "huggingface"
)

// envByKey maps runtime credential names to their env var fallbacks.
var envByKey = map[string]string{
	KeyAssemblyAI:  EnvAssemblyAIKey,
	KeyGemini:      EnvGeminiKey,
	KeyMurf:        EnvMurfKey,
	KeyTavily:      EnvTavilyKey,
	KeyHuggingFace: EnvHuggingFaceKey,
}

// Runtime holds provider credentials that can be set while the process
// is running. Values set at runtime take precedence over the environment.
// Safe for concurrent use.
type Runtime struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewRuntime creates a runtime credential registry seeded from the
// environment.
func NewRuntime() *Runtime {
	r := &Runtime{keys: make(map[string]string)}
	for name, env := range envByKey {
		if v := Env(env, ""); v != "" {
			r.keys[name] = v
		}
	}
	return r
}

// Set stores a credential under the given name. An empty value clears it
// back to the environment fallback.
func (r *Runtime) Set(name, value string) error {
	if _, ok := envByKey[name]; !ok {
		return fmt.Errorf("config: unknown credential %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if value == "" {
		delete(r.keys, name)
		if env := Env(envByKey[name], ""); env != "" {
			r.keys[name] = env
		}
		return nil
	}
	r.keys[name] = value
	return nil
}

// Get returns the credential for the given name, or an error if it is
// not configured. Operations must fail explicitly on a missing key
// rather than falling back silently.
func (r *Runtime) Get(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.keys[name]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s (set %s or POST /config/keys)", ErrKeyNotConfigured, name, envByKey[name])
}

// Configured reports which credential names currently have a value.
// Values themselves are never exposed.
func (r *Runtime) Configured() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(envByKey))
	for name := range envByKey {
		_, ok := r.keys[name]
		out[name] = ok
	}
	return out
}
