package config

import (
	"errors"
	"testing"
)

func TestRuntimeSetAndGet(t *testing.T) {
	r := NewRuntime()

	if err := r.Set(KeyGemini, "abc123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := r.Get(KeyGemini)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "abc123" {
		t.Errorf("Get = %q, want the runtime value", got)
	}
}

func TestRuntimeMissingKeyFailsExplicitly(t *testing.T) {
	r := &Runtime{keys: map[string]string{}}

	_, err := r.Get(KeyMurf)
	if !errors.Is(err, ErrKeyNotConfigured) {
		t.Fatalf("got %v, want ErrKeyNotConfigured", err)
	}
}

func TestRuntimeRejectsUnknownName(t *testing.T) {
	r := NewRuntime()
	if err := r.Set("mystery", "x"); err == nil {
		t.Fatal("unknown credential name should be rejected")
	}
}

func TestRuntimeEnvFallback(t *testing.T) {
	t.Setenv(EnvTavilyKey, "from-env")

	r := NewRuntime()
	got, err := r.Get(KeyTavily)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "from-env" {
		t.Errorf("Get = %q, want the environment seed", got)
	}

	// A runtime value wins over the environment.
	if err := r.Set(KeyTavily, "runtime-wins"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := r.Get(KeyTavily); got != "runtime-wins" {
		t.Errorf("Get = %q after Set", got)
	}

	// Clearing restores the environment fallback.
	if err := r.Set(KeyTavily, ""); err != nil {
		t.Fatalf("Set empty: %v", err)
	}
	if got, _ := r.Get(KeyTavily); got != "from-env" {
		t.Errorf("Get = %q after clear, want env fallback", got)
	}
}

func TestRuntimeConfiguredHidesValues(t *testing.T) {
	r := NewRuntime()
	r.Set(KeyGemini, "secret")

	configured := r.Configured()
	if !configured[KeyGemini] {
		t.Error("gemini should report configured")
	}
	if len(configured) != len(envByKey) {
		t.Errorf("Configured lists %d names, want every known credential", len(configured))
	}
}
