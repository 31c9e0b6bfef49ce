package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Session.Budget != 30*time.Minute {
		t.Errorf("Expected 30m budget, got %v", cfg.Session.Budget)
	}
	if cfg.Session.TurnThreshold != 8 {
		t.Errorf("Expected turn threshold 8, got %d", cfg.Session.TurnThreshold)
	}
	if cfg.Session.GraceDelay != 2*time.Second {
		t.Errorf("Expected 2s grace delay, got %v", cfg.Session.GraceDelay)
	}
	if cfg.AuthMode != AuthAnonymous {
		t.Errorf("Expected anonymous auth without upstream, got %q", cfg.AuthMode)
	}
	if cfg.Provider != ProviderScripted {
		t.Errorf("Expected scripted provider without upstream or key, got %q", cfg.Provider)
	}
}

func TestLoadUpstreamSelectsBearerAuth(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "http://backend:8000/")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("PROVIDER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UpstreamURL != "http://backend:8000" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.UpstreamURL)
	}
	if cfg.AuthMode != AuthBearer || cfg.Provider != ProviderUpstream {
		t.Errorf("Expected bearer/upstream, got %q/%q", cfg.AuthMode, cfg.Provider)
	}
}

func TestValidateRejectsBadSessionSettings(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "")
	t.Setenv("SESSION_TURN_THRESHOLD", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for zero turn threshold")
	}
}

func TestValidateGeminiRequiresKey(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "")
	t.Setenv("PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when gemini selected without key")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_DURATION", "150ms")
	t.Setenv("X_BAD_DURATION", "soon")
	t.Setenv("X_LIST", " a, ,b ")

	if got := getEnvDuration("X_DURATION", time.Second); got != 150*time.Millisecond {
		t.Errorf("Expected 150ms, got %v", got)
	}
	if got := getEnvDuration("X_BAD_DURATION", time.Second); got != time.Second {
		t.Errorf("Expected fallback for malformed duration, got %v", got)
	}
	got := getEnvList("X_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Unexpected list %v", got)
	}
}
