// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by PROVIDER.
const (
	ProviderUpstream = "upstream"
	ProviderGemini   = "gemini"
	ProviderScripted = "scripted"
)

// Auth modes accepted by AUTH_MODE.
const (
	AuthBearer    = "bearer"
	AuthAnonymous = "anonymous"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	CORSOrigins []string
	UpstreamURL string // External backend base URL; empty disables upstream features.
	AuthMode    string
	Provider    string
	CatalogPath string // Optional YAML override of the embedded catalog.
	Session     SessionConfig
	Gemini      GeminiConfig
	RateLimit   RateLimitConfig
	Timeout     TimeoutConfig
	Transcript  TranscriptConfig
}

// SessionConfig controls the counseling session engine.
type SessionConfig struct {
	Budget          time.Duration
	TickInterval    time.Duration
	TurnThreshold   int
	GraceDelay      time.Duration
	ResponseTimeout time.Duration
	Retention       time.Duration // How long an ended session stays queryable.
	ReapInterval    time.Duration
	// HistoryRetention bounds how long session records are kept; 0 keeps them forever.
	HistoryRetention time.Duration
	CleanupInterval  time.Duration
}

// GeminiConfig configures the direct Gemini response provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// RateLimitConfig controls per-user message submission throttling.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// TimeoutConfig groups outbound and health timeouts.
type TimeoutConfig struct {
	Upstream      time.Duration
	HealthCheck   time.Duration
	TokenCacheTTL time.Duration
}

// TranscriptConfig controls NDJSON transcript logging.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/pace.db"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{
			"http://localhost:8080",
			"http://127.0.0.1:8080",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}),
		UpstreamURL: strings.TrimRight(getEnv("UPSTREAM_URL", ""), "/"),
		AuthMode:    strings.ToLower(getEnv("AUTH_MODE", "")),
		Provider:    strings.ToLower(getEnv("PROVIDER", "")),
		CatalogPath: getEnv("CATALOG_PATH", ""),
		Session: SessionConfig{
			Budget:           getEnvDuration("SESSION_BUDGET", 30*time.Minute),
			TickInterval:     getEnvDuration("SESSION_TICK_INTERVAL", time.Second),
			TurnThreshold:    getEnvInt("SESSION_TURN_THRESHOLD", 8),
			GraceDelay:       getEnvDuration("SESSION_GRACE_DELAY", 2*time.Second),
			ResponseTimeout:  getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
			Retention:        getEnvDuration("SESSION_RETENTION", time.Hour),
			ReapInterval:     getEnvDuration("SESSION_REAP_INTERVAL", 5*time.Minute),
			HistoryRetention: getEnvDuration("SESSION_HISTORY_RETENTION", 90*24*time.Hour),
			CleanupInterval:  getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour),
		},
		Gemini: GeminiConfig{
			APIKey: firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Timeout: TimeoutConfig{
			Upstream:      getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
			HealthCheck:   getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
			TokenCacheTTL: getEnvDuration("TOKEN_CACHE_TTL", 5*time.Minute),
		},
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_LOG_ENABLED", true),
			Dir:       getEnv("TRANSCRIPT_LOG_DIR", "./data/logs/transcripts"),
			QueueSize: queueSize,
		},
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults resolves the auto-selected auth mode and provider.
func (c *Config) applyDefaults() {
	if c.AuthMode == "" {
		if c.UpstreamURL != "" {
			c.AuthMode = AuthBearer
		} else {
			c.AuthMode = AuthAnonymous
		}
	}
	if c.Provider == "" {
		switch {
		case c.UpstreamURL != "":
			c.Provider = ProviderUpstream
		case c.Gemini.APIKey != "":
			c.Provider = ProviderGemini
		default:
			c.Provider = ProviderScripted
		}
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.AuthMode {
	case AuthBearer:
		if c.UpstreamURL == "" {
			return fmt.Errorf("AUTH_MODE=bearer requires UPSTREAM_URL")
		}
	case AuthAnonymous:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q", AuthBearer, AuthAnonymous)
	}
	switch c.Provider {
	case ProviderUpstream:
		if c.UpstreamURL == "" {
			return fmt.Errorf("PROVIDER=upstream requires UPSTREAM_URL")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("PROVIDER=gemini requires GEMINI_API_KEY")
		}
	case ProviderScripted:
	default:
		return fmt.Errorf("unknown PROVIDER %q", c.Provider)
	}
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("SESSION_TICK_INTERVAL must be > 0")
	}
	if c.Session.Budget < c.Session.TickInterval {
		return fmt.Errorf("SESSION_BUDGET must be at least one tick")
	}
	if c.Session.TurnThreshold <= 0 {
		return fmt.Errorf("SESSION_TURN_THRESHOLD must be > 0")
	}
	if c.Session.GraceDelay < 0 {
		return fmt.Errorf("SESSION_GRACE_DELAY cannot be negative")
	}
	if c.Session.ResponseTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	if c.Session.HistoryRetention < 0 {
		return fmt.Errorf("SESSION_HISTORY_RETENTION cannot be negative")
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
