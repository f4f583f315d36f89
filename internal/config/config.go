// Package config loads process configuration from the environment, shared by
// the gateway, orchestrator, and mode-service binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ObsConfig configures the OpenTelemetry tracing/metrics bootstrap shared by
// every binary.
type ObsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLP           string
}

// Cache holds the distributed-cache and in-process config-cache settings.
type Cache struct {
	URL               string
	ConfigRefreshTTL  time.Duration
}

// Session holds conversation-session storage settings.
type Session struct {
	TTL                     time.Duration
	MaxHistoryMessages      int
	HistoryInjectedMessages int
}

// Orchestrator holds Component D's runtime knobs.
type Orchestrator struct {
	Deadline              time.Duration
	ProviderTimeout       time.Duration
	EnableLLMIntentClassifier bool
	EnableLLMFactCheck        bool
}

// Retrieval holds Component C's cache TTL knobs.
type Retrieval struct {
	IntentCacheTTL        time.Duration
	SearchCacheDefaultTTL time.Duration
}

// Mode holds Component B's iCal poll settings. Most of Component B's
// configuration (ical_url, buffers, override_ttl) is admin-managed (§4.B);
// only the poll interval has an environment default per §6.
type Mode struct {
	PollInterval time.Duration
}

// Admin holds the admin configuration service's base URL.
type Admin struct {
	APIURL string
}

// ModelBackend holds the default model backend endpoint used when the admin
// config service has not yet been reached (or has no enabled backends).
type ModelBackend struct {
	URL string
}

// Config is the union of every environment-driven setting. Each binary reads
// only the fields relevant to it.
type Config struct {
	Admin        Admin
	Cache        Cache
	ModelBackend ModelBackend
	Session      Session
	Orchestrator Orchestrator
	Retrieval    Retrieval
	Mode         Mode
	Obs          ObsConfig

	LogLevel  string
	LogFormat string
}

// Load reads and validates the environment per the table in spec §6.
// ADMIN_API_URL and MODEL_BACKEND_URL are required; every other variable has
// a documented default. A missing required variable is a startup
// configuration error (exit code 1 per §6/§7).
func Load() (*Config, error) {
	cfg := &Config{
		Admin:        Admin{APIURL: os.Getenv("ADMIN_API_URL")},
		ModelBackend: ModelBackend{URL: os.Getenv("MODEL_BACKEND_URL")},
		Cache: Cache{
			URL:              getenvDefault("CACHE_URL", "redis://localhost:6379"),
			ConfigRefreshTTL: secondsDefault("CONFIG_REFRESH_TTL_SECONDS", 60),
		},
		Session: Session{
			TTL:                     secondsDefault("SESSION_TTL_SECONDS", 1800),
			MaxHistoryMessages:      intDefault("MAX_HISTORY_MESSAGES", 20),
			HistoryInjectedMessages: intDefault("HISTORY_INJECTED_MESSAGES", 6),
		},
		Orchestrator: Orchestrator{
			Deadline:                  secondsDefault("ORCHESTRATOR_DEADLINE_SECONDS", 25),
			ProviderTimeout:           secondsDefault("PROVIDER_TIMEOUT_SECONDS", 3),
			EnableLLMIntentClassifier: boolDefault("ENABLE_LLM_INTENT_CLASSIFIER", false),
			EnableLLMFactCheck:        boolDefault("ENABLE_LLM_FACT_CHECK", false),
		},
		Retrieval: Retrieval{
			IntentCacheTTL:        secondsDefault("INTENT_CACHE_TTL_SECONDS", 300),
			SearchCacheDefaultTTL: secondsDefault("SEARCH_CACHE_DEFAULT_TTL_SECONDS", 900),
		},
		Mode: Mode{
			PollInterval: secondsDefault("MODE_POLL_INTERVAL_SECONDS", 600),
		},
		Obs: ObsConfig{
			ServiceName:    getenvDefault("OTEL_SERVICE_NAME", "voice-orchestrator"),
			ServiceVersion: getenvDefault("SERVICE_VERSION", "dev"),
			Environment:    getenvDefault("DEPLOY_ENV", "development"),
			OTLP:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
		LogLevel:  getenvDefault("LOG_LEVEL", "info"),
		LogFormat: getenvDefault("LOG_FORMAT", "json"),
	}

	var missing []string
	if cfg.Admin.APIURL == "" {
		missing = append(missing, "ADMIN_API_URL")
	}
	if cfg.ModelBackend.URL == "" {
		missing = append(missing, "MODEL_BACKEND_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func secondsDefault(key string, def int) time.Duration {
	return time.Duration(intDefault(key, def)) * time.Second
}

func boolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
