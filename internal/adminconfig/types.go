// Package adminconfig is a typed HTTP client for the admin configuration
// service contract. The admin service itself owns durable storage of
// backends, feature flags, and policy rows, and is reached only over HTTP;
// this package never persists anything, it only caches reads for
// ConfigRefreshTTL (§4.A).
package adminconfig

// BackendSpec describes one candidate model backend.
type BackendSpec struct {
	ModelName         string  `json:"model_name"`
	EndpointURL       string  `json:"endpoint_url"`
	Enabled           bool    `json:"enabled"`
	Priority          int     `json:"priority"`
	MaxTokens         int     `json:"max_tokens"`
	TemperatureDefault float64 `json:"temperature_default"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
}

// FeatureFlag is a single admin-managed flag. Value carries the flag's
// native JSON type (bool, number, string, or map); callers coerce via the
// typed accessors on Client.
type FeatureFlag struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// ClassificationRule is one entry of the fallback keyword classifier's
// ordered rule list.
type ClassificationRule struct {
	Intent   string   `json:"intent"`
	Patterns []string `json:"patterns"`
}

// PolicyRow is the admin-stored projection of mode onto a specific intent.
type PolicyRow struct {
	Intent                  string   `json:"intent"`
	Allowed                 bool     `json:"allowed"`
	RateLimitPerMinute      int      `json:"rate_limit_per_minute"`
	AllowedIntents          []string `json:"allowed_intents"`
	RestrictedEntityPatterns []string `json:"restricted_entity_patterns"`
	AllowedDeviceDomains    []string `json:"allowed_device_domains"`
}
