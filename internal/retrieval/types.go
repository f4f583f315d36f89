// Package retrieval implements Component C: intent classification, the
// intent→provider router, concurrent per-provider dispatch with caching, and
// the fusion/ranking step that turns N provider lists into one ranked list.
package retrieval

import "context"

// Intent is the tagged classification of a query.
type Intent string

const (
	IntentEventSearch    Intent = "event_search"
	IntentNews           Intent = "news"
	IntentLocalBusiness  Intent = "local_business"
	IntentGeneral        Intent = "general"
	IntentWeather        Intent = "weather"
	IntentSports         Intent = "sports"
	IntentAirports       Intent = "airports"
	IntentControl        Intent = "control"
	IntentGreeting       Intent = "greeting"
)

// Classification is the result of classifying a query.
type Classification struct {
	Intent     Intent
	Confidence float64
	Entities   map[string]string
}

// Result is one normalised retrieval hit. Source identifies the provider
// that returned it; equal Source+normalised Title pairs are duplicates for
// fusion purposes.
type Result struct {
	Source     string            `json:"source"`
	Title      string            `json:"title"`
	Snippet    string            `json:"snippet"`
	URL        string            `json:"url,omitempty"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Provider is the common contract every retrieval source implements.
type Provider interface {
	// Name identifies the provider for cache keys and weight-table lookups.
	Name() string
	// Enabled reports whether the provider's dependency (API key, endpoint)
	// is configured. Disabled providers are skipped by the Engine.
	Enabled() bool
	Search(ctx context.Context, query, location string, limit int) ([]Result, error)
}
