package retrieval

import (
	"context"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
)

// defaultRouting is the static intent→provider table (§4.C), overridable via
// admin config. Names reference Provider.Name() values registered with the
// Engine.
var defaultRouting = map[Intent][]string{
	IntentEventSearch:   {"event-api-1", "event-api-2", "general-web-1", "general-web-2"},
	IntentNews:          {"general-web-1", "general-web-2"},
	IntentLocalBusiness: {"general-web-1", "general-web-2"},
	IntentGeneral:       {"general-web-1", "general-web-2"},
	IntentWeather:       {"weather"},
	IntentSports:        {"sports"},
	IntentAirports:      {"airports"},
	IntentControl:       {},
	IntentGreeting:      {},
}

// providerRouter is the interface Engine depends on; *Router is the only
// production implementation, a seam kept for tests.
type providerRouter interface {
	ProvidersFor(ctx context.Context, intent Intent) []string
}

// Router resolves an intent to an ordered list of provider names, honouring
// an admin-configured override when present.
type Router struct {
	admin *adminconfig.Client
}

func NewRouter(admin *adminconfig.Client) *Router {
	return &Router{admin: admin}
}

// ProvidersFor returns the ordered provider names selected for intent.
func (r *Router) ProvidersFor(ctx context.Context, intent Intent) []string {
	if r.admin != nil {
		if override := r.admin.GetStringFlag(ctx, "route:"+string(intent), ""); override != "" {
			return splitCSV(override)
		}
	}
	return defaultRouting[intent]
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
