package adminconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/observability"
)

// Client reads BackendSpec/FeatureFlag/ClassificationRule/PolicyRow from the
// admin configuration service's HTTP contract (§6), with a 60s (configurable)
// TTL local cache per §4.A. On refresh failure it serves the last-known-good
// value; with no prior value it returns an empty/default result rather than
// failing the caller — admin config is advisory to every pipeline stage, not
// a dependency it can fail on.
type Client struct {
	baseURL    string
	httpClient *http.Client

	backends  *cache.LocalTTLCache[[]BackendSpec]
	flags     *cache.LocalTTLCache[map[string]FeatureFlag]
	rules     *cache.LocalTTLCache[[]ClassificationRule]
	policies  *cache.LocalTTLCache[PolicyRow]
}

// NewClient builds a client against baseURL with the given refresh TTL.
func NewClient(baseURL string, ttl time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = observability.NewHTTPClient(nil)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		backends:   cache.NewLocalTTLCache[[]BackendSpec](ttl),
		flags:      cache.NewLocalTTLCache[map[string]FeatureFlag](ttl),
		rules:      cache.NewLocalTTLCache[[]ClassificationRule](ttl),
		policies:   cache.NewLocalTTLCache[PolicyRow](ttl),
	}
}

// GetBackends returns enabled backends sorted ascending by priority. On
// refresh failure with no cached value, returns an empty slice per §4.A.
func (c *Client) GetBackends(ctx context.Context) []BackendSpec {
	all, err := c.backends.GetOrRefresh(ctx, "backends", func(ctx context.Context) ([]BackendSpec, error) {
		var specs []BackendSpec
		if err := c.getJSON(ctx, "/api/llm-backends/public", &specs); err != nil {
			return nil, err
		}
		return specs, nil
	})
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("admin config backends unavailable, no last-known-good")
		return nil
	}

	enabled := make([]BackendSpec, 0, len(all))
	for _, b := range all {
		if b.Enabled {
			enabled = append(enabled, b)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Priority < enabled[j].Priority })
	return enabled
}

// GetBoolFlag returns the boolean value of key, or def if the flag is
// absent, not a bool, or config is unavailable.
func (c *Client) GetBoolFlag(ctx context.Context, key string, def bool) bool {
	flags := c.allFlags(ctx)
	f, ok := flags[key]
	if !ok {
		return def
	}
	if b, ok := f.Value.(bool); ok {
		return b
	}
	return def
}

// GetStringFlag returns the string value of key, or def otherwise.
func (c *Client) GetStringFlag(ctx context.Context, key, def string) string {
	flags := c.allFlags(ctx)
	f, ok := flags[key]
	if !ok {
		return def
	}
	if s, ok := f.Value.(string); ok {
		return s
	}
	return def
}

func (c *Client) allFlags(ctx context.Context) map[string]FeatureFlag {
	flags, err := c.flags.GetOrRefresh(ctx, "flags", func(ctx context.Context) (map[string]FeatureFlag, error) {
		var list []FeatureFlag
		if err := c.getJSON(ctx, "/api/features/public", &list); err != nil {
			return nil, err
		}
		m := make(map[string]FeatureFlag, len(list))
		for _, f := range list {
			m[f.Key] = f
		}
		return m, nil
	})
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("admin config flags unavailable, no last-known-good")
		return nil
	}
	return flags
}

// GetClassificationRules returns the ordered fallback keyword classifier
// rules. Empty on unavailability with no prior value.
func (c *Client) GetClassificationRules(ctx context.Context) []ClassificationRule {
	rules, err := c.rules.GetOrRefresh(ctx, "rules", func(ctx context.Context) ([]ClassificationRule, error) {
		var list []ClassificationRule
		if err := c.getJSON(ctx, "/api/classification-rules/public", &list); err != nil {
			return nil, err
		}
		return list, nil
	})
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("admin config classification rules unavailable, no last-known-good")
		return nil
	}
	return rules
}

// GetPolicy returns the policy row for intent. On unavailability with no
// prior value, returns a zero-value row and false. Callers go through
// mode.Service.PolicyFor, which treats a missing row as allowed with no
// rate limit (except the control intent in guest mode), so a transient
// admin outage does not refuse every request.
func (c *Client) GetPolicy(ctx context.Context, intent string) (PolicyRow, bool) {
	row, err := c.policies.GetOrRefresh(ctx, "policy:"+intent, func(ctx context.Context) (PolicyRow, error) {
		var row PolicyRow
		if err := c.getJSON(ctx, "/api/policy/"+intent, &row); err != nil {
			return PolicyRow{}, err
		}
		return row, nil
	})
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("intent", intent).Msg("admin config policy unavailable, no last-known-good")
		return PolicyRow{}, false
	}
	return row, true
}

// PostMetrics writes back a backend's rolling performance numbers (§4.E.4).
// The admin service's response body is opaque; failures are left for the
// caller to log and swallow, matching the write-back's best-effort contract.
func (c *Client) PostMetrics(ctx context.Context, backendID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal backend metrics: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/metrics/backend/"+backendID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build backend metrics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post backend metrics: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("post backend metrics %s: status %d: %s", backendID, resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build admin config request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("admin config request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("admin config %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("admin config %s: decode: %w", path, err)
	}
	return nil
}
