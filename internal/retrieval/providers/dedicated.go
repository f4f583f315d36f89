package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hearth-assist/orchestrator/internal/retrieval"
)

// Dedicated adapts a single-purpose retrieval service (weather, sports,
// airports, event-API) that implements the standard contract: `GET
// /query?q=...&location=...&limit=...` returning `{results:[{title, snippet,
// url?, metadata?}], source, fetched_at}` (§6 "Retrieval service contract").
type Dedicated struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewDedicated(name, endpoint, apiKey string, httpClient *http.Client) *Dedicated {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Dedicated{name: name, endpoint: strings.TrimSuffix(endpoint, "/"), apiKey: apiKey, httpClient: httpClient}
}

func (d *Dedicated) Name() string  { return d.name }
func (d *Dedicated) Enabled() bool { return d.endpoint != "" }

type dedicatedResponseItem struct {
	Title    string            `json:"title"`
	Snippet  string            `json:"snippet"`
	URL      string            `json:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type dedicatedResponse struct {
	Results   []dedicatedResponseItem `json:"results"`
	Source    string                  `json:"source"`
	FetchedAt time.Time               `json:"fetched_at"`
}

func (d *Dedicated) Search(ctx context.Context, query, location string, limit int) ([]retrieval.Result, error) {
	v := url.Values{}
	v.Set("q", query)
	if location != "" {
		v.Set("location", location)
	}
	if limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/query?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dedicated provider %s: status %d", d.name, resp.StatusCode)
	}

	var parsed dedicatedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := make([]retrieval.Result, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		out = append(out, retrieval.Result{
			Source:     d.name,
			Title:      item.Title,
			Snippet:    item.Snippet,
			URL:        item.URL,
			Confidence: 0.9,
			Metadata:   item.Metadata,
		})
	}
	return out, nil
}
