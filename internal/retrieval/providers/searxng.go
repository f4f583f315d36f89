// Package providers implements the retrieval.Provider adapters: a SearXNG
// general-web adapter and a generic adapter for single dedicated services
// (weather, sports, airports, event-API).
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hearth-assist/orchestrator/internal/retrieval"
)

// SearXNG is the general-web provider. It tries SearXNG's JSON API first and
// falls back to scraping result links out of the HTML response when JSON is
// unavailable, mirroring a self-hosted instance that may have JSON disabled.
type SearXNG struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func NewSearXNG(name, baseURL string, httpClient *http.Client) *SearXNG {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	return &SearXNG{name: name, baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

func (s *SearXNG) Name() string    { return s.name }
func (s *SearXNG) Enabled() bool   { return s.baseURL != "" }

func (s *SearXNG) Search(ctx context.Context, query, location string, limit int) ([]retrieval.Result, error) {
	q := query
	if location != "" {
		q = query + " " + location
	}

	results, err := s.searchJSON(ctx, q, limit)
	if err == nil && len(results) > 0 {
		return results, nil
	}
	return s.searchHTML(ctx, q, limit)
}

func (s *SearXNG) searchJSON(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("format", "json")
	v.Set("categories", "general")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "hearth-assist-retrieval/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("searxng http %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]retrieval.Result, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		if i >= limit {
			break
		}
		confidence := 0.6
		if r.Score > 0 {
			confidence = clamp01(r.Score / 10.0)
		}
		out = append(out, retrieval.Result{
			Source:     s.name,
			Title:      strings.TrimSpace(r.Title),
			Snippet:    strings.TrimSpace(r.Content),
			URL:        r.URL,
			Confidence: confidence,
		})
	}
	return out, nil
}

func (s *SearXNG) searchHTML(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("categories", "general")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "hearth-assist-retrieval/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("searxng http %d", resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	links := extractResultLinks(root)
	out := make([]retrieval.Result, 0, len(links))
	seen := map[string]struct{}{}
	for _, link := range links {
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		title := link
		if u, err := url.Parse(link); err == nil && u.Host != "" {
			title = u.Host + u.Path
		}
		out = append(out, retrieval.Result{
			Source:     s.name,
			Title:      title,
			URL:        link,
			Confidence: 0.4,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func extractResultLinks(doc *html.Node) []string {
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && strings.HasPrefix(attr.Val, "http") {
					links = append(links, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
