package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-assist/orchestrator/internal/cache"
)

type fakeProvider struct {
	name    string
	enabled bool
	results []Result
	err     error
	delay   time.Duration
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Enabled() bool { return f.enabled }
func (f *fakeProvider) Search(ctx context.Context, query, location string, limit int) ([]Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// fixedRouter stubs Router.ProvidersFor for tests without touching the
// package-level defaultRouting table.
type fixedRouter struct {
	names []string
}

func (f *fixedRouter) ProvidersFor(ctx context.Context, intent Intent) []string { return f.names }

func newTestEngine(providers ...Provider) *Engine {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	return NewEngine(providers, &fixedRouter{names: names}, &cache.Client{}, 100*time.Millisecond, time.Minute, nil, 5)
}

func TestEngine_ControlAndGreetingSkipRetrieval(t *testing.T) {
	e := newTestEngine()
	assert.Empty(t, e.Retrieve(context.Background(), IntentControl, "unlock the door", ""))
	assert.Empty(t, e.Retrieve(context.Background(), IntentGreeting, "hello", ""))
}

func TestEngine_FailingProviderYieldsEmptyNotError(t *testing.T) {
	p1 := &fakeProvider{name: "general-web-1", enabled: true, err: assertErr{}}
	p2 := &fakeProvider{name: "general-web-2", enabled: true, results: []Result{{Source: "general-web-2", Title: "ok", Confidence: 0.8}}}

	e := newTestEngine(p1, p2)
	out := e.Retrieve(context.Background(), IntentGeneral, "test query", "")
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Title)
}

func TestEngine_DisabledProviderSkipped(t *testing.T) {
	p1 := &fakeProvider{name: "general-web-1", enabled: false}
	e := newTestEngine(p1)
	out := e.Retrieve(context.Background(), IntentGeneral, "test query", "")
	assert.Empty(t, out)
}

type assertErr struct{}

func (assertErr) Error() string { return "provider failure" }
