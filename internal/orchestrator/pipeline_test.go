package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/llm"
	"github.com/hearth-assist/orchestrator/internal/mode"
	"github.com/hearth-assist/orchestrator/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPipeline builds a pipeline with a no-op cache and no mode service,
// which makes PolicyFor's gate always allow (Process falls back to an
// allow-all Policy when modeSvc or admin is nil).
func newTestPipeline(engine *retrieval.Engine, synth *Synthesiser) *Pipeline {
	c := &cache.Client{}
	classifier := retrieval.NewClassifier(c, nil, nil, time.Minute)
	validator := NewValidator(nil, nil)
	sessions := NewSessionStore(c, time.Hour, 20)
	return NewPipeline(classifier, engine, synth, validator, sessions, nil, nil, c, nil, 5*time.Second, 6)
}

func chatCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10},
		})
	}))
}

func TestPipeline_GreetingShortCircuitsBeforeRetrieval(t *testing.T) {
	engine := retrieval.NewEngine(nil, fixedRouterFor(nil), &cache.Client{}, time.Second, time.Minute, nil, 5)
	p := newTestPipeline(engine, NewSynthesiser(nil))

	resp := p.Process(context.Background(), Request{RequestID: "r1", Query: "hello there"})
	assert.Equal(t, retrieval.IntentGreeting, resp.Intent)
	assert.True(t, resp.Validation.Passed)
	assert.NotEmpty(t, resp.Answer)
}

func TestPipeline_ControlIntentNeverCallsRetrievalOrModel(t *testing.T) {
	engine := retrieval.NewEngine(nil, fixedRouterFor(nil), &cache.Client{}, time.Second, time.Minute, nil, 5)
	p := newTestPipeline(engine, NewSynthesiser(nil))

	resp := p.Process(context.Background(), Request{RequestID: "r2", Query: "turn on the lights"})
	assert.Equal(t, retrieval.IntentControl, resp.Intent)
	assert.True(t, resp.Validation.Passed)
	_, hasRetrieveTiming := resp.Metadata["node_timings"].(map[string]float64)["retrieve"]
	assert.False(t, hasRetrieveTiming)
}

func TestPipeline_PolicyBlockedIssuesNoProviderOrModelCalls(t *testing.T) {
	calledProvider := false
	calledModel := false

	provider := fakeProviderFunc{name: "searxng", fn: func() { calledProvider = true }}
	engine := retrieval.NewEngine([]retrieval.Provider{provider}, fixedRouterFor(map[retrieval.Intent][]string{retrieval.IntentWeather: {"searxng"}}), &cache.Client{}, time.Second, time.Minute, nil, 5)

	modelSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calledModel = true
		w.WriteHeader(http.StatusOK)
	}))
	defer modelSrv.Close()
	llmClient := llm.NewClient(modelSrv.URL, "test", "test-model")

	adminSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(adminconfig.PolicyRow{Intent: "weather", Allowed: false})
	}))
	defer adminSrv.Close()
	admin := adminconfig.NewClient(adminSrv.URL, time.Minute, nil)
	modeSvc := mode.NewService(func(ctx context.Context) mode.Config { return mode.Config{} }, nil, nil)

	c := &cache.Client{}
	classifier := retrieval.NewClassifier(c, nil, nil, time.Minute)
	validator := NewValidator(nil, nil)
	sessions := NewSessionStore(c, time.Hour, 20)
	synth := NewSynthesiser(llmClient)

	p := NewPipeline(classifier, engine, synth, validator, sessions, modeSvc, admin, c, nil, 5*time.Second, 6)

	resp := p.Process(context.Background(), Request{RequestID: "r3", Query: "what's the weather"})

	assert.Equal(t, true, resp.Metadata["policy_blocked"])
	assert.False(t, calledProvider, "policy-blocked request must not call providers")
	assert.False(t, calledModel, "policy-blocked request must not call the model backend")
}

func TestPipeline_FullHappyPathWithEvidence(t *testing.T) {
	srv := chatCompletionServer(t, "It is sunny and 75 degrees.")
	defer srv.Close()
	llmClient := llm.NewClient(srv.URL, "test", "test-model")

	provider := fakeProviderFunc{
		name: "searxng",
		results: []retrieval.Result{
			{Source: "searxng", Title: "Weather", Snippet: "It is sunny and 75 degrees today.", Confidence: 0.8},
		},
	}
	router := fixedRouterFor(map[retrieval.Intent][]string{retrieval.IntentWeather: {"searxng"}})
	engine := retrieval.NewEngine([]retrieval.Provider{provider}, router, &cache.Client{}, time.Second, time.Minute, nil, 5)

	p := newTestPipeline(engine, NewSynthesiser(llmClient))

	resp := p.Process(context.Background(), Request{RequestID: "r4", Query: "what's the weather today"})

	require.Equal(t, retrieval.IntentWeather, resp.Intent)
	assert.Contains(t, resp.Answer, "sunny")
	assert.True(t, resp.Validation.Passed)
	assert.NotEmpty(t, resp.Citations)
}

func TestPipeline_AlreadyExpiredContextYieldsTimeoutMetadata(t *testing.T) {
	engine := retrieval.NewEngine(nil, fixedRouterFor(nil), &cache.Client{}, time.Second, time.Minute, nil, 5)
	p := newTestPipeline(engine, NewSynthesiser(nil))
	p.deadline = 0 // rely on an already-cancelled parent context instead

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := p.Process(ctx, Request{RequestID: "r5", Query: "what's the weather"})
	assert.Equal(t, true, resp.Metadata["timeout"])
}

// fixedRouterFor is a tiny providerRouter stand-in for orchestrator-level
// tests, independent of the retrieval package's own router tests.
type fixedRouterForTest map[retrieval.Intent][]string

func (f fixedRouterForTest) ProvidersFor(ctx context.Context, intent retrieval.Intent) []string {
	return f[intent]
}

func fixedRouterFor(m map[retrieval.Intent][]string) fixedRouterForTest {
	if m == nil {
		return fixedRouterForTest{}
	}
	return fixedRouterForTest(m)
}

type fakeProviderFunc struct {
	name    string
	results []retrieval.Result
	fn      func()
}

func (f fakeProviderFunc) Name() string  { return f.name }
func (f fakeProviderFunc) Enabled() bool { return true }
func (f fakeProviderFunc) Search(ctx context.Context, query, location string, limit int) ([]retrieval.Result, error) {
	if f.fn != nil {
		f.fn()
	}
	return f.results, nil
}
