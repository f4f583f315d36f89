package retrieval

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/observability"
)

// ProviderTTL lets a provider override the default search-result TTL; a
// provider not listed here uses Engine.defaultTTL.
type ProviderTTL map[string]time.Duration

// Engine dispatches a classified query to its routed providers concurrently,
// applying the distributed cache and per-provider timeout, then fuses the
// results (§4.C).
type Engine struct {
	providers       map[string]Provider
	router          providerRouter
	cache           *cache.Client
	providerTimeout time.Duration
	defaultTTL      time.Duration
	providerTTL     ProviderTTL
	topK            int
}

func NewEngine(providers []Provider, router providerRouter, cacheClient *cache.Client, providerTimeout, defaultTTL time.Duration, providerTTL ProviderTTL, topK int) *Engine {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	if topK <= 0 {
		topK = 5
	}
	return &Engine{
		providers:       byName,
		router:          router,
		cache:           cacheClient,
		providerTimeout: providerTimeout,
		defaultTTL:      defaultTTL,
		providerTTL:     providerTTL,
		topK:            topK,
	}
}

// Retrieve runs the full §4.C pipeline for a classified intent: route,
// cache-check, parallel dispatch, fuse. Control and greeting intents always
// yield an empty result with no provider calls.
func (e *Engine) Retrieve(ctx context.Context, intent Intent, query, location string) []Result {
	if intent == IntentControl || intent == IntentGreeting {
		return nil
	}

	names := e.router.ProvidersFor(ctx, intent)
	if len(names) == 0 {
		return nil
	}

	perProvider := make([][]Result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			perProvider[i] = e.fetchOne(gctx, name, query, location)
			return nil
		})
	}
	// Errors are never propagated: a failing provider contributes an empty
	// list, never aborts the others (§4.C "Dispatch").
	_ = g.Wait()

	return Fuse(intent, perProvider, e.topK)
}

func (e *Engine) fetchOne(ctx context.Context, name, query, location string) []Result {
	log := observability.LoggerWithTrace(ctx)

	provider, ok := e.providers[name]
	if !ok || !provider.Enabled() {
		return nil
	}

	key := cache.SearchKey(name, query, location)
	var cached []Result
	if e.cache.Get(ctx, key, &cached) {
		return cached
	}

	timeout := e.providerTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := provider.Search(callCtx, query, location, 10)
	if err != nil {
		log.Warn().Err(err).Str("provider", name).Msg("provider search failed")
		return nil
	}

	ttl := e.defaultTTL
	if override, ok := e.providerTTL[name]; ok && override < ttl {
		ttl = override
	}
	e.cache.Set(ctx, key, results, ttl)
	return results
}
