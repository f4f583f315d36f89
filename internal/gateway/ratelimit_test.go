package gateway

import (
	"context"
	"testing"

	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_NilUnderlyingCacheAlwaysAllows(t *testing.T) {
	rl := NewRateLimiter(&cache.Client{})
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(context.Background(), "session-1", 5))
	}
}

func TestRateLimiter_ZeroOrNegativeLimitMeansUnlimited(t *testing.T) {
	rl := NewRateLimiter(&cache.Client{})
	assert.True(t, rl.Allow(context.Background(), "session-1", 0))
	assert.True(t, rl.Allow(context.Background(), "session-1", -1))
}
