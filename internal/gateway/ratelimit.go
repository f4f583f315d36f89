package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/observability"
)

// RateLimiter enforces a sliding-window-by-minute cap per key (session_id or
// client IP), per the limit mode.Policy.RateLimitPerMinute hands back for the
// request's intent (§4.E, §5 backpressure: gateway saturation 429s, no
// admission queue). A nil underlying cache degrades to "always allow", the
// same fail-open posture cache.Client takes everywhere else.
type RateLimiter struct {
	cache *cache.Client
}

func NewRateLimiter(c *cache.Client) *RateLimiter {
	return &RateLimiter{cache: c}
}

// Allow increments key's counter for the current minute bucket and reports
// whether the request is within limit, estimating the sliding one-minute
// window as the current bucket's count plus the previous bucket's count
// weighted by how much of it the window still covers. limitPerMinute <= 0
// means unlimited.
func (r *RateLimiter) Allow(ctx context.Context, key string, limitPerMinute int) bool {
	if limitPerMinute <= 0 {
		return true
	}
	rdb := r.cache.Raw()
	if rdb == nil {
		return true
	}

	now := time.Now().UTC()
	bucketStart := now.Truncate(time.Minute)
	bucket := bucketStart.Unix()
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, err := rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("rate limiter unavailable, failing open")
		return true
	}
	if count == 1 {
		rdb.Expire(ctx, redisKey, 2*time.Minute)
	}

	prev, err := rdb.Get(ctx, fmt.Sprintf("ratelimit:%s:%d", key, bucket-60)).Int64()
	if err != nil {
		prev = 0
	}
	prevWeight := 1 - float64(now.Sub(bucketStart))/float64(time.Minute)
	return float64(prev)*prevWeight+float64(count) <= float64(limitPerMinute)
}
