// Package cache provides the process-wide distributed cache client and the
// process-local TTL cache used to mirror admin-managed configuration.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hearth-assist/orchestrator/internal/observability"
)

// Client is a thin, non-fatal wrapper around a Redis connection pool. Every
// operation is best-effort: transport errors are logged and treated as a
// miss (Get) or a no-op (Set/Delete), never propagated to the caller. This
// lets the rest of the system operate, correctly if more slowly, with the
// distributed cache fully unreachable.
type Client struct {
	rdb *redis.Client
}

// NewClient dials addr (a redis:// URL) and returns a pooled, concurrency-safe
// client shared by every caller in the process.
func NewClient(addr string) (*Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		// Fall back to treating addr as a bare host:port for callers that
		// pass "localhost:6379" instead of a full URL.
		opts = &redis.Options{Addr: addr}
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping reports whether the cache is currently reachable, for use by /health.
func (c *Client) Ping(ctx context.Context) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	return c.rdb.Ping(ctx).Err() == nil
}

// Get decodes the value stored at key into out. It reports a miss (false,
// nil error) on an absent key, a transport failure, or a malformed stored
// value — callers never need to distinguish these cases.
func (c *Client) Get(ctx context.Context, key string, out any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("cache value malformed, treating as miss")
		return false
	}
	return true
}

// Set stores value under key with the given TTL. Failures are logged and
// swallowed.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("cache value not serializable")
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes key. Idempotent; failures are logged and swallowed.
func (c *Client) Delete(ctx context.Context, key string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// GetString/SetString are convenience wrappers for callers storing plain
// strings (e.g. idempotency markers) without JSON framing.
func (c *Client) GetString(ctx context.Context, key string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *Client) SetString(ctx context.Context, key, value string, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Raw exposes the underlying client for callers (the rate limiter) that need
// atomic primitives (INCR/EXPIRE) beyond the JSON-value Get/Set contract.
// Returns nil when the client has no live connection, so callers must treat
// a nil return the same as any other cache-unreachable condition.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}
