package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// hash8 returns the first 8 hex characters of the MD5 digest of s, used
// throughout the key discipline below to keep cache keys short and stable
// regardless of query length.
func hash8(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IntentKey returns the cache key for a classified intent, namespaced on the
// normalised query.
func IntentKey(query string) string {
	return "intent:" + hash8(normalize(query))
}

// SearchKey returns the cache key for a provider's search result, namespaced
// on provider, query and (optional) location.
func SearchKey(provider, query, location string) string {
	return fmt.Sprintf("search:%s:%s:%s", provider, hash8(normalize(query)), hash8(normalize(location)))
}

// SessionKey returns the cache key for a conversation session.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// ModeKey returns the cache key under which the mode service may optionally
// mirror its current snapshot for cross-process diagnostics. The service's
// own in-process atomic pointer remains authoritative; this key exists so
// other processes (the gateway) can read a recent snapshot without an RPC.
const ModeKey = "mode:current"

// IdempotencyKey returns the cache key used to dedupe a finalised orchestration
// by request_id so replays don't double-append session history.
func IdempotencyKey(requestID string) string {
	return "finalised:" + requestID
}
