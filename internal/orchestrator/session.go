package orchestrator

import (
	"context"
	"time"

	"github.com/hearth-assist/orchestrator/internal/cache"
)

// HistoryMessage is one turn of conversation history.
type HistoryMessage struct {
	Role string    `json:"role"` // "user" | "assistant"
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

// Session is the distributed-cache-only conversation record (§3 "Session").
type Session struct {
	SessionID string           `json:"session_id"`
	CreatedAt time.Time        `json:"created_at"`
	LastSeen  time.Time        `json:"last_seen"`
	History   []HistoryMessage `json:"history"`
}

// SessionStore loads and saves Session records. Writes are last-writer-wins
// under concurrent requests for the same session_id, which the system
// accepts as correct (§3).
type SessionStore struct {
	cache       *cache.Client
	ttl         time.Duration
	maxMessages int
}

func NewSessionStore(cacheClient *cache.Client, ttl time.Duration, maxMessages int) *SessionStore {
	return &SessionStore{cache: cacheClient, ttl: ttl, maxMessages: maxMessages}
}

// Load returns the session for id, or a fresh empty session on a cache miss.
func (s *SessionStore) Load(ctx context.Context, id string) Session {
	var sess Session
	if s.cache.Get(ctx, cache.SessionKey(id), &sess) {
		return sess
	}
	now := time.Now().UTC()
	return Session{SessionID: id, CreatedAt: now, LastSeen: now}
}

// AppendTurn appends a user message and (if non-empty) an assistant reply,
// trims history to maxMessages newest entries, and persists with a
// refreshed sliding TTL.
func (s *SessionStore) AppendTurn(ctx context.Context, id, userText, assistantText string) {
	sess := s.Load(ctx, id)
	now := time.Now().UTC()

	sess.SessionID = id
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.LastSeen = now

	if userText != "" {
		sess.History = append(sess.History, HistoryMessage{Role: "user", Text: userText, TS: now})
	}
	if assistantText != "" {
		sess.History = append(sess.History, HistoryMessage{Role: "assistant", Text: assistantText, TS: now})
	}

	if s.maxMessages > 0 && len(sess.History) > s.maxMessages {
		sess.History = sess.History[len(sess.History)-s.maxMessages:]
	}

	s.cache.Set(ctx, cache.SessionKey(id), sess, s.ttl)
}

// RecentHistory returns the last n messages, oldest first, for prompt
// injection.
func RecentHistory(sess Session, n int) []HistoryMessage {
	if n <= 0 || len(sess.History) <= n {
		return sess.History
	}
	return sess.History[len(sess.History)-n:]
}
