// Package validation provides the request-level validators shared by the
// gateway and orchestrator HTTP handlers. This package has no dependencies
// on other internal packages to avoid import cycles.
package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxQueryBytes is the upper bound on a request's query, per the boundary
// behaviour "query longer than 4 KiB -> 400".
const MaxQueryBytes = 4 * 1024

// ErrEmptyQuery indicates the query field was empty or all whitespace.
var ErrEmptyQuery = errors.New("query must not be empty")

// ErrQueryTooLong indicates the query exceeded MaxQueryBytes.
var ErrQueryTooLong = errors.New("query exceeds maximum length")

// ErrInvalidSessionID indicates a session_id contains characters unsafe for
// use as a cache key segment.
var ErrInvalidSessionID = errors.New("invalid session_id")

// ErrInvalidRequestID indicates a request_id contains characters unsafe for
// use as a cache key segment or idempotency key.
var ErrInvalidRequestID = errors.New("invalid request_id")

// Query validates a user utterance per spec boundary behaviours: empty (or
// whitespace-only) and oversize queries are both 400s. The trimmed query is
// returned for callers to use downstream.
func Query(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", ErrEmptyQuery
	}
	if len(trimmed) > MaxQueryBytes {
		return "", ErrQueryTooLong
	}
	if !utf8.ValidString(trimmed) {
		return "", ErrEmptyQuery
	}
	return trimmed, nil
}

// SessionID validates an optional client-supplied session identifier. Empty
// is valid (no session); a non-empty value must be a single safe token since
// it is embedded directly into a cache key ("session:{id}").
func SessionID(sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	if !isSafeToken(sessionID) {
		return "", ErrInvalidSessionID
	}
	return sessionID, nil
}

// RequestID validates an optional client-supplied request identifier, used
// as the idempotency key on finalise. Empty is valid; the orchestrator's
// /query handler generates one with google/uuid when absent.
func RequestID(requestID string) (string, error) {
	if requestID == "" {
		return "", nil
	}
	if !isSafeToken(requestID) {
		return "", ErrInvalidRequestID
	}
	return requestID, nil
}

// isSafeToken reports whether s is a single printable token with no path
// separators, colons, or whitespace — safe to splice into a cache key.
func isSafeToken(s string) bool {
	if len(s) == 0 || len(s) > 256 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
