// Package orchestrator implements Component D: the five-stage pipeline that
// classifies a query, retrieves supporting evidence, synthesises an answer
// against a model backend, and validates it against anti-hallucination
// rules before finalising.
package orchestrator

import (
	"time"

	"github.com/hearth-assist/orchestrator/internal/mode"
	"github.com/hearth-assist/orchestrator/internal/retrieval"
)

// Request is the immutable record created at gateway entry. It flows
// through the pipeline and is never mutated.
type Request struct {
	RequestID string
	Query     string
	SessionID string
	UserID    string
	Context   map[string]string
}

// Validation is the anti-hallucination gate's verdict.
type Validation struct {
	Passed  bool     `json:"passed"`
	Reason  string   `json:"reason,omitempty"`
	Details []string `json:"details,omitempty"`
}

// Citation is produced by synthesis from the subset of retrieved items the
// model actually used.
type Citation struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// State is the pipeline's working record, owned exclusively by one
// in-flight orchestration for its lifetime.
type State struct {
	Intent     retrieval.Intent
	Confidence float64
	Entities   map[string]string
	Mode       mode.Mode

	Retrieved []retrieval.Result
	Answer    string
	Citations []Citation

	Validation Validation

	NodeTimings map[string]float64
	Metadata    map[string]any
}

// Response is the Orchestrator HTTP API's reply shape (§6).
type Response struct {
	Answer     string             `json:"answer"`
	Citations  []Citation         `json:"citations"`
	Intent     retrieval.Intent   `json:"intent"`
	Confidence float64            `json:"confidence"`
	Mode       mode.Mode          `json:"mode"`
	Validation Validation         `json:"validation"`
	Metadata   map[string]any     `json:"metadata"`
}

func newState() *State {
	return &State{
		Entities:    map[string]string{},
		NodeTimings: map[string]float64{},
		Metadata:    map[string]any{},
	}
}
