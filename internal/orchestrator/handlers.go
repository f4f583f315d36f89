package orchestrator

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/hearth-assist/orchestrator/internal/observability"
)

// Handler exposes the internal orchestration API consumed by the gateway.
type Handler struct {
	pipeline *Pipeline
}

func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /query", h.handleQuery)
}

type queryRequest struct {
	Query     string            `json:"query"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var qr queryRequest
	if err := json.NewDecoder(r.Body).Decode(&qr); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if qr.Query == "" {
		http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
		return
	}

	req := Request{
		RequestID: requestIDFrom(r),
		Query:     qr.Query,
		SessionID: qr.SessionID,
		UserID:    qr.UserID,
		Context:   qr.Context,
	}

	resp := h.pipeline.Process(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		observability.LoggerWithTrace(r.Context()).Error().Err(err).Msg("failed to encode orchestrator response")
	}
}

func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
