package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/hearth-assist/orchestrator/internal/mode"
	"github.com/hearth-assist/orchestrator/internal/observability"
	"github.com/hearth-assist/orchestrator/internal/validation"
)

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "malformed request body")
		return
	}
	if req.Stream {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "streaming is not supported")
		return
	}
	query := lastUserMessage(req.Messages)
	if _, err := validation.Query(query); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if _, err := validation.SessionID(sessionID); err != nil {
		sessionID = ""
	}
	rateKey := sessionID
	if rateKey == "" {
		rateKey = clientIP(r)
	}

	ctx := r.Context()
	intentHint := "general"
	dest := s.router.Route(ctx, query)
	if dest == DestinationOrchestrator {
		intentHint = "orchestrator"
	}

	limit := 0
	if s.modeSvc != nil && s.admin != nil {
		limit = s.modeSvc.PolicyFor(ctx, intentHint, s.admin).RateLimitPerMinute
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, rateKey, limit) {
		respondError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests, slow down")
		return
	}

	var (
		resp ChatCompletionResponse
		err  error
	)
	if dest == DestinationOrchestrator && s.orchestrator != nil {
		resp, err = s.orchestrator.Query(ctx, req, sessionID)
	} else {
		resp, err = s.passthrough.Forward(ctx, req)
	}
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("destination", string(dest)).Msg("chat completion failed")
		respondError(w, http.StatusBadGateway, "backend_error", "upstream backend failed to respond")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	components := map[string]string{
		"cache":  "healthy",
		"config": "healthy",
		"model":  "healthy",
	}
	status := "healthy"

	if s.cache != nil && s.cache.Raw() != nil {
		if err := s.cache.Raw().Ping(ctx).Err(); err != nil {
			components["cache"] = "degraded"
			status = "degraded"
		}
	}
	if s.admin != nil && len(s.admin.GetBackends(ctx)) == 0 {
		components["config"] = "degraded"
		components["model"] = "degraded"
		status = "degraded"
	}

	currentMode := string(mode.Guest)
	if s.modeSvc != nil {
		currentMode = string(s.modeSvc.Current().Mode)
	}

	respondJSON(w, http.StatusOK, HealthStatus{
		Status:     status,
		Mode:       currentMode,
		Components: components,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, errType, message string) {
	respondJSON(w, status, ErrorResponse{Error: ErrorBody{Message: message, Type: errType}})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
