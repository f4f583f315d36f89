package mode

import (
	"encoding/json"
	"net/http"
)

// Handler exposes the mode service's internal read-only HTTP API (§4.B
// "Mode service HTTP API").
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /mode/current", h.handleCurrent)
	mux.HandleFunc("GET /mode/events", h.handleEvents)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Current())
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.RecentEvents())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
