package gateway

import (
	"net/http"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/mode"
)

// Server wires the router, passthrough, orchestrator client, rate limiter,
// and writeback into the gateway's HTTP surface (§6).
type Server struct {
	mux *http.ServeMux

	router       *Router
	passthrough  *Passthrough
	orchestrator *OrchestratorClient
	limiter      *RateLimiter
	admin        *adminconfig.Client
	modeSvc      *mode.Service
	cache        *cache.Client
}

func NewServer(router *Router, passthrough *Passthrough, orchestrator *OrchestratorClient, limiter *RateLimiter, admin *adminconfig.Client, modeSvc *mode.Service, cacheClient *cache.Client) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		router:       router,
		passthrough:  passthrough,
		orchestrator: orchestrator,
		limiter:      limiter,
		admin:        admin,
		modeSvc:      modeSvc,
		cache:        cacheClient,
	}
	s.registerRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}
