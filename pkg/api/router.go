package api

import (
	"net/http"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// setupRouter creates the HTTP handler with middleware and routes
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.middlewareChain(mux)
}

// registerRoutes registers all API endpoints
func (s *Server) registerRoutes(mux *http.ServeMux) {
	basePath := s.config.BasePath

	// Health & Readiness
	mux.HandleFunc(basePath+"/health", s.handleHealth)
	mux.HandleFunc(basePath+"/ready", s.handleReadiness)

	// Contract writes via bundler
	mux.HandleFunc(basePath+"/register-peer", s.handleRegisterPeer)
	mux.HandleFunc(basePath+"/submit-reward", s.handleSubmitReward)

	// Aggregated reads
	mux.HandleFunc(basePath+"/leaderboard", s.handleLeaderboard)
	mux.HandleFunc(basePath+"/leaderboard/search", s.handleLeaderboardSearch)
	mux.HandleFunc(basePath+"/round-stage", s.handleRoundStage)
	mux.HandleFunc(basePath+"/gossip", s.handleGossip)

	s.logger.Info("routes registered",
		utils.ZapString("base_path", basePath),
		utils.ZapInt("endpoint_count", 8))
}

// middlewareChain wraps the handler innermost first; request ID runs
// outside logging so log lines carry it.
func (s *Server) middlewareChain(handler http.Handler) http.Handler {
	handler = s.middlewarePanicRecovery(handler)
	handler = s.middlewareLogging(handler)
	handler = s.middlewareRequestID(handler)
	if s.sem != nil {
		handler = s.middlewareConcurrencyLimit(handler)
	}
	if s.rateLimiter != nil {
		handler = s.middlewareRateLimit(handler)
	}
	handler = s.middlewareCORS(handler)
	handler = s.middlewareSecurityHeaders(handler)
	return handler
}
