package api

import (
	"context"
	"net/http"
	"time"
)

const apiVersion = "1.0.0"

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "only GET method allowed")
		return
	}

	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
		Version:   apiVersion,
	})
}

// handleReadiness handles GET /ready. The chain RPC and the keystore are
// hard dependencies; the swarm API is not checked because reads degrade
// gracefully without it.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "only GET method allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if _, _, err := s.swarm.RoundAndStage(ctx); err != nil {
		checks["chain"] = "not ready: " + err.Error()
		ready = false
	} else {
		checks["chain"] = "ok"
	}

	if pinger, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			checks["keystore"] = "not ready: " + err.Error()
			ready = false
		} else {
			checks["keystore"] = "ok"
		}
	} else {
		checks["keystore"] = "ok"
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, r, statusCode, ReadinessResponse{
		Ready:     ready,
		Checks:    checks,
		Timestamp: time.Now().Unix(),
	})
}
