package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gensyn-ai/rl-swarm/pkg/swarm"
	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// handleLeaderboard handles GET /leaderboard
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "only GET method allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	board, err := s.swarm.Leaderboard(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build leaderboard", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not get leaderboard")
		return
	}

	writeJSON(w, r, http.StatusOK, board)
}

// handleLeaderboardSearch handles GET /leaderboard/search?q=
func (s *Server) handleLeaderboardSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "only GET method allowed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, "query parameter q is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	result, err := s.swarm.Search(ctx, query)
	if errors.Is(err, swarm.ErrPeerNotFound) {
		writeUtilsError(w, r, utils.NewNotFoundError("peer not found"))
		return
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "leaderboard search failed",
			utils.ZapString("query", query),
			utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not search leaderboard")
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleRoundStage handles GET /round-stage
func (s *Server) handleRoundStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "only GET method allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	round, stage, err := s.swarm.RoundAndStage(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read round and stage", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not get round and stage")
		return
	}

	writeJSON(w, r, http.StatusOK, RoundStageResponse{Round: round, Stage: stage})
}

// handleGossip handles GET /gossip?since_round=
func (s *Server) handleGossip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "only GET method allowed")
		return
	}

	since, err := parseInt64Query(r, "since_round", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	feed, err := s.swarm.Gossip(ctx, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch gossip", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not get gossip")
		return
	}

	writeJSON(w, r, http.StatusOK, feed)
}
