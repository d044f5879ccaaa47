package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/gensyn-ai/rl-swarm/pkg/chain"
	"github.com/gensyn-ai/rl-swarm/pkg/keystore"
	"github.com/gensyn-ai/rl-swarm/pkg/userop"
	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// handleRegisterPeer handles POST /register-peer. Registration uses the
// latest key record as-is: a freshly provisioned key carries the deferred
// action digest that authorizes the account's first operation, so there is
// no activation wait here.
func (s *Server) handleRegisterPeer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "only POST method allowed")
		return
	}

	var req RegisterPeerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.OrgID == "" || req.PeerID == "" {
		writeError(w, r, http.StatusBadRequest, "orgId and peerId are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()
	ctx = utils.ContextWithOrgID(ctx, req.OrgID)

	if !s.requireUser(ctx, w, r, req.OrgID) {
		return
	}

	rec, err := s.store.LatestKey(ctx, req.OrgID)
	if errors.Is(err, keystore.ErrKeyNotFound) {
		writeError(w, r, http.StatusInternalServerError, "api key not found")
		return
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load signing key", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not load signing key")
		return
	}

	callData, err := userop.BuildCallData(chain.CoordinatorABI, "registerPeer", req.PeerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode registerPeer call", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not encode contract call")
		return
	}

	s.submit(ctx, w, r, rec, callData)
}

// handleSubmitReward handles POST /submit-reward. Reward submission races
// key provisioning, so it waits for the key to activate before signing.
func (s *Server) handleSubmitReward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "only POST method allowed")
		return
	}

	var req SubmitRewardRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.OrgID == "" || req.PeerID == "" {
		writeError(w, r, http.StatusBadRequest, "orgId and peerId are required")
		return
	}
	if req.RoundNumber < 0 || req.StageNumber < 0 {
		writeError(w, r, http.StatusBadRequest, "roundNumber and stageNumber must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()
	ctx = utils.ContextWithOrgID(ctx, req.OrgID)

	if !s.requireUser(ctx, w, r, req.OrgID) {
		return
	}

	rec, err := s.waiter.Wait(ctx, req.OrgID)
	switch {
	case errors.Is(err, keystore.ErrKeyNotFound):
		writeError(w, r, http.StatusInternalServerError, "api key not found")
		return
	case errors.Is(err, keystore.ErrKeyNotReady):
		writeError(w, r, http.StatusServiceUnavailable, "api key not activated")
		return
	case err != nil:
		s.logger.ErrorContext(ctx, "failed to load signing key", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not load signing key")
		return
	}

	callData, err := userop.BuildCallData(chain.CoordinatorABI, "submitReward",
		big.NewInt(req.RoundNumber),
		big.NewInt(req.StageNumber),
		big.NewInt(req.Reward),
		req.PeerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode submitReward call", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not encode contract call")
		return
	}

	s.submit(ctx, w, r, rec, callData)
}

// decodeBody decodes a bounded JSON request body; writes a 400 on failure
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	defer body.Close()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// requireUser verifies the org exists; writes a 404 when it does not
func (s *Server) requireUser(ctx context.Context, w http.ResponseWriter, r *http.Request, orgID string) bool {
	_, err := s.store.GetUser(ctx, orgID)
	if errors.Is(err, keystore.ErrUserNotFound) {
		writeUtilsError(w, r, utils.NewNotFoundError("user not found"))
		return false
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load user", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not load user")
		return false
	}
	return true
}

// submit builds the smart account, signs and submits the operation, and
// maps submission failures onto dashboard error responses.
func (s *Server) submit(ctx context.Context, w http.ResponseWriter, r *http.Request, rec *keystore.SigningKeyRecord, callData []byte) {
	acct, err := userop.NewAccount(rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to construct smart account", utils.ZapError(err))
		writeError(w, r, http.StatusInternalServerError, "could not construct smart account")
		return
	}

	hash, err := s.submitter.SendUserOperation(ctx, acct, callData)
	if err != nil {
		s.writeSubmissionError(ctx, w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, SubmissionResponse{Hash: hash.Hex()})
}

// writeSubmissionError classifies a bundler failure: declared contract
// reverts are client errors with the decoded error name, everything else
// is a server error.
func (s *Server) writeSubmissionError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	decoded := userop.DecodeSubmissionError(chain.CoordinatorABI, err)

	var revert *userop.ChainRevertError
	if errors.As(decoded, &revert) {
		s.logger.WarnContext(ctx, "contract reverted user operation",
			utils.ZapString("revert", revert.ErrorName))
		writeError(w, r, http.StatusBadRequest, revert.ErrorName, revert.MetaMessages...)
		return
	}

	var parse *userop.DetailParseError
	if errors.As(decoded, &parse) {
		s.logger.ErrorContext(ctx, "could not decode submission failure", utils.ZapError(parse))
		writeError(w, r, http.StatusInternalServerError, "could not decode submission failure")
		return
	}

	s.logger.ErrorContext(ctx, "user operation submission failed", utils.ZapError(decoded))
	writeError(w, r, http.StatusInternalServerError, "could not submit user operation")
}
