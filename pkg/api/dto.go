package api

// Standard header names
const (
	HeaderContentType        = "Content-Type"
	HeaderRequestID          = "X-Request-ID"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"

	ContentTypeJSON = "application/json"
)

// Request DTOs

// RegisterPeerRequest binds a peer identity to an organization's account
type RegisterPeerRequest struct {
	OrgID  string `json:"orgId"`
	PeerID string `json:"peerId"`
}

// SubmitRewardRequest reports a training reward for a round and stage
type SubmitRewardRequest struct {
	OrgID       string `json:"orgId"`
	PeerID      string `json:"peerId"`
	RoundNumber int64  `json:"roundNumber"`
	StageNumber int64  `json:"stageNumber"`
	Reward      int64  `json:"reward"`
}

// Response DTOs

// SubmissionResponse carries the user operation hash accepted by the bundler
type SubmissionResponse struct {
	Hash string `json:"hash"`
}

// RoundStageResponse reports the contract's training progress
type RoundStageResponse struct {
	Round uint64 `json:"round"`
	Stage uint64 `json:"stage"`
}

// ErrorResponse is the error shape served to the dashboard. MetaMessages
// carry request context for contract reverts.
type ErrorResponse struct {
	Error        string   `json:"error"`
	MetaMessages []string `json:"metaMessages,omitempty"`
	RequestID    string   `json:"requestId,omitempty"`
}

// Health & Readiness DTOs

// HealthResponse represents /health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// ReadinessResponse represents /ready
type ReadinessResponse struct {
	Ready     bool              `json:"ready"`
	Checks    map[string]string `json:"checks"`
	Timestamp int64             `json:"timestamp"`
}
