package swarm

import (
	"context"
	"errors"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// GossipResponse is the normalized feed served to the dashboard. Messages
// keep the order the swarm API returned them in; cursor tracking is the
// caller's job.
type GossipResponse struct {
	Messages []GossipMessage `json:"messages"`
}

// Gossip fetches messages newer than since and normalizes the genesis
// sentinel identity. A payload failing validation degrades to an empty
// feed instead of failing the request.
func (s *Service) Gossip(ctx context.Context, since int64) (*GossipResponse, error) {
	payload, err := s.offchain.FetchGossip(ctx, since)
	var validation *ValidationError
	if errors.As(err, &validation) {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "gossip payload failed validation, degrading to empty response",
				utils.ZapError(validation))
		}
		return &GossipResponse{Messages: []GossipMessage{}}, nil
	}
	if err != nil {
		return nil, err
	}

	messages := make([]GossipMessage, len(payload.Messages))
	for i, msg := range payload.Messages {
		msg.Node = normalizeIdentity(msg.Node)
		messages[i] = msg
	}
	return &GossipResponse{Messages: messages}, nil
}
