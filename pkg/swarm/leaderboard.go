package swarm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/gensyn-ai/rl-swarm/pkg/chain"
	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// Genesis sentinel: the network's bootstrap peer appears in both chain and
// DHT data under a reserved marker and is always rendered under a fixed
// label, never the raw identifier.
const (
	GenesisMarker    = "gensyn"
	InitialPeerLabel = "INITIAL PEER"
)

// DisplayWindow is the number of leaders the dashboard renders directly
const DisplayWindow = 10

// BeyondWindowIndex signals a peer that resolved on chain but ranks
// outside the displayed window; rendered as ">99".
const BeyondWindowIndex = 99

// ErrPeerNotFound indicates a searched identity resolved nowhere: neither
// in the cached leaderboard nor via on-chain peer lookup. The chain cannot
// distinguish an unknown identity from a known peer that has not connected
// yet; both surface here.
var ErrPeerNotFound = errors.New("swarm: peer not found")

// Leader is one merged, normalized leaderboard entry
type Leader struct {
	ID            string   `json:"id"`
	Nickname      string   `json:"nickname"`
	Participation float64  `json:"participation"`
	Score         float64  `json:"score"`
	Values        []Sample `json:"values"`
	VoteCount     uint64   `json:"voteCount"`
}

// LeaderboardResponse is the merged ranking served to the dashboard
type LeaderboardResponse struct {
	Leaders []Leader `json:"leaders"`
	Total   int      `json:"total"`
}

// SearchResult is a point lookup into the ranking
type SearchResult struct {
	Index         int    `json:"index"`
	Leader        Leader `json:"leader"`
	InLeaderboard bool   `json:"inLeaderboard"`
}

// ChainSource is the on-chain read capability the service composes
type ChainSource interface {
	VoterLeaderboard(ctx context.Context, offset, limit uint64) ([]chain.VoterEntry, error)
	PeerIDs(ctx context.Context, addrs []common.Address) ([]string, error)
	RoundAndStage(ctx context.Context) (round, stage uint64, err error)
}

// OffchainSource is the DHT-backed swarm API capability
type OffchainSource interface {
	FetchLeaderboard(ctx context.Context) (*LeaderboardPayload, error)
	FetchGossip(ctx context.Context, since int64) (*GossipPayload, error)
}

// Service aggregates chain and off-chain swarm data. It holds no mutable
// state: every call is a fresh request-scoped read.
type Service struct {
	chain    ChainSource
	offchain OffchainSource
	logger   *utils.Logger
}

// NewService creates the aggregation service
func NewService(chainSource ChainSource, offchainSource OffchainSource, logger *utils.Logger) *Service {
	return &Service{chain: chainSource, offchain: offchainSource, logger: logger}
}

// RoundAndStage returns the contract's current round and stage
func (s *Service) RoundAndStage(ctx context.Context) (uint64, uint64, error) {
	return s.chain.RoundAndStage(ctx)
}

// Leaderboard produces the merged ranking: on-chain vote tallies give the
// authoritative ordering, the off-chain dataset contributes nickname,
// participation and score. An off-chain payload failing validation
// degrades to an empty leaderboard; the chain remains the source of truth
// for identity and ranking, so chain failures are errors.
func (s *Service) Leaderboard(ctx context.Context) (*LeaderboardResponse, error) {
	var (
		voters   []chain.VoterEntry
		peerIDs  []string
		offchain *LeaderboardPayload
		degraded bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := s.chain.VoterLeaderboard(gctx, 0, chain.MaxLeaderboardPage)
		if err != nil {
			return err
		}
		addrs := make([]common.Address, len(entries))
		for i, entry := range entries {
			addrs[i] = entry.Address
		}
		ids, err := s.chain.PeerIDs(gctx, addrs)
		if err != nil {
			return err
		}
		voters, peerIDs = entries, ids
		return nil
	})
	g.Go(func() error {
		payload, err := s.offchain.FetchLeaderboard(gctx)
		var validation *ValidationError
		if errors.As(err, &validation) {
			if s.logger != nil {
				s.logger.WarnContext(gctx, "leaderboard payload failed validation, degrading to empty response",
					utils.ZapError(validation))
			}
			degraded = true
			return nil
		}
		if err != nil {
			return err
		}
		offchain = payload
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("could not get leaderboard: %w", err)
	}

	if degraded {
		return &LeaderboardResponse{Leaders: []Leader{}, Total: 0}, nil
	}

	return s.merge(voters, peerIDs, offchain), nil
}

// merge zips the on-chain ranking with off-chain metadata. Chain order
// wins; off-chain leaders absent from the chain ranking are appended in
// their own order.
func (s *Service) merge(voters []chain.VoterEntry, peerIDs []string, offchain *LeaderboardPayload) *LeaderboardResponse {
	byID := make(map[string]OffchainLeader, len(offchain.Leaders))
	for _, leader := range offchain.Leaders {
		byID[strings.ToLower(leader.ID)] = leader
	}

	seen := make(map[string]bool, len(voters))
	leaders := make([]Leader, 0, len(voters)+len(offchain.Leaders))

	for i, voter := range voters {
		peerID := ""
		if i < len(peerIDs) {
			peerID = peerIDs[i]
		}
		if peerID == "" {
			continue
		}
		merged := Leader{
			ID:        peerID,
			Score:     float64(voter.VoteCount),
			VoteCount: voter.VoteCount,
		}
		if enriched, ok := byID[strings.ToLower(peerID)]; ok {
			merged.Nickname = enriched.Nickname
			merged.Participation = enriched.Participation
			merged.Score = enriched.Score
		}
		seen[strings.ToLower(peerID)] = true
		leaders = append(leaders, normalizeLeader(merged))
	}

	for _, leader := range offchain.Leaders {
		if seen[strings.ToLower(leader.ID)] {
			continue
		}
		leaders = append(leaders, normalizeLeader(Leader{
			ID:            leader.ID,
			Nickname:      leader.Nickname,
			Participation: leader.Participation,
			Score:         leader.Score,
		}))
	}

	total := offchain.Total
	if total < len(leaders) {
		total = len(leaders)
	}
	return &LeaderboardResponse{Leaders: leaders, Total: total}
}

// normalizeLeader rounds the score, applies the genesis sentinel and
// clears the raw time series (not consumed by callers, saves bandwidth).
// Idempotent: applying it twice equals applying it once.
func normalizeLeader(leader Leader) Leader {
	leader.Score = roundScore(leader.Score)
	leader.Participation = roundScore(leader.Participation)
	leader.ID = normalizeIdentity(leader.ID)
	leader.Nickname = normalizeIdentity(leader.Nickname)
	leader.Values = nil
	return leader
}

func normalizeIdentity(id string) string {
	if strings.EqualFold(id, GenesisMarker) {
		return InitialPeerLabel
	}
	return id
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

// Search looks a peer up by nickname or address, case-insensitively.
// A hit inside the cached leaderboard returns its rank without any extra
// network round-trip. A miss falls back to on-chain peer lookup: resolved
// peers outside the window come back with BeyondWindowIndex, unresolved
// queries fail with ErrPeerNotFound. Each invocation re-runs the search,
// so a newly connected peer is picked up by an identical repeated query.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrPeerNotFound
	}

	board, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	for i, leader := range board.Leaders {
		if strings.ToLower(leader.ID) == q || (leader.Nickname != "" && strings.ToLower(leader.Nickname) == q) {
			return &SearchResult{Index: i, Leader: leader, InLeaderboard: true}, nil
		}
	}

	if !common.IsHexAddress(query) {
		return nil, ErrPeerNotFound
	}

	ids, err := s.chain.PeerIDs(ctx, []common.Address{common.HexToAddress(query)})
	if err != nil {
		return nil, fmt.Errorf("could not search leaderboard: %w", err)
	}
	if len(ids) == 0 || ids[0] == "" {
		return nil, ErrPeerNotFound
	}

	return &SearchResult{
		Index: BeyondWindowIndex,
		Leader: normalizeLeader(Leader{
			ID: ids[0],
		}),
		InLeaderboard: false,
	}, nil
}
