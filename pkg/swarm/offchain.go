// Package swarm merges the authoritative on-chain ranking with the richer
// DHT-backed dataset served by the swarm API, and exposes the gossip feed.
package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// ValidationError indicates an off-chain payload failed schema validation.
// The fetch boundary reports it explicitly; only the leaderboard/gossip
// layer decides whether to degrade.
type ValidationError struct {
	Resource string
	cause    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("swarm: %s payload failed validation: %v", e.Resource, e.cause)
}

func (e *ValidationError) Unwrap() error { return e.cause }

// Sample is one (x, y) point of a leader's reward time series
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OffchainLeader is one entry of the DHT leaderboard payload
type OffchainLeader struct {
	ID            string   `json:"id"`
	Nickname      string   `json:"nickname"`
	Participation float64  `json:"participation"`
	Score         float64  `json:"score"`
	Values        []Sample `json:"values"`
}

// LeaderboardPayload is the validated off-chain leaderboard response
type LeaderboardPayload struct {
	Leaders []OffchainLeader
	Total   int
}

// GossipMessage is one message of the gossip feed
type GossipMessage struct {
	ID      string `json:"id"`
	Node    string `json:"node"`
	Message string `json:"message"`
}

// GossipPayload is the validated gossip response
type GossipPayload struct {
	Messages []GossipMessage
}

// maxOffchainBody bounds how much of an upstream response is read
const maxOffchainBody = 4 << 20

// Client fetches leaderboard and gossip data from the swarm API
type Client struct {
	baseURL string
	http    *http.Client
	logger  *utils.Logger
}

// NewClient creates a Client for the given swarm API base URL
func NewClient(baseURL string, httpClient *http.Client, logger *utils.Logger) *Client {
	return &Client{baseURL: baseURL, http: httpClient, logger: logger}
}

// rawLeaderboard mirrors the upstream schema with pointer fields so that
// missing keys are distinguishable from zero values.
type rawLeaderboard struct {
	Leaders *[]rawLeader `json:"leaders"`
	Total   *int         `json:"total"`
}

type rawLeader struct {
	ID            *string   `json:"id"`
	Nickname      *string   `json:"nickname"`
	Participation *float64  `json:"participation"`
	Score         *float64  `json:"score"`
	Values        *[]Sample `json:"values"`
}

type rawGossip struct {
	Messages *[]rawGossipMessage `json:"messages"`
}

type rawGossipMessage struct {
	ID      *string `json:"id"`
	Node    *string `json:"node"`
	Message *string `json:"message"`
}

// FetchLeaderboard retrieves and validates the off-chain leaderboard.
// Schema mismatches return a *ValidationError; transport failures return
// plain errors.
func (c *Client) FetchLeaderboard(ctx context.Context) (*LeaderboardPayload, error) {
	body, err := c.get(ctx, "/api/leaderboard")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}

	var raw rawLeaderboard
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ValidationError{Resource: "leaderboard", cause: err}
	}
	if raw.Leaders == nil || raw.Total == nil {
		return nil, &ValidationError{Resource: "leaderboard", cause: fmt.Errorf("missing leaders or total")}
	}

	payload := &LeaderboardPayload{
		Leaders: make([]OffchainLeader, 0, len(*raw.Leaders)),
		Total:   *raw.Total,
	}
	for i, leader := range *raw.Leaders {
		if leader.ID == nil || leader.Score == nil || leader.Values == nil {
			return nil, &ValidationError{
				Resource: "leaderboard",
				cause:    fmt.Errorf("leader %d missing required fields", i),
			}
		}
		entry := OffchainLeader{
			ID:     *leader.ID,
			Score:  *leader.Score,
			Values: *leader.Values,
		}
		if leader.Nickname != nil {
			entry.Nickname = *leader.Nickname
		}
		if leader.Participation != nil {
			entry.Participation = *leader.Participation
		}
		payload.Leaders = append(payload.Leaders, entry)
	}
	return payload, nil
}

// FetchGossip retrieves and validates gossip messages newer than since
func (c *Client) FetchGossip(ctx context.Context, since int64) (*GossipPayload, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/gossip?since_round=%d", since))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gossip: %w", err)
	}

	var raw rawGossip
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ValidationError{Resource: "gossip", cause: err}
	}
	if raw.Messages == nil {
		return nil, &ValidationError{Resource: "gossip", cause: fmt.Errorf("missing messages")}
	}

	payload := &GossipPayload{Messages: make([]GossipMessage, 0, len(*raw.Messages))}
	for i, msg := range *raw.Messages {
		if msg.ID == nil || msg.Node == nil || msg.Message == nil {
			return nil, &ValidationError{
				Resource: "gossip",
				cause:    fmt.Errorf("message %d missing required fields", i),
			}
		}
		payload.Messages = append(payload.Messages, GossipMessage{
			ID:      *msg.ID,
			Node:    *msg.Node,
			Message: *msg.Message,
		})
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	res, err := utils.GetJSON(ctx, c.http, c.baseURL+path)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxOffchainBody))
	if err != nil {
		return nil, err
	}
	return body, nil
}
