// Package chain provides read-only queries against the swarm coordinator
// contract. All queries are idempotent and safe to retry at the caller.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// MaxLeaderboardPage is the largest page the contract serves per call
const MaxLeaderboardPage = 100

// VoterEntry is one row of the on-chain voter ranking
type VoterEntry struct {
	Address   common.Address
	VoteCount uint64
}

// ContractBackend is the minimal chain-RPC capability the reader needs.
// *ethclient.Client satisfies it; tests supply a fake.
type ContractBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader performs read-only coordinator contract queries
type Reader struct {
	backend  ContractBackend
	contract common.Address
	logger   *utils.Logger
}

// NewReader creates a Reader bound to the coordinator contract address
func NewReader(backend ContractBackend, contract common.Address, logger *utils.Logger) *Reader {
	return &Reader{backend: backend, contract: contract, logger: logger}
}

// Dial connects to a chain RPC endpoint and returns a backend for NewReader
func Dial(ctx context.Context, providerURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, providerURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", providerURL, err)
	}
	return client, nil
}

// VoterLeaderboard returns the on-chain ranking page starting at offset.
// The requested page size is clamped to MaxLeaderboardPage, the contract's
// hard cap.
func (r *Reader) VoterLeaderboard(ctx context.Context, offset, limit uint64) ([]VoterEntry, error) {
	if limit > MaxLeaderboardPage {
		limit = MaxLeaderboardPage
	}

	out, err := r.call(ctx, "voterLeaderboard",
		new(big.Int).SetUint64(offset), new(big.Int).SetUint64(limit))
	if err != nil {
		return nil, fmt.Errorf("could not get voter leaderboard: %w", err)
	}

	voters, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("could not get voter leaderboard: unexpected voters type %T", out[0])
	}
	counts, ok := out[1].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("could not get voter leaderboard: unexpected counts type %T", out[1])
	}
	if len(voters) != len(counts) {
		return nil, fmt.Errorf("could not get voter leaderboard: %d voters vs %d counts", len(voters), len(counts))
	}

	entries := make([]VoterEntry, len(voters))
	for i, voter := range voters {
		entries[i] = VoterEntry{Address: voter, VoteCount: counts[i].Uint64()}
	}
	return entries, nil
}

// PeerIDs resolves the peer ID registered for each address. The result is
// parallel to the input: addrs[i] maps to the i-th returned string, empty
// when the address never registered.
func (r *Reader) PeerIDs(ctx context.Context, addrs []common.Address) ([]string, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	out, err := r.call(ctx, "getPeerId", addrs)
	if err != nil {
		return nil, fmt.Errorf("could not get peer ids: %w", err)
	}

	peerIDs, ok := out[0].([]string)
	if !ok {
		return nil, fmt.Errorf("could not get peer ids: unexpected type %T", out[0])
	}
	if len(peerIDs) != len(addrs) {
		return nil, fmt.Errorf("could not get peer ids: %d results for %d addresses", len(peerIDs), len(addrs))
	}
	return peerIDs, nil
}

// RoundAndStage fetches the current round and stage. The two reads share
// no ordering dependency and are issued concurrently.
func (r *Reader) RoundAndStage(ctx context.Context) (round, stage uint64, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := r.callUint(gctx, "currentRound")
		if err != nil {
			return err
		}
		round = v
		return nil
	})
	g.Go(func() error {
		v, err := r.callUint(gctx, "currentStage")
		if err != nil {
			return err
		}
		stage = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, 0, fmt.Errorf("could not get round and stage: %w", err)
	}
	return round, stage, nil
}

func (r *Reader) callUint(ctx context.Context, method string) (uint64, error) {
	out, err := r.call(ctx, method)
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected type %T", method, out[0])
	}
	return v.Uint64(), nil
}

// call packs a view-method invocation, executes it and unpacks the outputs
func (r *Reader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := CoordinatorABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	raw, err := r.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &r.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := CoordinatorABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return out, nil
}
