package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// fakeBackend dispatches eth_call payloads by method selector
type fakeBackend struct {
	t       *testing.T
	handler func(method string, args []interface{}) ([]interface{}, error)
	calls   int
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	for name, method := range CoordinatorABI.Methods {
		if !bytes.Equal(method.ID, call.Data[:4]) {
			continue
		}
		args, err := method.Inputs.Unpack(call.Data[4:])
		if err != nil {
			f.t.Fatalf("unpack inputs for %s: %v", name, err)
		}
		out, err := f.handler(name, args)
		if err != nil {
			return nil, err
		}
		packed, err := method.Outputs.Pack(out...)
		if err != nil {
			f.t.Fatalf("pack outputs for %s: %v", name, err)
		}
		return packed, nil
	}
	f.t.Fatalf("no method matches selector %x", call.Data[:4])
	return nil, nil
}

var testContract = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestVoterLeaderboardClampsPageSize(t *testing.T) {
	backend := &fakeBackend{t: t, handler: func(method string, args []interface{}) ([]interface{}, error) {
		if method != "voterLeaderboard" {
			t.Fatalf("unexpected method %s", method)
		}
		count := args[1].(*big.Int).Uint64()
		if count > MaxLeaderboardPage {
			t.Fatalf("page size %d exceeds contract cap", count)
		}
		return []interface{}{
			[]common.Address{common.HexToAddress("0x01"), common.HexToAddress("0x02")},
			[]*big.Int{big.NewInt(7), big.NewInt(3)},
		}, nil
	}}

	reader := NewReader(backend, testContract, nil)
	entries, err := reader.VoterLeaderboard(context.Background(), 0, 500)
	if err != nil {
		t.Fatalf("VoterLeaderboard failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].VoteCount != 7 || entries[1].VoteCount != 3 {
		t.Fatalf("vote counts out of order: %+v", entries)
	}
}

func TestVoterLeaderboardLengthMismatch(t *testing.T) {
	backend := &fakeBackend{t: t, handler: func(method string, args []interface{}) ([]interface{}, error) {
		return []interface{}{
			[]common.Address{common.HexToAddress("0x01")},
			[]*big.Int{big.NewInt(1), big.NewInt(2)},
		}, nil
	}}

	reader := NewReader(backend, testContract, nil)
	if _, err := reader.VoterLeaderboard(context.Background(), 0, 10); err == nil {
		t.Fatal("expected error on voters/counts length mismatch")
	}
}

func TestPeerIDsPreservesOrder(t *testing.T) {
	addrs := []common.Address{
		common.HexToAddress("0x0a"),
		common.HexToAddress("0x0b"),
		common.HexToAddress("0x0c"),
	}
	backend := &fakeBackend{t: t, handler: func(method string, args []interface{}) ([]interface{}, error) {
		in := args[0].([]common.Address)
		out := make([]string, len(in))
		for i, a := range in {
			out[i] = "peer-" + a.Hex()
		}
		return []interface{}{out}, nil
	}}

	reader := NewReader(backend, testContract, nil)
	peerIDs, err := reader.PeerIDs(context.Background(), addrs)
	if err != nil {
		t.Fatalf("PeerIDs failed: %v", err)
	}
	if len(peerIDs) != len(addrs) {
		t.Fatalf("expected %d peer ids, got %d", len(addrs), len(peerIDs))
	}
	for i, a := range addrs {
		if peerIDs[i] != "peer-"+a.Hex() {
			t.Fatalf("peer id %d out of order: %s", i, peerIDs[i])
		}
	}
}

func TestPeerIDsEmptyInput(t *testing.T) {
	backend := &fakeBackend{t: t, handler: func(method string, args []interface{}) ([]interface{}, error) {
		t.Fatal("no call expected for empty input")
		return nil, nil
	}}

	reader := NewReader(backend, testContract, nil)
	peerIDs, err := reader.PeerIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("PeerIDs failed: %v", err)
	}
	if peerIDs != nil {
		t.Fatalf("expected nil result, got %v", peerIDs)
	}
	if backend.calls != 0 {
		t.Fatalf("expected no backend calls, got %d", backend.calls)
	}
}

func TestRoundAndStage(t *testing.T) {
	backend := &fakeBackend{t: t, handler: func(method string, args []interface{}) ([]interface{}, error) {
		switch method {
		case "currentRound":
			return []interface{}{big.NewInt(42)}, nil
		case "currentStage":
			return []interface{}{big.NewInt(2)}, nil
		}
		t.Fatalf("unexpected method %s", method)
		return nil, nil
	}}

	reader := NewReader(backend, testContract, nil)
	round, stage, err := reader.RoundAndStage(context.Background())
	if err != nil {
		t.Fatalf("RoundAndStage failed: %v", err)
	}
	if round != 42 || stage != 2 {
		t.Fatalf("expected round=42 stage=2, got %d/%d", round, stage)
	}
}

func TestRoundAndStageWrapsFailure(t *testing.T) {
	rpcErr := errors.New("connection refused")
	backend := &fakeBackend{t: t, handler: func(method string, args []interface{}) ([]interface{}, error) {
		return nil, rpcErr
	}}

	reader := NewReader(backend, testContract, nil)
	_, _, err := reader.RoundAndStage(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "could not get round and stage") {
		t.Fatalf("expected stage-specific wrap, got %v", err)
	}
	if !errors.Is(err, rpcErr) {
		t.Fatalf("expected original cause preserved, got %v", err)
	}
}
