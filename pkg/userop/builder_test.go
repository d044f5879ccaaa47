package userop

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gensyn-ai/rl-swarm/pkg/chain"
)

func TestBuildCallDataDeterministic(t *testing.T) {
	first, err := BuildCallData(chain.CoordinatorABI, "registerPeer", "peer-abc")
	if err != nil {
		t.Fatalf("BuildCallData failed: %v", err)
	}
	second, err := BuildCallData(chain.CoordinatorABI, "registerPeer", "peer-abc")
	if err != nil {
		t.Fatalf("BuildCallData failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("identical inputs produced different payloads")
	}

	selector := chain.CoordinatorABI.Methods["registerPeer"].ID
	if !bytes.Equal(first[:4], selector) {
		t.Fatalf("payload selector %x does not match registerPeer %x", first[:4], selector)
	}
}

func TestBuildCallDataSubmitReward(t *testing.T) {
	data, err := BuildCallData(chain.CoordinatorABI, "submitReward",
		big.NewInt(1), big.NewInt(2), big.NewInt(100), "peer-abc")
	if err != nil {
		t.Fatalf("BuildCallData failed: %v", err)
	}
	if len(data) <= 4 {
		t.Fatalf("payload suspiciously short: %d bytes", len(data))
	}
}

func TestBuildCallDataRejectsBadArity(t *testing.T) {
	_, err := BuildCallData(chain.CoordinatorABI, "registerPeer", "peer-abc", "extra")
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
	if encErr.Function != "registerPeer" {
		t.Fatalf("unexpected function in error: %s", encErr.Function)
	}
}

func TestBuildCallDataRejectsBadType(t *testing.T) {
	_, err := BuildCallData(chain.CoordinatorABI, "submitReward",
		"not-a-number", big.NewInt(2), big.NewInt(100), "peer-abc")
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestPackExecuteWrapsTargetCall(t *testing.T) {
	inner, err := BuildCallData(chain.CoordinatorABI, "registerPeer", "peer-abc")
	if err != nil {
		t.Fatalf("BuildCallData failed: %v", err)
	}

	target := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	packed, err := PackExecute(target, nil, inner)
	if err != nil {
		t.Fatalf("PackExecute failed: %v", err)
	}

	selector := executeABI.Methods["execute"].ID
	if !bytes.Equal(packed[:4], selector) {
		t.Fatalf("expected execute selector, got %x", packed[:4])
	}
	if !bytes.Contains(packed, inner[:4]) {
		t.Fatal("execute payload does not embed target call data")
	}
}
