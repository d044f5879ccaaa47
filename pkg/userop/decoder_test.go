package userop

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/gensyn-ai/rl-swarm/pkg/chain"
)

// packRevert builds raw revert bytes for a declared custom error
func packRevert(t *testing.T, name string, args ...interface{}) []byte {
	t.Helper()
	abiErr, ok := chain.CoordinatorABI.Errors[name]
	if !ok {
		t.Fatalf("no such ABI error %s", name)
	}
	packed, err := abiErr.Inputs.Pack(args...)
	if err != nil {
		t.Fatalf("pack %s args: %v", name, err)
	}
	return append(abiErr.ID.Bytes()[:4], packed...)
}

func transportErrWithRevert(t *testing.T, revertData []byte) *TransportError {
	t.Helper()
	detail, err := json.Marshal(map[string]interface{}{
		"code":    -32521,
		"message": "execution reverted",
		"data": map[string]interface{}{
			"data": map[string]interface{}{
				"revertData": hexutil.Encode(revertData),
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal detail: %v", err)
	}
	return &TransportError{
		Method:       methodSendUserOperation,
		Details:      string(detail),
		MetaMessages: []string{"Request: eth_sendUserOperation"},
		cause:        errors.New("execution reverted"),
	}
}

func TestDecodeRevertByName(t *testing.T) {
	revert := packRevert(t, "PeerIdAlreadyRegistered", "peer-abc")
	decoded := DecodeSubmissionError(chain.CoordinatorABI, transportErrWithRevert(t, revert))

	var revertErr *ChainRevertError
	if !errors.As(decoded, &revertErr) {
		t.Fatalf("expected ChainRevertError, got %v", decoded)
	}
	if revertErr.ErrorName != "PeerIdAlreadyRegistered" {
		t.Fatalf("unexpected error name %s", revertErr.ErrorName)
	}
	if len(revertErr.MetaMessages) == 0 {
		t.Fatal("expected meta messages carried through")
	}
}

func TestDecodeRevertDeterministic(t *testing.T) {
	revert := packRevert(t, "InvalidRoundNumber", mustBig(7))

	var names []string
	for i := 0; i < 3; i++ {
		decoded := DecodeSubmissionError(chain.CoordinatorABI, transportErrWithRevert(t, revert))
		var revertErr *ChainRevertError
		if !errors.As(decoded, &revertErr) {
			t.Fatalf("expected ChainRevertError, got %v", decoded)
		}
		names = append(names, revertErr.ErrorName)
	}
	for _, name := range names {
		if name != names[0] {
			t.Fatalf("decoding not deterministic: %v", names)
		}
	}
}

func TestDecodePassesThroughUnexpectedShapes(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	decoded := DecodeSubmissionError(chain.CoordinatorABI, cause)
	if decoded != cause {
		t.Fatalf("expected passthrough, got %v", decoded)
	}
}

func TestDecodeRejectsMalformedDetailJSON(t *testing.T) {
	transport := &TransportError{
		Method:  methodSendUserOperation,
		Details: "not json at all",
		cause:   errors.New("execution reverted"),
	}

	decoded := DecodeSubmissionError(chain.CoordinatorABI, transport)
	var parseErr *DetailParseError
	if !errors.As(decoded, &parseErr) {
		t.Fatalf("expected DetailParseError, got %v", decoded)
	}
}

func TestDecodeRejectsMissingRevertData(t *testing.T) {
	transport := &TransportError{
		Method:  methodSendUserOperation,
		Details: `{"code":-32521,"message":"execution reverted","data":{}}`,
		cause:   errors.New("execution reverted"),
	}

	decoded := DecodeSubmissionError(chain.CoordinatorABI, transport)
	var parseErr *DetailParseError
	if !errors.As(decoded, &parseErr) {
		t.Fatalf("expected DetailParseError, got %v", decoded)
	}
}

func TestDecodeRejectsUnknownSelector(t *testing.T) {
	decoded := DecodeSubmissionError(chain.CoordinatorABI,
		transportErrWithRevert(t, []byte{0xff, 0xff, 0xff, 0xff}))
	var parseErr *DetailParseError
	if !errors.As(decoded, &parseErr) {
		t.Fatalf("expected DetailParseError, got %v", decoded)
	}
}

func mustBig(v int64) *big.Int {
	return big.NewInt(v)
}
