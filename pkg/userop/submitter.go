package userop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// Default gas bounds applied when no sponsorship policy fills them
const (
	defaultCallGasLimit         = 500_000
	defaultVerificationGasLimit = 500_000
	defaultPreVerificationGas   = 60_000
)

// Bundler RPC methods
const (
	methodSendUserOperation = "eth_sendUserOperation"
	methodRequestSponsor    = "alchemy_requestGasAndPaymasterAndData"
)

// TransportError is a submission failure with structured request/response
// detail attached by the bundler transport. The detail string may embed
// encoded revert data; see DecodeSubmissionError.
type TransportError struct {
	Method       string
	Details      string
	MetaMessages []string
	cause        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("userop: %s transport failure: %v", e.Method, e.cause)
}

func (e *TransportError) Unwrap() error { return e.cause }

// userOperation is the wire form submitted to the bundler
type userOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *hexutil.Big   `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// sponsorResult is the paymaster RPC response filling gas and sponsorship
type sponsorResult struct {
	CallGasLimit         *hexutil.Big  `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big  `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big  `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big  `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big  `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes `json:"paymasterAndData"`
}

// Client submits user operations through a bundler endpoint. Submission is
// a single attempt per call; retrying a state-changing operation is the
// caller's decision.
type Client struct {
	rpc        *rpc.Client
	chainID    *big.Int
	entryPoint common.Address
	target     common.Address
	policyID   string
	logger     *utils.Logger
}

// NewClient dials the bundler endpoint
func NewClient(ctx context.Context, bundlerURL string, chainID int64, entryPoint, target common.Address, policyID string, logger *utils.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, bundlerURL)
	if err != nil {
		return nil, fmt.Errorf("userop: dial bundler %s: %w", bundlerURL, err)
	}
	return &Client{
		rpc:        rpcClient,
		chainID:    big.NewInt(chainID),
		entryPoint: entryPoint,
		target:     target,
		policyID:   policyID,
		logger:     logger,
	}, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	c.rpc.Close()
}

// SendUserOperation wraps callData in the account's execute call, applies
// the sponsorship policy, signs and submits. Returns the user operation
// hash accepted by the bundler.
func (c *Client) SendUserOperation(ctx context.Context, acct *Account, callData []byte) (common.Hash, error) {
	executeData, err := PackExecute(c.target, nil, callData)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := c.accountNonce(ctx, acct)
	if err != nil {
		return common.Hash{}, err
	}

	op := &userOperation{
		Sender:               acct.Address,
		Nonce:                (*hexutil.Big)(nonce),
		InitCode:             acct.InitCode,
		CallData:             executeData,
		CallGasLimit:         (*hexutil.Big)(big.NewInt(defaultCallGasLimit)),
		VerificationGasLimit: (*hexutil.Big)(big.NewInt(defaultVerificationGasLimit)),
		PreVerificationGas:   (*hexutil.Big)(big.NewInt(defaultPreVerificationGas)),
		MaxFeePerGas:         (*hexutil.Big)(big.NewInt(0)),
		MaxPriorityFeePerGas: (*hexutil.Big)(big.NewInt(0)),
		Signature:            make([]byte, 65),
	}

	if c.policyID != "" {
		if err := c.applySponsorship(ctx, op); err != nil {
			return common.Hash{}, err
		}
	}

	opHash, err := c.operationHash(op)
	if err != nil {
		return common.Hash{}, err
	}
	sig, err := acct.SignHash(opHash)
	if err != nil {
		return common.Hash{}, err
	}
	op.Signature = sig

	var accepted common.Hash
	if err := c.rpc.CallContext(ctx, &accepted, methodSendUserOperation, op, c.entryPoint); err != nil {
		return common.Hash{}, c.wrapTransport(methodSendUserOperation, op, err)
	}

	if c.logger != nil {
		c.logger.InfoContext(ctx, "user operation submitted",
			utils.ZapString("sender", acct.Address.Hex()),
			utils.ZapString("hash", accepted.Hex()))
	}
	return accepted, nil
}

// applySponsorship asks the paymaster RPC to fill gas limits and
// paymasterAndData under the configured policy.
func (c *Client) applySponsorship(ctx context.Context, op *userOperation) error {
	params := map[string]interface{}{
		"policyId":       c.policyID,
		"entryPoint":     c.entryPoint,
		"dummySignature": hexutil.Bytes(make([]byte, 65)),
		"userOperation":  op,
	}

	var res sponsorResult
	if err := c.rpc.CallContext(ctx, &res, methodRequestSponsor, params); err != nil {
		return c.wrapTransport(methodRequestSponsor, op, err)
	}

	if res.CallGasLimit != nil {
		op.CallGasLimit = res.CallGasLimit
	}
	if res.VerificationGasLimit != nil {
		op.VerificationGasLimit = res.VerificationGasLimit
	}
	if res.PreVerificationGas != nil {
		op.PreVerificationGas = res.PreVerificationGas
	}
	if res.MaxFeePerGas != nil {
		op.MaxFeePerGas = res.MaxFeePerGas
	}
	if res.MaxPriorityFeePerGas != nil {
		op.MaxPriorityFeePerGas = res.MaxPriorityFeePerGas
	}
	op.PaymasterAndData = res.PaymasterAndData
	return nil
}

// entryPointNonceABI exposes the entry point's per-sender nonce sequence
const entryPointNonceABI = `[
  {
    "inputs": [
      {"internalType": "address", "name": "sender", "type": "address"},
      {"internalType": "uint192", "name": "key", "type": "uint192"}
    ],
    "name": "getNonce",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var entryPointABI = mustParseABI(entryPointNonceABI)

// accountNonce reads the sender nonce from the entry point. Undeployed
// accounts (init code pending) always start at nonce zero.
func (c *Client) accountNonce(ctx context.Context, acct *Account) (*big.Int, error) {
	if len(acct.InitCode) > 0 {
		return new(big.Int), nil
	}

	data, err := entryPointABI.Pack("getNonce", acct.Address, new(big.Int))
	if err != nil {
		return nil, &EncodingError{Function: "getNonce", cause: err}
	}

	var raw hexutil.Bytes
	call := map[string]interface{}{
		"to":   c.entryPoint,
		"data": hexutil.Bytes(data),
	}
	if err := c.rpc.CallContext(ctx, &raw, "eth_call", call, "latest"); err != nil {
		return nil, fmt.Errorf("userop: could not get account nonce: %w", err)
	}

	out, err := entryPointABI.Unpack("getNonce", raw)
	if err != nil {
		return nil, fmt.Errorf("userop: could not get account nonce: %w", err)
	}
	nonce, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("userop: could not get account nonce: unexpected type %T", out[0])
	}
	return nonce, nil
}

var (
	typeAddress = mustNewType("address")
	typeUint256 = mustNewType("uint256")
	typeBytes32 = mustNewType("bytes32")

	packedOpArgs = abi.Arguments{
		{Type: typeAddress}, // sender
		{Type: typeUint256}, // nonce
		{Type: typeBytes32}, // keccak(initCode)
		{Type: typeBytes32}, // keccak(callData)
		{Type: typeUint256}, // callGasLimit
		{Type: typeUint256}, // verificationGasLimit
		{Type: typeUint256}, // preVerificationGas
		{Type: typeUint256}, // maxFeePerGas
		{Type: typeUint256}, // maxPriorityFeePerGas
		{Type: typeBytes32}, // keccak(paymasterAndData)
	}

	opEnvelopeArgs = abi.Arguments{
		{Type: typeBytes32}, // keccak(packed op)
		{Type: typeAddress}, // entry point
		{Type: typeUint256}, // chain id
	}
)

func mustNewType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic("userop: abi type " + name + ": " + err.Error())
	}
	return t
}

// operationHash computes the canonical hash the account signs: the packed
// operation hashed together with the entry point address and chain id.
func (c *Client) operationHash(op *userOperation) (common.Hash, error) {
	packed, err := packedOpArgs.Pack(
		op.Sender,
		(*big.Int)(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		(*big.Int)(op.CallGasLimit),
		(*big.Int)(op.VerificationGasLimit),
		(*big.Int)(op.PreVerificationGas),
		(*big.Int)(op.MaxFeePerGas),
		(*big.Int)(op.MaxPriorityFeePerGas),
		crypto.Keccak256Hash(op.PaymasterAndData),
	)
	if err != nil {
		return common.Hash{}, &EncodingError{Function: "operationHash", cause: err}
	}

	envelope, err := opEnvelopeArgs.Pack(crypto.Keccak256Hash(packed), c.entryPoint, c.chainID)
	if err != nil {
		return common.Hash{}, &EncodingError{Function: "operationHash", cause: err}
	}
	return crypto.Keccak256Hash(envelope), nil
}

// wrapTransport converts an RPC failure carrying structured error data
// into a *TransportError; anything else passes through unchanged so the
// decoder can classify it as unexpected.
func (c *Client) wrapTransport(method string, op *userOperation, err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}

	code := 0
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		code = rpcErr.ErrorCode()
	}

	detail, marshalErr := json.Marshal(map[string]interface{}{
		"code":    code,
		"message": err.Error(),
		"data":    dataErr.ErrorData(),
	})
	if marshalErr != nil {
		return err
	}

	return &TransportError{
		Method:  method,
		Details: string(detail),
		MetaMessages: []string{
			fmt.Sprintf("Request: %s", method),
			fmt.Sprintf("Sender: %s", op.Sender.Hex()),
			fmt.Sprintf("Entry point: %s", c.entryPoint.Hex()),
		},
		cause: err,
	}
}
