// Package userop builds, signs and submits account-abstraction user
// operations against the swarm coordinator contract, and decodes on-chain
// revert failures into named errors.
package userop

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// EncodingError indicates the arguments did not match the ABI's declared
// parameter types or arity for the target function.
type EncodingError struct {
	Function string
	cause    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("userop: encode %s: %v", e.Function, e.cause)
}

func (e *EncodingError) Unwrap() error { return e.cause }

// BuildCallData encodes a contract call into ABI call data. Deterministic:
// identical inputs always produce identical payloads.
func BuildCallData(contractABI abi.ABI, function string, args ...interface{}) ([]byte, error) {
	data, err := contractABI.Pack(function, args...)
	if err != nil {
		return nil, &EncodingError{Function: function, cause: err}
	}
	return data, nil
}

// executeABIJSON is the modular account's execution entry: a user
// operation's call data wraps the target contract call in execute().
const executeABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "target", "type": "address"},
      {"internalType": "uint256", "name": "value", "type": "uint256"},
      {"internalType": "bytes", "name": "data", "type": "bytes"}
    ],
    "name": "execute",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

var executeABI = mustParseABI(executeABIJSON)

// PackExecute wraps target call data into the smart account's execute call
func PackExecute(target common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	packed, err := executeABI.Pack("execute", target, value, data)
	if err != nil {
		return nil, &EncodingError{Function: "execute", cause: err}
	}
	return packed, nil
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("userop: invalid ABI: " + err.Error())
	}
	return parsed
}
