package userop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ChainRevertError is a decoded on-chain revert: recoverable and
// user-facing. ErrorName matches a custom error declared in the contract
// ABI.
type ChainRevertError struct {
	ErrorName    string
	MetaMessages []string
}

func (e *ChainRevertError) Error() string {
	return fmt.Sprintf("userop: chain revert: %s", e.ErrorName)
}

// DetailParseError indicates a transport failure carried detail that did
// not match the expected schema. Surfaced rather than swallowed so parse
// failures stay observable.
type DetailParseError struct {
	Detail string
	cause  error
}

func (e *DetailParseError) Error() string {
	return fmt.Sprintf("userop: could not parse transport detail: %v", e.cause)
}

func (e *DetailParseError) Unwrap() error { return e.cause }

// transportDetail is the expected shape of a bundler error detail string.
// The doubly nested data carries raw encoded revert bytes.
type transportDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Data *struct {
			RevertData *string `json:"revertData"`
		} `json:"data"`
	} `json:"data"`
}

// DecodeSubmissionError classifies a submission failure.
//
// A *TransportError has its detail string parsed and the embedded revert
// bytes decoded against the contract ABI, yielding a *ChainRevertError. A
// detail that fails schema validation yields a *DetailParseError. Any
// other failure shape is returned unchanged for the caller to treat as
// unexpected. The decision is made by structural inspection (errors.As),
// never by blind casting.
func DecodeSubmissionError(contractABI abi.ABI, err error) error {
	var transport *TransportError
	if !errors.As(err, &transport) {
		return err
	}

	var detail transportDetail
	if parseErr := json.Unmarshal([]byte(transport.Details), &detail); parseErr != nil {
		return &DetailParseError{Detail: transport.Details, cause: parseErr}
	}
	if detail.Data == nil || detail.Data.Data == nil || detail.Data.Data.RevertData == nil {
		return &DetailParseError{
			Detail: transport.Details,
			cause:  errors.New("missing data.data.revertData"),
		}
	}

	revertData, decodeErr := hexutil.Decode(*detail.Data.Data.RevertData)
	if decodeErr != nil {
		return &DetailParseError{Detail: transport.Details, cause: decodeErr}
	}

	name, decodeErr := decodeRevertName(contractABI, revertData)
	if decodeErr != nil {
		return &DetailParseError{Detail: transport.Details, cause: decodeErr}
	}

	return &ChainRevertError{
		ErrorName:    name,
		MetaMessages: transport.MetaMessages,
	}
}

// decodeRevertName matches revert bytes against the ABI's declared custom
// errors by selector. Deterministic: identical bytes always decode to the
// same name.
func decodeRevertName(contractABI abi.ABI, revertData []byte) (string, error) {
	if len(revertData) < 4 {
		return "", fmt.Errorf("revert data too short: %d bytes", len(revertData))
	}

	selector := revertData[:4]
	for _, abiErr := range contractABI.Errors {
		if !bytes.Equal(abiErr.ID.Bytes()[:4], selector) {
			continue
		}
		if _, err := abiErr.Unpack(revertData); err != nil {
			return "", fmt.Errorf("unpack %s: %w", abiErr.Name, err)
		}
		return abiErr.Name, nil
	}
	return "", fmt.Errorf("no ABI error matches selector %x", selector)
}
