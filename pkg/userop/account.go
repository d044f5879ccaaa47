package userop

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/gensyn-ai/rl-swarm/pkg/keystore"
)

// AccountConstructionError indicates the signing-key record could not be
// turned into a usable smart account (malformed key material, digest or
// init code).
type AccountConstructionError struct {
	Field string
	cause error
}

func (e *AccountConstructionError) Error() string {
	return fmt.Sprintf("userop: account construction failed on %s: %v", e.Field, e.cause)
}

func (e *AccountConstructionError) Unwrap() error { return e.cause }

// Account is a smart contract account ready to sign user operations.
// The deferred action digest authorizes execution without an extra
// owner signature at submission time.
type Account struct {
	Address              common.Address
	InitCode             []byte
	DeferredActionDigest []byte

	key *ecdsa.PrivateKey
}

// NewAccount builds an Account from a provisioned signing-key record
func NewAccount(rec *keystore.SigningKeyRecord) (*Account, error) {
	if !common.IsHexAddress(rec.AccountAddress) {
		return nil, &AccountConstructionError{
			Field: "accountAddress",
			cause: fmt.Errorf("not a valid address: %q", rec.AccountAddress),
		}
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(rec.PrivateKey, "0x"))
	if err != nil {
		return nil, &AccountConstructionError{Field: "privateKey", cause: err}
	}

	var initCode []byte
	if rec.InitCode != "" && rec.InitCode != "0x" {
		initCode, err = hexutil.Decode(rec.InitCode)
		if err != nil {
			return nil, &AccountConstructionError{Field: "initCode", cause: err}
		}
	}

	var digest []byte
	if rec.DeferredActionDigest != "" && rec.DeferredActionDigest != "0x" {
		digest, err = hexutil.Decode(rec.DeferredActionDigest)
		if err != nil {
			return nil, &AccountConstructionError{Field: "deferredActionDigest", cause: err}
		}
	}

	return &Account{
		Address:              common.HexToAddress(rec.AccountAddress),
		InitCode:             initCode,
		DeferredActionDigest: digest,
		key:                  key,
	}, nil
}

// SignHash produces an EIP-191 signature over the given hash, prefixed
// with the account's deferred action digest when present.
func (a *Account) SignHash(hash common.Hash) ([]byte, error) {
	prefixed := crypto.Keccak256Hash(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(hash))),
		hash.Bytes(),
	)

	sig, err := crypto.Sign(prefixed.Bytes(), a.key)
	if err != nil {
		return nil, fmt.Errorf("userop: sign: %w", err)
	}
	// Chain expects 27/28 recovery ids
	sig[crypto.RecoveryIDOffset] += 27

	if len(a.DeferredActionDigest) > 0 {
		return append(append([]byte{}, a.DeferredActionDigest...), sig...), nil
	}
	return sig, nil
}
