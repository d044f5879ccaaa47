// Package keystore reads signing-key records provisioned by the login
// service. Records are owned and mutated externally; this package only
// observes them.
package keystore

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound indicates the organization is unknown
	ErrUserNotFound = errors.New("keystore: user not found")

	// ErrKeyNotFound indicates no signing key record exists for the org
	ErrKeyNotFound = errors.New("keystore: api key not found")

	// ErrKeyNotReady indicates the key exists but never activated within
	// the polling budget
	ErrKeyNotReady = errors.New("keystore: api key not activated")
)

// User is an organization registered with the provisioning service
type User struct {
	OrgID   string
	Address string
	Email   string
}

// SigningKeyRecord is the latest signing key provisioned for an org.
// PrivateKey is hex-encoded secp256k1 key material; InitCode and
// DeferredActionDigest are 0x-prefixed hex.
type SigningKeyRecord struct {
	OrgID                string
	AccountAddress       string
	PrivateKey           string
	InitCode             string
	DeferredActionDigest string
	Activated            bool
}

// Store is the read-only capability over the provisioning database
type Store interface {
	// GetUser returns the user for an org, or ErrUserNotFound
	GetUser(ctx context.Context, orgID string) (*User, error)

	// LatestKey returns the most recently provisioned key record for an
	// org, or ErrKeyNotFound when none exists
	LatestKey(ctx context.Context, orgID string) (*SigningKeyRecord, error)
}
