package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// PostgresConfig holds connection settings for the provisioning database
type PostgresConfig struct {
	DSN          string
	ConnTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
	Logger       *utils.Logger
}

// PostgresStore reads users and signing keys from the provisioning
// database. The login service owns the schema and all writes.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens and verifies a connection to the provisioning DB
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("keystore: DSN is required")
	}
	if cfg.ConnTimeout <= 0 {
		cfg.ConnTimeout = 5 * time.Second
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("keystore: open failed: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("keystore: ping failed: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("keystore connected")
	}

	return &PostgresStore{db: db, logger: cfg.Logger}, nil
}

// GetUser returns the user for an org, or ErrUserNotFound
func (s *PostgresStore) GetUser(ctx context.Context, orgID string) (*User, error) {
	const q = `
		SELECT org_id, address, email
		FROM users
		WHERE org_id = $1`

	var u User
	err := s.db.QueryRowContext(ctx, q, orgID).Scan(&u.OrgID, &u.Address, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: query user: %w", err)
	}
	return &u, nil
}

// LatestKey returns the most recently provisioned key record for an org
func (s *PostgresStore) LatestKey(ctx context.Context, orgID string) (*SigningKeyRecord, error) {
	const q = `
		SELECT org_id, account_address, private_key, init_code,
		       deferred_action_digest, activated
		FROM api_keys
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var rec SigningKeyRecord
	err := s.db.QueryRowContext(ctx, q, orgID).Scan(
		&rec.OrgID,
		&rec.AccountAddress,
		&rec.PrivateKey,
		&rec.InitCode,
		&rec.DeferredActionDigest,
		&rec.Activated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: query latest key: %w", err)
	}
	return &rec, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
