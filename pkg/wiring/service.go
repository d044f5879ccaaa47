// Package wiring composes the service: keystore, chain reader, bundler
// client, swarm aggregation and the HTTP API.
package wiring

import (
	"context"
	"fmt"
	"time"

	"github.com/gensyn-ai/rl-swarm/pkg/api"
	"github.com/gensyn-ai/rl-swarm/pkg/chain"
	"github.com/gensyn-ai/rl-swarm/pkg/config"
	"github.com/gensyn-ai/rl-swarm/pkg/keystore"
	"github.com/gensyn-ai/rl-swarm/pkg/swarm"
	"github.com/gensyn-ai/rl-swarm/pkg/userop"
	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// Service owns the wired components and their lifecycle
type Service struct {
	cfg    *config.Config
	logger *utils.Logger

	store     keystore.Store
	submitter *userop.Client
	apiServer *api.Server

	closers []func() error
}

// NewService builds all components from configuration
func NewService(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*Service, error) {
	s := &Service{cfg: cfg, logger: logger}

	store, err := s.buildKeystore(ctx)
	if err != nil {
		return nil, err
	}
	s.store = store

	backend, err := chain.Dial(ctx, cfg.Chain.ProviderURL)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error { backend.Close(); return nil })
	reader := chain.NewReader(backend, cfg.Chain.ContractAddress, logger)

	submitter, err := userop.NewClient(ctx,
		cfg.Chain.BundlerURL,
		cfg.Chain.ChainID,
		cfg.Chain.EntryPoint,
		cfg.Chain.ContractAddress,
		cfg.Chain.PaymasterPolicyID,
		logger)
	if err != nil {
		return nil, err
	}
	s.submitter = submitter
	s.closers = append(s.closers, func() error { submitter.Close(); return nil })

	httpConfig := utils.DefaultHTTPClientConfig()
	httpConfig.RequestTimeout = cfg.Offchain.RequestTimeout
	httpClient, err := utils.NewHTTPClient(httpConfig)
	if err != nil {
		return nil, fmt.Errorf("wiring: http client: %w", err)
	}
	offchain := swarm.NewClient(cfg.Offchain.BaseURL, httpClient, logger)
	swarmSvc := swarm.NewService(reader, offchain, logger)

	apiServer, err := api.NewServer(api.Dependencies{
		Config:    &cfg.API,
		Logger:    logger,
		Store:     store,
		Submitter: submitter,
		Swarm:     swarmSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("wiring: api server: %w", err)
	}
	s.apiServer = apiServer

	return s, nil
}

// buildKeystore selects the provisioning store. A DSN selects Postgres;
// without one (development only) the in-memory store serves.
func (s *Service) buildKeystore(ctx context.Context) (keystore.Store, error) {
	if s.cfg.Keystore.DSN == "" {
		s.logger.Warn("no keystore DSN configured, using in-memory store (development only)")
		return keystore.NewMemoryStore(), nil
	}

	store, err := keystore.NewPostgresStore(ctx, keystore.PostgresConfig{
		DSN:          s.cfg.Keystore.DSN,
		ConnTimeout:  s.cfg.Keystore.ConnTimeout,
		MaxOpenConns: s.cfg.Keystore.MaxOpenConns,
		MaxIdleConns: s.cfg.Keystore.MaxIdleConns,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wiring: keystore: %w", err)
	}
	s.closers = append(s.closers, store.Close)
	return store, nil
}

// Start starts the HTTP API
func (s *Service) Start(ctx context.Context) error {
	if err := s.apiServer.Start(ctx); err != nil {
		return fmt.Errorf("wiring: start api: %w", err)
	}
	s.logger.Info("service started",
		utils.ZapString("environment", s.cfg.Environment),
		utils.ZapString("listen_addr", s.cfg.API.ListenAddr))
	return nil
}

// Stop shuts components down in reverse construction order
func (s *Service) Stop() error {
	var firstErr error

	if err := s.apiServer.Stop(); err != nil {
		firstErr = err
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.logger.Info("service stopped")
	return firstErr
}

// StopWithTimeout stops the service, bounding the wait
func (s *Service) StopWithTimeout(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- s.Stop() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("wiring: stop timed out after %s", timeout)
	}
}
