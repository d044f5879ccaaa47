// Package api serves the dashboard HTTP surface: peer registration and
// reward submission through the bundler, plus leaderboard, round/stage
// and gossip reads.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gensyn-ai/rl-swarm/pkg/config"
	"github.com/gensyn-ai/rl-swarm/pkg/keystore"
	"github.com/gensyn-ai/rl-swarm/pkg/swarm"
	"github.com/gensyn-ai/rl-swarm/pkg/userop"
	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// Submitter submits signed user operations to the bundler
type Submitter interface {
	SendUserOperation(ctx context.Context, acct *userop.Account, callData []byte) (common.Hash, error)
}

// SwarmService aggregates chain and off-chain swarm reads
type SwarmService interface {
	Leaderboard(ctx context.Context) (*swarm.LeaderboardResponse, error)
	Search(ctx context.Context, query string) (*swarm.SearchResult, error)
	Gossip(ctx context.Context, since int64) (*swarm.GossipResponse, error)
	RoundAndStage(ctx context.Context) (round, stage uint64, err error)
}

// Server provides the dashboard HTTP API
type Server struct {
	config     *config.APIConfig
	logger     *utils.Logger
	httpServer *http.Server

	store     keystore.Store
	waiter    *keystore.Waiter
	submitter Submitter
	swarm     SwarmService

	rateLimiter *RateLimiter
	sem         chan struct{}

	running   atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dependencies holds server dependencies
type Dependencies struct {
	Config    *config.APIConfig
	Logger    *utils.Logger
	Store     keystore.Store
	Waiter    *keystore.Waiter
	Submitter Submitter
	Swarm     SwarmService
}

// NewServer creates a new API server
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Store == nil {
		return nil, errors.New("keystore is required")
	}
	if deps.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if deps.Swarm == nil {
		return nil, errors.New("swarm service is required")
	}
	if deps.Waiter == nil {
		deps.Waiter = keystore.NewWaiter(deps.Store, deps.Logger)
	}

	s := &Server{
		config:    deps.Config,
		logger:    deps.Logger,
		store:     deps.Store,
		waiter:    deps.Waiter,
		submitter: deps.Submitter,
		swarm:     deps.Swarm,
	}

	if deps.Config.RateLimitEnabled {
		s.rateLimiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: deps.Config.RateLimitPerMinute,
			Burst:             deps.Config.RateLimitBurst,
			Logger:            deps.Logger,
		})
	}

	if deps.Config.MaxConcurrentReqs > 0 {
		s.sem = make(chan struct{}, deps.Config.MaxConcurrentReqs)
	}

	s.httpServer = &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.setupRouter(),
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start starts the API server
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", utils.ZapError(err))
		}
	}()

	s.logger.Info("API server started",
		utils.ZapString("addr", s.config.ListenAddr),
		utils.ZapString("base_path", s.config.BasePath),
		utils.ZapBool("rate_limit_enabled", s.config.RateLimitEnabled))

	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop() error {
	var stopErr error

	s.closeOnce.Do(func() {
		if !s.running.Load() {
			return
		}

		s.logger.Info("stopping API server...")

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", utils.ZapError(err))
			stopErr = fmt.Errorf("shutdown: %w", err)
		}

		s.wg.Wait()
		s.running.Store(false)

		s.logger.Info("API server stopped")
	})

	return stopErr
}

// IsRunning returns true if the server is running
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// GetMetrics returns server metrics
func (s *Server) GetMetrics() map[string]interface{} {
	metrics := map[string]interface{}{
		"running":     s.running.Load(),
		"listen_addr": s.config.ListenAddr,
	}
	if s.rateLimiter != nil {
		metrics["rate_limiter"] = s.rateLimiter.GetMetrics()
	}
	return metrics
}
