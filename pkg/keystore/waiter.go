package keystore

import (
	"context"
	"errors"
	"time"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// Activation polling constants. Key issuance races the first reward
// submission, so the waiter re-checks a bounded number of times instead of
// failing on the first inactive read.
const (
	ActivationPollInterval = 1 * time.Second
	ActivationMaxAttempts  = 5 // 1 initial read + up to 4 re-checks
)

// Waiter polls the store until a signing key is usable
type Waiter struct {
	store  Store
	logger *utils.Logger

	// sleep is injectable for tests; defaults to a context-aware timer
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWaiter creates a Waiter over the given store
func NewWaiter(store Store, logger *utils.Logger) *Waiter {
	return &Waiter{
		store:  store,
		logger: logger,
		sleep:  sleepContext,
	}
}

// WithSleep overrides the inter-poll sleep. Tests use it to avoid real
// timers.
func (w *Waiter) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Waiter {
	w.sleep = sleep
	return w
}

// Wait returns the latest signing key record for the org once it is
// activated. It performs at most ActivationMaxAttempts reads with
// ActivationPollInterval between them. A missing record fails immediately
// with ErrKeyNotFound without consuming the retry budget; a record that
// never activates fails with ErrKeyNotReady.
func (w *Waiter) Wait(ctx context.Context, orgID string) (*SigningKeyRecord, error) {
	for attempt := 1; ; attempt++ {
		rec, err := w.store.LatestKey(ctx, orgID)
		if errors.Is(err, ErrKeyNotFound) {
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		if rec.Activated {
			if w.logger != nil && attempt > 1 {
				w.logger.InfoContext(ctx, "signing key activated",
					utils.ZapString("org_id", orgID),
					utils.ZapInt("attempts", attempt))
			}
			return rec, nil
		}
		if attempt == ActivationMaxAttempts {
			if w.logger != nil {
				w.logger.WarnContext(ctx, "signing key never activated",
					utils.ZapString("org_id", orgID),
					utils.ZapInt("attempts", attempt))
			}
			return nil, ErrKeyNotReady
		}
		if err := w.sleep(ctx, ActivationPollInterval); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
