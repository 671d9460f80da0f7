// Package stoplist enforces TPP access revocation before any authorisation
// work is attempted.
package stoplist

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/obs"
	"github.com/adorsys/xs2a-consent-engine/internal/repository"
)

// cacheTTL bounds how long a lookup result may be served without consulting
// the shared store. The store stays the system of record; the cache only
// shaves repeated reads within one instance's latency budget.
const cacheTTL = 30 * time.Second

// Gate answers "may this TPP proceed" against the shared stop-list store,
// with a short-lived per-instance lookup cache.
type Gate struct {
	repo repository.StopListRepository
	log  *zap.Logger
	now  func() time.Time

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

type cacheKey struct {
	tpp      string
	instance string
}

type cacheEntry struct {
	fetchedAt time.Time
}

// NewGate constructs the gate over the shared store.
func NewGate(repo repository.StopListRepository, log *zap.Logger) *Gate {
	return &Gate{repo: repo, log: log, now: time.Now, cache: make(map[cacheKey]cacheEntry)}
}

// IsBlocked reports whether the TPP is currently blocked on this instance.
// A lapsed time-bounded block counts as not blocked without an explicit
// unblock. Store errors propagate: blocking is security relevant, so the
// gate never fails open on infrastructure trouble.
func (g *Gate) IsBlocked(ctx context.Context, tppAuthorisationNumber, instanceID string) (bool, error) {
	key := cacheKey{tpp: tppAuthorisationNumber, instance: instanceID}
	now := g.now()

	// Only negative results are cached: a cached block could outlive its
	// lapse, and over-blocking from stale data is not acceptable either.
	g.mu.Lock()
	if e, ok := g.cache[key]; ok && now.Sub(e.fetchedAt) < cacheTTL {
		g.mu.Unlock()
		obs.ObserveStopListDecision(false)
		return false, nil
	}
	g.mu.Unlock()

	blocked := false
	rec, err := g.repo.Get(ctx, tppAuthorisationNumber, instanceID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		// absence means "not blocked"
	case err != nil:
		return false, err
	default:
		blocked = rec.IsActive(now)
	}

	if !blocked {
		g.mu.Lock()
		g.cache[key] = cacheEntry{fetchedAt: now}
		g.mu.Unlock()
	}

	obs.ObserveStopListDecision(blocked)
	return blocked, nil
}

// Block puts the TPP on the stop list. A nil lockPeriod blocks indefinitely;
// otherwise the block lapses lazily after now + lockPeriod.
func (g *Gate) Block(ctx context.Context, tppAuthorisationNumber, instanceID string, lockPeriod *time.Duration) error {
	var until *time.Time
	if lockPeriod != nil {
		t := g.now().Add(*lockPeriod)
		until = &t
	}
	if err := g.repo.Block(ctx, tppAuthorisationNumber, instanceID, until); err != nil {
		return err
	}
	g.invalidate(tppAuthorisationNumber, instanceID)
	g.log.Info("tpp blocked",
		zap.String("tpp", tppAuthorisationNumber),
		zap.String("instance", instanceID),
		zap.Bool("indefinite", until == nil),
	)
	return nil
}

// Unblock lifts a block. Returns false if no record existed.
func (g *Gate) Unblock(ctx context.Context, tppAuthorisationNumber, instanceID string) (bool, error) {
	existed, err := g.repo.Unblock(ctx, tppAuthorisationNumber, instanceID)
	if err != nil {
		return false, err
	}
	g.invalidate(tppAuthorisationNumber, instanceID)
	if existed {
		g.log.Info("tpp unblocked",
			zap.String("tpp", tppAuthorisationNumber),
			zap.String("instance", instanceID),
		)
	}
	return existed, nil
}

func (g *Gate) invalidate(tpp, instance string) {
	g.mu.Lock()
	delete(g.cache, cacheKey{tpp: tpp, instance: instance})
	g.mu.Unlock()
}
