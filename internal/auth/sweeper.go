package auth

import (
	"context"
	"time"

	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/metrics"
	"github.com/franz/media-indexer/internal/util"
)

// DefaultSweepInterval is how often expired rows are purged
const DefaultSweepInterval = 4 * time.Hour

// Sweeper periodically deletes expired tokens and authorization grants.
// A failed cycle is logged and the next one runs anyway.
type Sweeper struct {
	store    *catalog.Store
	interval time.Duration
	metrics  *metrics.Metrics
}

// NewSweeper creates a sweeper. interval <= 0 selects the default.
func NewSweeper(store *catalog.Store, interval time.Duration, m *metrics.Metrics) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: store, interval: interval, metrics: m}
}

// Run sweeps on the configured interval until ctx is cancelled. One sweep
// executes immediately on startup.
func (sw *Sweeper) Run(ctx context.Context) {
	sw.Sweep()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.Sweep()
		}
	}
}

// Sweep removes every token and grant whose expiry has passed. Token
// validation may delete the same rows concurrently; both sides only delete
// on an expiry predicate, so the overlap is harmless.
func (sw *Sweeper) Sweep() {
	now := time.Now()

	grants, err := sw.sweepGrants(now)
	if err != nil {
		util.ErrorLog("sweep: failed to delete expired grants: %v", err)
	}

	tokens, err := sw.store.DeleteExpiredTokens(now)
	if err != nil {
		util.ErrorLog("sweep: failed to delete expired tokens: %v", err)
	}

	if grants > 0 || tokens > 0 {
		util.InfoLog("sweep: removed %d expired grants, %d expired tokens", grants, tokens)
	}
	if sw.metrics != nil {
		sw.metrics.SweepDeletions.Add(float64(grants + tokens))
	}
}

// sweepGrants deletes expired grants one by one. Stored expiries mix
// RFC3339 and legacy naive strings which do not compare lexically against
// a single bound, so each row goes through the same tolerant parse the
// authorization check uses. Unparsable rows are left for an operator.
func (sw *Sweeper) sweepGrants(now time.Time) (int64, error) {
	grants, err := sw.store.ListGrants()
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, g := range grants {
		expiry, ok := parseExpiry(g.Expiry)
		if !ok {
			util.WarnLog("sweep: grant for user %d has unreadable expiry %q", g.UserID, g.Expiry)
			continue
		}
		if expiry.After(now.UTC()) {
			continue
		}
		if err := sw.store.DeleteGrant(g.UserID); err != nil {
			util.WarnLog("sweep: failed to delete grant for user %d: %v", g.UserID, err)
			continue
		}
		removed++
	}
	return removed, nil
}
