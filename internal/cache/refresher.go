package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/containerd/errdefs"

	"github.com/opencomp/recordcache/internal/logger"
	"github.com/opencomp/recordcache/internal/metrics"
	"github.com/opencomp/recordcache/internal/records"
)

// Refresher is the single mutator of the view: a sequential loop that fetches
// the record list on a fixed cadence, publishes a fresh snapshot and persists
// it. One cycle completes before the next is scheduled, so there is never more
// than one fetch in flight and never two writers racing on the snapshot file.
type Refresher struct {
	view     *View
	store    Store
	fetcher  Fetcher
	interval time.Duration
}

// NewRefresher wires the refresher to its collaborators.
func NewRefresher(view *View, store Store, fetcher Fetcher, interval time.Duration) *Refresher {
	return &Refresher{view: view, store: store, fetcher: fetcher, interval: interval}
}

// Start initializes the cache and launches the refresh loop.
//
// If a persisted snapshot exists it is published immediately, stale but
// servable, and the first refresh is scheduled for whatever is left of the
// interval since that snapshot was taken. If none exists, a synchronous first
// fetch runs before Start returns; its failure is fatal because there is no
// fallback data at all. A persisted snapshot that cannot be decoded is also
// fatal: garbage is worse than no cache.
//
// The returned channel is closed once the loop has shut down after ctx is
// canceled.
func (r *Refresher) Start(ctx context.Context) (<-chan struct{}, error) {
	delay := r.interval

	snap, err := r.store.Read()
	switch {
	case err == nil:
		r.view.Publish(snap)
		metrics.RecordsTotal.Set(float64(len(snap.Records)))
		delay = nextDelay(r.interval, snap.UpdatedAt, time.Now())
		logger.WithComponent("refresh").Infof("serving %d persisted records from %s, next refresh in %v",
			len(snap.Records), snap.UpdatedAt.Format(time.RFC3339), delay)
	case errdefs.IsNotFound(err):
		logger.WithComponent("refresh").Info("no persisted snapshot, fetching before serving")
		if err := r.refresh(ctx); err != nil {
			return nil, fmt.Errorf("initial fetch with no persisted snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("load persisted snapshot: %w", err)
	}

	done := make(chan struct{})
	timer := time.NewTimer(delay)
	go func() {
		defer close(done)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("refresh").Info("refresher stopped")
				return
			case <-timer.C:
				// Failure keeps the stale snapshot published and retries on
				// the normal cadence; it is never fatal after startup.
				r.refresh(ctx)
				timer.Reset(r.interval)
			}
		}
	}()
	return done, nil
}

// refresh runs one fetch → derive → publish → persist cycle.
func (r *Refresher) refresh(ctx context.Context) error {
	start := time.Now()

	recs, err := r.fetcher.FetchRegionalRecords(ctx)
	if err != nil {
		metrics.RefreshFailures.Inc()
		logger.WithComponent("refresh").Errorf("refresh failed, keeping previous snapshot: %v", err)
		return err
	}

	snap := records.NewSnapshot(recs, time.Now())
	r.view.Publish(snap)

	metrics.RecordsTotal.Set(float64(len(snap.Records)))
	metrics.LastRefreshTS.Set(float64(snap.UpdatedAt.Unix()))
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	// The snapshot is already published and servable; losing durability for
	// one cycle is acceptable, losing availability is not.
	if err := r.store.Write(snap); err != nil {
		metrics.PersistFailures.Inc()
		logger.WithComponent("refresh").Errorf("persist failed, snapshot served from memory only: %v", err)
	}

	logger.WithComponent("refresh").Infof("refreshed %d records", len(recs))
	return nil
}

// nextDelay computes the startup delay before the first refresh: the nominal
// interval minus the time already elapsed since the last successful refresh,
// floored at zero. A restart shortly after a refresh does not re-fetch
// immediately.
func nextDelay(interval time.Duration, updatedAt, now time.Time) time.Duration {
	d := interval - now.Sub(updatedAt)
	if d < 0 {
		return 0
	}
	return d
}
