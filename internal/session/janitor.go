package session

import (
	"context"
	"time"

	"medreport-backend/internal/shared/telemetry"
)

// Purger is the part of Store the janitor needs.
type Purger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartJanitor purges sessions idle for longer than ttl every interval until
// ctx is canceled. The returned channel closes when the loop exits.
func StartJanitor(ctx context.Context, store Purger, ttl, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if ttl <= 0 || interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				purgeOnce(ctx, store, now.Add(-ttl))
			}
		}
	}()
	return done
}

func purgeOnce(ctx context.Context, store Purger, cutoff time.Time) {
	purged, err := store.PurgeExpired(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			telemetry.Warn("session.purge_failed", map[string]any{"error": err.Error()})
		}
		return
	}
	if purged > 0 {
		telemetry.Info("session.purged", map[string]any{"count": purged, "cutoff": cutoff.UTC()})
	}
}
