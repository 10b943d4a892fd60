// internal/directory/janitor.go
package directory

import (
	"context"
	"time"
)

// Rooms have no explicit teardown in the client flow; they are abandoned.
// The janitor reclaims them: any room whose LastActive is older than the
// TTL is deleted. Every successful mutation bumps LastActive, so only
// genuinely idle rooms expire.

// DefaultRoomTTL is how long an idle room survives before the janitor
// reclaims it.
const DefaultRoomTTL = 30 * time.Minute

// ExpireIdle removes rooms idle for longer than ttl and reports the count.
func (s *Service) ExpireIdle(ctx context.Context, ttl time.Duration) (int, error) {
	return s.store.DeleteIdleBefore(ctx, time.Now().Add(-ttl))
}

// RunJanitor sweeps expired rooms every interval until ctx is cancelled.
// Meant to be run as a goroutine from main.
func (s *Service) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireIdle(ctx, ttl)
			if err != nil {
				s.log.WithError(err).Warn("Room expiry sweep failed")
				continue
			}
			if n > 0 {
				s.log.WithField("expired", n).Info("Reclaimed idle rooms")
			}
		}
	}
}
