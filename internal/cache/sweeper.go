package cache

import (
	"context"
	"time"
)

// Start runs the expiry sweep every SweepInterval until ctx is cancelled.
// It returns immediately when expiry is disabled.
func (c *TrajectoryCache) Start(ctx context.Context) {
	if c.config.TTL <= 0 || c.config.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache sweeper stopped")
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
