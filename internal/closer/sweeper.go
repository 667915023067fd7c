package closer

import (
	"context"
	"time"

	"salesroom-auction/utils"
)

// Sweeper periodically closes expired auctions, replacing an external cron.
type Sweeper struct {
	closer   *Closer
	interval time.Duration
}

// NewSweeper creates a Sweeper running CloseAll on the given interval
func NewSweeper(closer *Closer, interval time.Duration) *Sweeper {
	return &Sweeper{closer: closer, interval: interval}
}

// Run blocks until the context is cancelled, sweeping once per interval
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	utils.Info("auction sweeper started", map[string]any{"interval": s.interval.String()})

	for {
		select {
		case <-ctx.Done():
			utils.Info("auction sweeper stopped", nil)
			return
		case <-ticker.C:
			closed, err := s.closer.CloseAll(ctx)
			if err != nil {
				utils.Error("sweep failed", map[string]any{"error": err.Error()})
				continue
			}
			if closed > 0 {
				utils.Info("sweep closed expired auctions", map[string]any{"count": closed})
			}
		}
	}
}
