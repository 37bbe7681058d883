package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunReaper calls ReapAll every interval until ctx is done. Failures are logged and the
// next tick retries.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		return
	}
	if now == nil {
		now = time.Now
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("image reaper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("image reaper stopped")
			return
		case <-ticker.C:
			if _, err := s.ReapAll(ctx, now()); err != nil && ctx.Err() == nil {
				s.logger.Error("image reap failed", zap.Error(err))
			}
		}
	}
}
