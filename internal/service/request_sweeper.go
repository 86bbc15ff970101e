package service

import (
	"context"
	"time"

	"github.com/slotline/slotline-api/pkg/events"
	"github.com/slotline/slotline-api/pkg/logger"
)

// RequestSweeper periodically marks stale pending requests expired so a
// lapsed hold never blocks real availability. The read path already ignores
// expired holds; the sweeper keeps the stored state honest.
type RequestSweeper struct {
	requests RequestStore
	bus      events.Publisher
	interval time.Duration
}

func NewRequestSweeper(requests RequestStore, bus events.Publisher, interval time.Duration) *RequestSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RequestSweeper{requests: requests, bus: bus, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *RequestSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RequestSweeper) sweep(ctx context.Context) {
	now := time.Now()
	count, err := s.requests.ExpireStale(ctx, now)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to expire stale requests", "error", err)
		return
	}
	if count == 0 {
		return
	}

	logger.InfoContext(ctx, "Expired stale booking requests", "count", count)
	if err := s.bus.Publish(ctx, events.RequestExpired, events.RequestExpiredEvent{
		Count:     count,
		ExpiredAt: now,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish expiry event", "error", err)
	}
}
