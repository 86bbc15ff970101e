package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/pkg/logger"
)

// ConfirmedLister yields the intervals of confirmed bookings intersecting a
// window. It is an authoritative source: failures abort aggregation.
type ConfirmedLister interface {
	ListConfirmed(ctx context.Context, hostID int64, window Interval) ([]Interval, error)
}

// PendingLister yields the intervals of pending, non-expired booking requests
// intersecting a window. Also authoritative.
type PendingLister interface {
	ListPendingNonExpired(ctx context.Context, hostID int64, window Interval) ([]Interval, error)
}

// CalendarProvider is one external calendar a host has connected. Each
// provider is independently callable and independently failable.
type CalendarProvider interface {
	Name() string
	GetBusyIntervals(ctx context.Context, hostID int64, window Interval) ([]Interval, error)
}

// Aggregator merges confirmed bookings, pending holds and external-calendar
// busy times into one blocked set for a window. Overlapping entries from
// different sources are not collapsed; downstream filtering treats the set as
// a union, so redundancy is harmless.
type Aggregator struct {
	bookings        ConfirmedLister
	requests        PendingLister
	providers       []CalendarProvider
	providerTimeout time.Duration
}

func NewAggregator(bookings ConfirmedLister, requests PendingLister, providers []CalendarProvider, providerTimeout time.Duration) *Aggregator {
	if providerTimeout <= 0 {
		providerTimeout = 5 * time.Second
	}
	return &Aggregator{
		bookings:        bookings,
		requests:        requests,
		providers:       providers,
		providerTimeout: providerTimeout,
	}
}

// BusySet builds the blocked set for one host and window.
//
// Bookings and requests are hard sources: an error there propagates as a
// DependencyError. Calendar providers are best-effort: they are queried
// concurrently, each bounded by the per-provider timeout, and a failing
// provider is logged and skipped without affecting the others.
func (a *Aggregator) BusySet(ctx context.Context, hostID int64, window Interval) ([]Interval, error) {
	booked, err := a.bookings.ListConfirmed(ctx, hostID, window)
	if err != nil {
		return nil, domain.NewDependencyError("booking store", err)
	}

	pending, err := a.requests.ListPendingNonExpired(ctx, hostID, window)
	if err != nil {
		return nil, domain.NewDependencyError("request store", err)
	}

	busy := make([]Interval, 0, len(booked)+len(pending))
	busy = append(busy, booked...)
	busy = append(busy, pending...)
	busy = append(busy, a.externalBusy(ctx, hostID, window)...)
	return busy, nil
}

// externalBusy fans out to every provider and waits for all of them to settle.
func (a *Aggregator) externalBusy(ctx context.Context, hostID int64, window Interval) []Interval {
	if len(a.providers) == 0 {
		return nil
	}

	results := make([][]Interval, len(a.providers))
	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p CalendarProvider) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
			defer cancel()

			intervals, err := p.GetBusyIntervals(pctx, hostID, window)
			if err != nil {
				logger.WarnContext(ctx, "calendar provider lookup failed, skipping",
					"provider", p.Name(),
					"host_id", hostID,
					"error", err,
				)
				return
			}
			results[i] = intervals
		}(i, p)
	}
	wg.Wait()

	var busy []Interval
	for _, r := range results {
		busy = append(busy, r...)
	}
	return busy
}
