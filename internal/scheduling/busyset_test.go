package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
)

type fakeConfirmed struct {
	intervals []Interval
	err       error
}

func (f *fakeConfirmed) ListConfirmed(ctx context.Context, hostID int64, window Interval) ([]Interval, error) {
	return f.intervals, f.err
}

type fakePending struct {
	intervals []Interval
	err       error
}

func (f *fakePending) ListPendingNonExpired(ctx context.Context, hostID int64, window Interval) ([]Interval, error) {
	return f.intervals, f.err
}

type fakeProvider struct {
	name      string
	intervals []Interval
	err       error
	delay     time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GetBusyIntervals(ctx context.Context, hostID int64, window Interval) ([]Interval, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.intervals, f.err
}

func window() Interval {
	return Interval{Start: day, End: day.Add(24 * time.Hour)}
}

func TestBusySetUnionsAllSources(t *testing.T) {
	agg := NewAggregator(
		&fakeConfirmed{intervals: []Interval{iv(10, 0, 10, 30)}},
		&fakePending{intervals: []Interval{iv(11, 0, 11, 30)}},
		[]CalendarProvider{
			&fakeProvider{name: "google", intervals: []Interval{iv(13, 0, 14, 0)}},
			&fakeProvider{name: "outlook", intervals: []Interval{iv(15, 0, 15, 30)}},
		},
		time.Second,
	)

	busy, err := agg.BusySet(context.Background(), 1, window())
	if err != nil {
		t.Fatalf("BusySet: %v", err)
	}
	if len(busy) != 4 {
		t.Fatalf("got %d busy intervals, want 4: %v", len(busy), busy)
	}
}

func TestBusySetBookingStoreFailureIsHard(t *testing.T) {
	agg := NewAggregator(
		&fakeConfirmed{err: errors.New("connection refused")},
		&fakePending{},
		nil,
		time.Second,
	)

	_, err := agg.BusySet(context.Background(), 1, window())
	if !domain.IsDependency(err) {
		t.Fatalf("got %v, want dependency error", err)
	}
}

func TestBusySetRequestStoreFailureIsHard(t *testing.T) {
	agg := NewAggregator(
		&fakeConfirmed{},
		&fakePending{err: errors.New("connection refused")},
		nil,
		time.Second,
	)

	_, err := agg.BusySet(context.Background(), 1, window())
	if !domain.IsDependency(err) {
		t.Fatalf("got %v, want dependency error", err)
	}
}

func TestBusySetFailingProviderIsSkipped(t *testing.T) {
	agg := NewAggregator(
		&fakeConfirmed{intervals: []Interval{iv(10, 0, 10, 30)}},
		&fakePending{},
		[]CalendarProvider{
			&fakeProvider{name: "google", err: errors.New("token revoked")},
			&fakeProvider{name: "outlook", intervals: []Interval{iv(15, 0, 15, 30)}},
		},
		time.Second,
	)

	busy, err := agg.BusySet(context.Background(), 1, window())
	if err != nil {
		t.Fatalf("BusySet: %v", err)
	}
	if len(busy) != 2 {
		t.Fatalf("got %d busy intervals, want 2 (failed provider skipped): %v", len(busy), busy)
	}
}

func TestBusySetHangingProviderIsBounded(t *testing.T) {
	agg := NewAggregator(
		&fakeConfirmed{},
		&fakePending{},
		[]CalendarProvider{
			&fakeProvider{name: "google", delay: 5 * time.Second, intervals: []Interval{iv(9, 0, 10, 0)}},
			&fakeProvider{name: "outlook", intervals: []Interval{iv(15, 0, 15, 30)}},
		},
		50*time.Millisecond,
	)

	start := time.Now()
	busy, err := agg.BusySet(context.Background(), 1, window())
	if err != nil {
		t.Fatalf("BusySet: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("aggregation took %v, hanging provider was not bounded", elapsed)
	}
	if len(busy) != 1 {
		t.Fatalf("got %d busy intervals, want 1 (timed-out provider skipped): %v", len(busy), busy)
	}
}
