package scheduling

import (
	"sort"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
)

// Interval is a half-open time range [Start, End). Every busy period, candidate
// slot and booking window in the engine is expressed as one of these.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval validates and builds an interval. Zero-length and inverted
// ranges are rejected.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, domain.NewValidationError("interval", "end must be after start")
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps is the single overlap predicate used everywhere: strict half-open
// comparison, so adjacency (a.End == b.Start) is not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Expand widens the interval by minutes on both sides. Used to apply buffer
// time around a candidate slot before testing it against busy intervals.
// Zero or negative minutes is a no-op.
func (iv Interval) Expand(minutes int) Interval {
	if minutes <= 0 {
		return iv
	}
	d := time.Duration(minutes) * time.Minute
	return Interval{Start: iv.Start.Add(-d), End: iv.End.Add(d)}
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// SortByStart sorts intervals ascending by start in place. The sort is stable:
// ties keep insertion order, which keeps merged slot output deterministic.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
}
