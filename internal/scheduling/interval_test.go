package scheduling

import (
	"testing"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
)

var day = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC) // a Monday

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func iv(startH, startM, endH, endM int) Interval {
	return Interval{Start: at(startH, startM), End: at(endH, endM)}
}

func TestNewIntervalRejectsDegenerate(t *testing.T) {
	if _, err := NewInterval(at(10, 0), at(10, 0)); !domain.IsValidation(err) {
		t.Errorf("zero-length interval: got %v, want validation error", err)
	}
	if _, err := NewInterval(at(11, 0), at(10, 0)); !domain.IsValidation(err) {
		t.Errorf("inverted interval: got %v, want validation error", err)
	}
	if _, err := NewInterval(at(10, 0), at(11, 0)); err != nil {
		t.Errorf("valid interval: unexpected error %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"adjacent is not overlap", iv(0, 0, 1, 0), iv(1, 0, 2, 0), false},
		{"disjoint", iv(0, 0, 1, 0), iv(3, 0, 4, 0), false},
		{"partial overlap", iv(0, 0, 2, 0), iv(1, 0, 3, 0), true},
		{"strict containment", iv(0, 0, 2, 0), iv(0, 30, 1, 0), true},
		{"identical", iv(9, 0, 10, 0), iv(9, 0, 10, 0), true},
		{"single shared instant at boundary", iv(9, 0, 10, 0), iv(10, 0, 11, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps(b, a) = %v, want %v (symmetry)", got, tt.want)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	base := iv(10, 0, 11, 0)

	got := base.Expand(15)
	if !got.Start.Equal(at(9, 45)) || !got.End.Equal(at(11, 15)) {
		t.Errorf("Expand(15) = %v, want [09:45, 11:15)", got)
	}

	if got := base.Expand(0); got != base {
		t.Errorf("Expand(0) = %v, want unchanged", got)
	}
	if got := base.Expand(-5); got != base {
		t.Errorf("Expand(-5) = %v, want unchanged", got)
	}
}

func TestSortByStartIsStable(t *testing.T) {
	// Two intervals share a start; stability keeps them in insertion order.
	first := iv(9, 0, 10, 0)
	second := iv(9, 0, 9, 30)
	intervals := []Interval{iv(12, 0, 13, 0), first, second, iv(8, 0, 9, 0)}

	SortByStart(intervals)

	want := []Interval{iv(8, 0, 9, 0), first, second, iv(12, 0, 13, 0)}
	for i := range want {
		if intervals[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v", i, intervals[i], want[i])
		}
	}
}
