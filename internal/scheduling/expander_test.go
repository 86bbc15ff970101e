package scheduling

import (
	"testing"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
)

func rule(start, end string, buffer int) domain.AvailabilityRule {
	return domain.AvailabilityRule{
		HostID:        1,
		DayOfWeek:     int(day.Weekday()),
		StartTime:     start,
		EndTime:       end,
		BufferMinutes: buffer,
	}
}

func TestExpandRuleFullWorkday(t *testing.T) {
	slots, err := ExpandRule(rule("09:00", "17:00", 0), day, 60, 0)
	if err != nil {
		t.Fatalf("ExpandRule: %v", err)
	}

	if len(slots) != 8 {
		t.Fatalf("got %d slots, want 8", len(slots))
	}
	if slots[0] != iv(9, 0, 10, 0) {
		t.Errorf("first slot = %v, want [09:00, 10:00)", slots[0])
	}
	// A slot ending exactly at the rule end is valid.
	if slots[7] != iv(16, 0, 17, 0) {
		t.Errorf("last slot = %v, want [16:00, 17:00)", slots[7])
	}
}

func TestExpandRuleBufferSpacing(t *testing.T) {
	slots, err := ExpandRule(rule("09:00", "17:00", 0), day, 60, 15)
	if err != nil {
		t.Fatalf("ExpandRule: %v", err)
	}

	if len(slots) >= 8 {
		t.Fatalf("got %d slots, want fewer than 8 with buffer", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		wantStart := slots[i-1].End.Add(15 * time.Minute)
		if !slots[i].Start.Equal(wantStart) {
			t.Errorf("slot %d starts at %v, want previous end + 15m (%v)", i, slots[i].Start, wantStart)
		}
	}
}

func TestExpandRuleDeterministic(t *testing.T) {
	first, err := ExpandRule(rule("09:00", "12:30", 10), day, 45, 5)
	if err != nil {
		t.Fatalf("ExpandRule: %v", err)
	}
	second, err := ExpandRule(rule("09:00", "12:30", 10), day, 45, 5)
	if err != nil {
		t.Fatalf("ExpandRule: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("slot %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestExpandRuleWindowTooShort(t *testing.T) {
	slots, err := ExpandRule(rule("09:00", "09:30", 0), day, 60, 0)
	if err != nil {
		t.Fatalf("ExpandRule: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("got %d slots, want 0 when duration exceeds rule window", len(slots))
	}
}

func TestExpandRuleMalformedTimes(t *testing.T) {
	if _, err := ExpandRule(rule("9am", "17:00", 0), day, 60, 0); !domain.IsValidation(err) {
		t.Errorf("malformed start: got %v, want validation error", err)
	}
	if _, err := ExpandRule(rule("17:00", "09:00", 0), day, 60, 0); !domain.IsValidation(err) {
		t.Errorf("inverted window: got %v, want validation error", err)
	}
	// Seconds in the stored value are tolerated.
	if _, err := ExpandRule(rule("09:00:00", "17:00:00", 0), day, 60, 0); err != nil {
		t.Errorf("HH:MM:SS input: unexpected error %v", err)
	}
}

func TestExpandRuleDurationBoundsPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-bounds duration")
		}
	}()
	_, _ = ExpandRule(rule("09:00", "17:00", 0), day, 5, 0)
}
