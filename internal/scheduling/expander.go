package scheduling

import (
	"fmt"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
)

// ExpandRule anchors a recurring rule's time-of-day window onto date (UTC) and
// walks it into fixed-duration candidate slots. The buffer is inserted between
// consecutive candidates, not only applied as a conflict-test margin, so slot
// N+1 starts at slot N's end plus bufferMin. A slot ending exactly at the
// rule's end is valid. The result is deterministic for identical inputs.
//
// Matching the rule's weekday against the date is the caller's job, as is
// validating durationMin against policy bounds; a duration outside
// [domain.MinDurationMinutes, domain.MaxDurationMinutes] is a programmer error
// and panics.
func ExpandRule(rule domain.AvailabilityRule, date time.Time, durationMin, bufferMin int) ([]Interval, error) {
	if durationMin < domain.MinDurationMinutes || durationMin > domain.MaxDurationMinutes {
		panic(fmt.Sprintf("scheduling: slot duration %d outside policy bounds", durationMin))
	}

	startTOD, err := parseTimeOfDay(rule.StartTime)
	if err != nil {
		return nil, domain.NewValidationError("start_time", err.Error())
	}
	endTOD, err := parseTimeOfDay(rule.EndTime)
	if err != nil {
		return nil, domain.NewValidationError("end_time", err.Error())
	}
	if endTOD <= startTOD {
		return nil, domain.NewValidationError("end_time", "must be after start_time")
	}

	year, month, day := date.UTC().Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	ruleStart := midnight.Add(startTOD)
	ruleEnd := midnight.Add(endTOD)

	duration := time.Duration(durationMin) * time.Minute
	step := duration
	if bufferMin > 0 {
		step += time.Duration(bufferMin) * time.Minute
	}

	var slots []Interval
	for slotStart := ruleStart; !slotStart.Add(duration).After(ruleEnd); slotStart = slotStart.Add(step) {
		slots = append(slots, Interval{Start: slotStart, End: slotStart.Add(duration)})
	}
	return slots, nil
}

// parseTimeOfDay parses "15:04" (seconds tolerated and ignored) into an offset
// from midnight.
func parseTimeOfDay(s string) (time.Duration, error) {
	if len(s) < 5 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	t, err := time.Parse("15:04", s[:5])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
