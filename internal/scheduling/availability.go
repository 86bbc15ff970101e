package scheduling

import (
	"context"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
)

// RuleStore yields a host's recurring rules for one weekday.
type RuleStore interface {
	ListRules(ctx context.Context, hostID int64, dayOfWeek time.Weekday) ([]domain.AvailabilityRule, error)
}

// SettingsStore yields per-host scheduling policy.
type SettingsStore interface {
	GetHostSettings(ctx context.Context, hostID int64) (domain.HostSettings, error)
}

// Service is the read-path orchestrator: it sequences rule loading, busy-set
// aggregation, expansion and filtering into the public slot list. It holds no
// mutable state, so independent requests run freely in parallel.
type Service struct {
	rules    RuleStore
	settings SettingsStore
	busy     *Aggregator
	now      func() time.Time
}

func NewService(rules RuleStore, settings SettingsStore, busy *Aggregator) *Service {
	return &Service{
		rules:    rules,
		settings: settings,
		busy:     busy,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests use this to pin "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AvailableSlots computes the bookable slots for a host on one date.
// durationMin <= 0 falls back to the host's default meeting duration, then to
// the global default. A date in the past or beyond the booking horizon is a
// ValidationError; a host with no rules for that weekday yields an empty list,
// not an error.
func (s *Service) AvailableSlots(ctx context.Context, hostID int64, date time.Time, durationMin int) ([]Interval, error) {
	settings, err := s.settings.GetHostSettings(ctx, hostID)
	if err != nil {
		return nil, domain.NewDependencyError("settings store", err)
	}

	day := truncateToDay(date)
	if err := s.validateDate(day, settings); err != nil {
		return nil, err
	}

	durationMin = resolveDuration(durationMin, settings)
	if durationMin < domain.MinDurationMinutes || durationMin > domain.MaxDurationMinutes {
		return nil, domain.NewValidationError("duration", "outside allowed range")
	}

	rules, err := s.rules.ListRules(ctx, hostID, day.Weekday())
	if err != nil {
		return nil, domain.NewDependencyError("rule store", err)
	}
	if len(rules) == 0 {
		return []Interval{}, nil
	}

	window := Interval{Start: day, End: day.Add(24 * time.Hour)}
	blocked, err := s.busy.BusySet(ctx, hostID, window)
	if err != nil {
		return nil, err
	}

	var slots []Interval
	for _, rule := range rules {
		buffer := effectiveBuffer(settings, rule)
		candidates, err := ExpandRule(rule, day, durationMin, buffer)
		if err != nil {
			return nil, err
		}
		slots = append(slots, FilterSlots(candidates, blocked, buffer)...)
	}

	SortByStart(slots)
	return slots, nil
}

func (s *Service) validateDate(day time.Time, settings domain.HostSettings) error {
	today := truncateToDay(s.now())
	if day.Before(today) {
		return domain.NewValidationError("date", "date is in the past")
	}

	horizon := settings.BookingHorizonDays
	if horizon <= 0 {
		horizon = domain.DefaultHorizonDays
	}
	if day.After(today.AddDate(0, 0, horizon)) {
		return domain.NewValidationError("date", "date is beyond the booking horizon")
	}
	return nil
}

// resolveDuration walks the fallback chain: explicit request, host default,
// global default.
func resolveDuration(requested int, settings domain.HostSettings) int {
	if requested > 0 {
		return requested
	}
	if settings.DefaultMeetingDurationMinutes > 0 {
		return settings.DefaultMeetingDurationMinutes
	}
	return domain.DefaultDurationMinutes
}

// effectiveBuffer prefers the host-level buffer, then the rule's own buffer.
func effectiveBuffer(settings domain.HostSettings, rule domain.AvailabilityRule) int {
	if settings.BufferMinutes > 0 {
		return settings.BufferMinutes
	}
	if rule.BufferMinutes > 0 {
		return rule.BufferMinutes
	}
	return 0
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
