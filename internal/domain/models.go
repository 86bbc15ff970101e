package domain

import "time"

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestConfirmed RequestStatus = "confirmed"
	RequestCancelled RequestStatus = "cancelled"
	RequestExpired   RequestStatus = "expired"
)

// IsTerminal reports whether a request status allows no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestConfirmed || s == RequestCancelled || s == RequestExpired
}

type Host struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AvailabilityRule is one recurring weekly availability window owned by a host.
// StartTime and EndTime are times of day in "15:04" form; all instants in the
// system are UTC.
type AvailabilityRule struct {
	ID            int64     `json:"id"`
	HostID        int64     `json:"host_id"`
	DayOfWeek     int       `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	BufferMinutes int       `json:"buffer_minutes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Booking struct {
	ID            int64         `json:"id"`
	HostID        int64         `json:"host_id"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Status        BookingStatus `json:"status"`
	ManageToken   string        `json:"manage_token,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// BookingRequest is a reservation hold awaiting email confirmation. Only
// pending requests whose ExpiresAt is in the future block availability.
type BookingRequest struct {
	ID                int64         `json:"id"`
	HostID            int64         `json:"host_id"`
	CustomerName      string        `json:"customer_name"`
	CustomerEmail     string        `json:"customer_email"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	Status            RequestStatus `json:"status"`
	ConfirmationToken string        `json:"-"`
	ExpiresAt         time.Time     `json:"expires_at"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Expired reports whether the hold has lapsed relative to now.
func (r *BookingRequest) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// HostSettings carries per-host scheduling policy. BufferMinutes of zero means
// "not set"; slot filtering then falls back to the rule's own buffer.
type HostSettings struct {
	HostID                        int64 `json:"host_id"`
	BookingHorizonDays            int   `json:"booking_horizon_days"`
	DefaultMeetingDurationMinutes int   `json:"default_meeting_duration_minutes"`
	BufferMinutes                 int   `json:"buffer_minutes"`
}

// Scheduling policy bounds shared by the read and write paths.
const (
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 240
	DefaultDurationMinutes = 60
	DefaultHorizonDays     = 60
)
