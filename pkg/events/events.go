package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/slotline/slotline-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopPublisher discards events. Used when NATS is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// Event subjects
const (
	BookingCreated     = "booking.created"
	BookingCancelled   = "booking.cancelled"
	BookingRescheduled = "booking.rescheduled"
	RequestCreated     = "request.created"
	RequestConfirmed   = "request.confirmed"
	RequestCancelled   = "request.cancelled"
	RequestExpired     = "request.expired"
)

// Event payloads
type BookingCreatedEvent struct {
	BookingID     int64     `json:"booking_id"`
	HostID        int64     `json:"host_id"`
	CustomerEmail string    `json:"customer_email"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
}

type BookingCancelledEvent struct {
	BookingID   int64     `json:"booking_id"`
	HostID      int64     `json:"host_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type BookingRescheduledEvent struct {
	BookingID int64     `json:"booking_id"`
	HostID    int64     `json:"host_id"`
	OldStart  time.Time `json:"old_start"`
	NewStart  time.Time `json:"new_start"`
	NewEnd    time.Time `json:"new_end"`
}

type RequestCreatedEvent struct {
	RequestID     int64     `json:"request_id"`
	HostID        int64     `json:"host_id"`
	CustomerEmail string    `json:"customer_email"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type RequestConfirmedEvent struct {
	RequestID int64 `json:"request_id"`
	BookingID int64 `json:"booking_id"`
	HostID    int64 `json:"host_id"`
}

type RequestExpiredEvent struct {
	Count     int64     `json:"count"`
	ExpiredAt time.Time `json:"expired_at"`
}
