package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/platform/calendar"
	"github.com/slotline/slotline-api/internal/platform/mailer"
	"github.com/slotline/slotline-api/internal/scheduling"
	"github.com/slotline/slotline-api/pkg/events"
	"github.com/slotline/slotline-api/pkg/logger"
)

// BookingTx is the per-host atomic unit the write path runs in. The overlap
// read and the subsequent insert or update are indivisible with respect to
// other writers targeting the same host.
type BookingTx interface {
	// FindOverlapping reports whether any confirmed booking for the host,
	// other than excludeBookingID (0 for none), strictly overlaps the
	// interval. No buffer applies here: buffer is a slot-discovery concern.
	FindOverlapping(ctx context.Context, hostID int64, iv scheduling.Interval, excludeBookingID int64) (bool, error)
	CreateConfirmed(ctx context.Context, b *domain.Booking) error
	UpdateBookingTimes(ctx context.Context, bookingID int64, iv scheduling.Interval) error
	CancelBooking(ctx context.Context, bookingID int64) (bool, error)
	// TransitionRequest moves a request from one status to another, returning
	// false when the request was not in the expected source status. Terminal
	// states never transition back.
	TransitionRequest(ctx context.Context, requestID int64, from, to domain.RequestStatus) (bool, error)
}

// BookingStore is the persisted booking collaborator. WithHostTx serializes
// the callback against all other writers for the same host; conflict scope is
// always a single host's interval set, so there is no cross-host locking.
type BookingStore interface {
	WithHostTx(ctx context.Context, hostID int64, fn func(tx BookingTx) error) error
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	GetBookingByToken(ctx context.Context, id int64, manageToken string) (*domain.Booking, error)
	ListBookings(ctx context.Context, hostID int64, limit, offset int) ([]domain.Booking, error)
}

// RequestStore is the persisted reservation-hold collaborator.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *domain.BookingRequest) error
	GetRequestByToken(ctx context.Context, confirmationToken string) (*domain.BookingRequest, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// BookingService owns the booking write path: request creation, confirmation,
// direct host bookings, reschedule and cancellation. Every mutation runs the
// conflict guard inside the store's per-host transaction immediately before
// commit, so two concurrent claims on overlapping intervals resolve to exactly
// one winner.
type BookingService struct {
	bookings    BookingStore
	requests    RequestStore
	mail        mailer.Service
	bus         events.Publisher
	writers     []calendar.Writer
	holdTTL     time.Duration
	confirmBase string
	now         func() time.Time
}

func NewBookingService(
	bookings BookingStore,
	requests RequestStore,
	mail mailer.Service,
	bus events.Publisher,
	writers []calendar.Writer,
	holdTTL time.Duration,
	confirmBase string,
) *BookingService {
	if holdTTL <= 0 {
		holdTTL = 30 * time.Minute
	}
	return &BookingService{
		bookings:    bookings,
		requests:    requests,
		mail:        mail,
		bus:         bus,
		writers:     writers,
		holdTTL:     holdTTL,
		confirmBase: confirmBase,
		now:         time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

type CreateRequestInput struct {
	HostID        int64
	CustomerName  string
	CustomerEmail string
	StartTime     time.Time
	EndTime       time.Time
}

// CreateRequest places a reservation hold pending email confirmation. The
// hold blocks availability until it is confirmed, cancelled or expires.
func (s *BookingService) CreateRequest(ctx context.Context, in CreateRequestInput) (*domain.BookingRequest, error) {
	iv, err := s.validateWindow(in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	if in.CustomerEmail == "" {
		return nil, domain.NewValidationError("customer_email", "required")
	}

	req := &domain.BookingRequest{
		HostID:            in.HostID,
		CustomerName:      in.CustomerName,
		CustomerEmail:     in.CustomerEmail,
		StartTime:         iv.Start,
		EndTime:           iv.End,
		Status:            domain.RequestPending,
		ConfirmationToken: uuid.NewString(),
		ExpiresAt:         s.now().Add(s.holdTTL),
	}
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, domain.NewDependencyError("request store", err)
	}

	confirmLink := fmt.Sprintf("%s/requests/confirm?token=%s", s.confirmBase, req.ConfirmationToken)
	if err := s.mail.SendRequestConfirmation(req, confirmLink); err != nil {
		logger.ErrorContext(ctx, "Failed to send confirmation email", "error", err, "request_id", req.ID)
	}

	s.publish(ctx, events.RequestCreated, events.RequestCreatedEvent{
		RequestID:     req.ID,
		HostID:        req.HostID,
		CustomerEmail: req.CustomerEmail,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ExpiresAt:     req.ExpiresAt,
	})

	return req, nil
}

// ConfirmRequest converts a pending hold into a confirmed booking. The
// conflict guard runs against confirmed bookings only, inside the per-host
// transaction; when the guard trips, the request is cancelled (terminal) and
// the caller learns the slot was taken by someone else, not that their own
// request was invalid.
func (s *BookingService) ConfirmRequest(ctx context.Context, confirmationToken string) (*domain.Booking, error) {
	req, err := s.requests.GetRequestByToken(ctx, confirmationToken)
	if err != nil {
		return nil, domain.NewDependencyError("request store", err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.Status != domain.RequestPending {
		return nil, domain.NewValidationError("request", fmt.Sprintf("request is %s", req.Status))
	}
	if req.Expired(s.now()) {
		if err := s.transitionOnly(ctx, req, domain.RequestExpired); err != nil {
			logger.WarnContext(ctx, "Failed to mark request expired", "error", err, "request_id", req.ID)
		}
		return nil, domain.NewValidationError("request", "confirmation window has expired")
	}

	iv := scheduling.Interval{Start: req.StartTime, End: req.EndTime}
	var booking *domain.Booking
	var lostRace bool
	err = s.bookings.WithHostTx(ctx, req.HostID, func(tx BookingTx) error {
		conflict, err := tx.FindOverlapping(ctx, req.HostID, iv, 0)
		if err != nil {
			return domain.NewDependencyError("booking store", err)
		}
		if conflict {
			// The cancellation must commit, so it cannot ride on an error
			// return that would roll the transaction back.
			lostRace = true
			_, err := tx.TransitionRequest(ctx, req.ID, domain.RequestPending, domain.RequestCancelled)
			if err != nil {
				return domain.NewDependencyError("request store", err)
			}
			return nil
		}

		moved, err := tx.TransitionRequest(ctx, req.ID, domain.RequestPending, domain.RequestConfirmed)
		if err != nil {
			return domain.NewDependencyError("request store", err)
		}
		if !moved {
			return domain.NewConflictError(req.HostID, "request was already resolved")
		}

		booking = &domain.Booking{
			HostID:        req.HostID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			Status:        domain.BookingConfirmed,
			ManageToken:   uuid.NewString(),
		}
		return tx.CreateConfirmed(ctx, booking)
	})
	if err != nil {
		return nil, err
	}
	if lostRace {
		return nil, domain.NewConflictError(req.HostID, "slot was taken by another booking")
	}

	s.publish(ctx, events.RequestConfirmed, events.RequestConfirmedEvent{
		RequestID: req.ID,
		BookingID: booking.ID,
		HostID:    booking.HostID,
	})
	s.afterBookingConfirmed(ctx, booking)

	return booking, nil
}

type CreateBookingInput struct {
	HostID        int64
	CustomerName  string
	CustomerEmail string
	StartTime     time.Time
	EndTime       time.Time
}

// CreateBooking writes a confirmed booking directly, for host-initiated
// bookings that skip the email hold flow. Same guard, same transaction shape.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*domain.Booking, error) {
	iv, err := s.validateWindow(in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		HostID:        in.HostID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		StartTime:     iv.Start,
		EndTime:       iv.End,
		Status:        domain.BookingConfirmed,
		ManageToken:   uuid.NewString(),
	}

	err = s.bookings.WithHostTx(ctx, in.HostID, func(tx BookingTx) error {
		conflict, err := tx.FindOverlapping(ctx, in.HostID, iv, 0)
		if err != nil {
			return domain.NewDependencyError("booking store", err)
		}
		if conflict {
			return domain.NewConflictError(in.HostID, "interval overlaps an existing booking")
		}
		return tx.CreateConfirmed(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.afterBookingConfirmed(ctx, booking)
	return booking, nil
}

// Reschedule moves a booking to a new interval. The booking being moved is
// excluded from its own overlap check. manageToken is required for customer
// calls and empty for host-authenticated ones.
func (s *BookingService) Reschedule(ctx context.Context, bookingID int64, manageToken string, start, end time.Time) (*domain.Booking, error) {
	iv, err := s.validateWindow(start, end)
	if err != nil {
		return nil, err
	}

	booking, err := s.loadBooking(ctx, bookingID, manageToken)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingConfirmed {
		return nil, domain.NewValidationError("booking", "only confirmed bookings can be rescheduled")
	}

	oldStart := booking.StartTime
	err = s.bookings.WithHostTx(ctx, booking.HostID, func(tx BookingTx) error {
		conflict, err := tx.FindOverlapping(ctx, booking.HostID, iv, booking.ID)
		if err != nil {
			return domain.NewDependencyError("booking store", err)
		}
		if conflict {
			return domain.NewConflictError(booking.HostID, "new interval overlaps an existing booking")
		}
		return tx.UpdateBookingTimes(ctx, booking.ID, iv)
	})
	if err != nil {
		return nil, err
	}

	booking.StartTime = iv.Start
	booking.EndTime = iv.End
	s.publish(ctx, events.BookingRescheduled, events.BookingRescheduledEvent{
		BookingID: booking.ID,
		HostID:    booking.HostID,
		OldStart:  oldStart,
		NewStart:  iv.Start,
		NewEnd:    iv.End,
	})
	s.pushToCalendars(booking)

	return booking, nil
}

// CancelBooking is a status transition, not a deletion; the row stays for
// history and audit.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, manageToken, reason string) error {
	booking, err := s.loadBooking(ctx, bookingID, manageToken)
	if err != nil {
		return err
	}

	err = s.bookings.WithHostTx(ctx, booking.HostID, func(tx BookingTx) error {
		cancelled, err := tx.CancelBooking(ctx, booking.ID)
		if err != nil {
			return domain.NewDependencyError("booking store", err)
		}
		if !cancelled {
			return domain.NewValidationError("booking", "already cancelled")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.BookingCancelled, events.BookingCancelledEvent{
		BookingID:   booking.ID,
		HostID:      booking.HostID,
		Reason:      reason,
		CancelledAt: s.now(),
	})
	return nil
}

// BulkCancelResult reports the outcome for one booking in a bulk cancel.
type BulkCancelResult struct {
	BookingID int64  `json:"booking_id"`
	Cancelled bool   `json:"cancelled"`
	Error     string `json:"error,omitempty"`
}

// BulkCancel cancels bookings independently: each record gets its own
// transaction, records may proceed in parallel, and partial failure is
// reported per record rather than rolling back the batch.
func (s *BookingService) BulkCancel(ctx context.Context, hostID int64, bookingIDs []int64) []BulkCancelResult {
	results := make([]BulkCancelResult, len(bookingIDs))
	var wg sync.WaitGroup
	for i, id := range bookingIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			results[i] = s.cancelOne(ctx, hostID, id)
		}(i, id)
	}
	wg.Wait()
	return results
}

func (s *BookingService) cancelOne(ctx context.Context, hostID, bookingID int64) BulkCancelResult {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return BulkCancelResult{BookingID: bookingID, Error: "booking store unavailable"}
	}
	if booking == nil || booking.HostID != hostID {
		return BulkCancelResult{BookingID: bookingID, Error: "not found"}
	}

	err = s.bookings.WithHostTx(ctx, hostID, func(tx BookingTx) error {
		cancelled, err := tx.CancelBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !cancelled {
			return fmt.Errorf("already cancelled")
		}
		return nil
	})
	if err != nil {
		return BulkCancelResult{BookingID: bookingID, Error: err.Error()}
	}

	s.publish(ctx, events.BookingCancelled, events.BookingCancelledEvent{
		BookingID:   bookingID,
		HostID:      hostID,
		Reason:      "bulk_cancel",
		CancelledAt: s.now(),
	})
	return BulkCancelResult{BookingID: bookingID, Cancelled: true}
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

// GetBookingByToken is the customer-facing lookup: a wrong token and a missing
// booking are indistinguishable.
func (s *BookingService) GetBookingByToken(ctx context.Context, id int64, manageToken string) (*domain.Booking, error) {
	return s.loadBooking(ctx, id, manageToken)
}

func (s *BookingService) ListBookings(ctx context.Context, hostID int64, limit, offset int) ([]domain.Booking, error) {
	return s.bookings.ListBookings(ctx, hostID, limit, offset)
}

func (s *BookingService) validateWindow(start, end time.Time) (scheduling.Interval, error) {
	iv, err := scheduling.NewInterval(start.UTC(), end.UTC())
	if err != nil {
		return scheduling.Interval{}, err
	}
	if iv.Start.Before(s.now()) {
		return scheduling.Interval{}, domain.NewValidationError("start_time", "must be in the future")
	}
	return iv, nil
}

func (s *BookingService) loadBooking(ctx context.Context, bookingID int64, manageToken string) (*domain.Booking, error) {
	var booking *domain.Booking
	var err error
	if manageToken != "" {
		booking, err = s.bookings.GetBookingByToken(ctx, bookingID, manageToken)
	} else {
		booking, err = s.bookings.GetBooking(ctx, bookingID)
	}
	if err != nil {
		return nil, domain.NewDependencyError("booking store", err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	return booking, nil
}

func (s *BookingService) transitionOnly(ctx context.Context, req *domain.BookingRequest, to domain.RequestStatus) error {
	return s.bookings.WithHostTx(ctx, req.HostID, func(tx BookingTx) error {
		_, err := tx.TransitionRequest(ctx, req.ID, domain.RequestPending, to)
		return err
	})
}

func (s *BookingService) publish(ctx context.Context, subject string, payload interface{}) {
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}

// afterBookingConfirmed runs the secondary effects of a committed booking:
// confirmation email, lifecycle event, calendar mirroring. All best-effort;
// the confirmed row is the durable source of truth and none of these can roll
// it back.
func (s *BookingService) afterBookingConfirmed(ctx context.Context, b *domain.Booking) {
	s.publish(ctx, events.BookingCreated, events.BookingCreatedEvent{
		BookingID:     b.ID,
		HostID:        b.HostID,
		CustomerEmail: b.CustomerEmail,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		CreatedAt:     b.CreatedAt,
	})

	if err := s.mail.SendBookingConfirmed(b); err != nil {
		logger.ErrorContext(ctx, "Failed to send booking confirmation email", "error", err, "booking_id", b.ID)
	}

	s.pushToCalendars(b)
}

// pushToCalendars mirrors the booking to every connected calendar,
// fire-and-forget relative to the request that committed it.
func (s *BookingService) pushToCalendars(b *domain.Booking) {
	if len(s.writers) == 0 {
		return
	}
	summary := fmt.Sprintf("Booking: %s", b.CustomerName)
	window := scheduling.Interval{Start: b.StartTime, End: b.EndTime}
	for _, w := range s.writers {
		go func(w calendar.Writer) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.CreateEvent(ctx, b.HostID, summary, window); err != nil {
				logger.Warn("Calendar push failed",
					"provider", w.Name(),
					"booking_id", b.ID,
					"error", err,
				)
			}
		}(w)
	}
}
