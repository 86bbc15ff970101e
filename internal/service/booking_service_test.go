package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/scheduling"
	"github.com/slotline/slotline-api/pkg/events"
)

// ---------- Fakes ----------

// memStore is an in-memory BookingStore/RequestStore honoring the same
// per-host serialization contract as the postgres implementation: WithHostTx
// callbacks for one host never interleave.
type memStore struct {
	mu            sync.Mutex
	hostLocks     map[int64]*sync.Mutex
	bookings      map[int64]*domain.Booking
	requests      map[int64]*domain.BookingRequest
	nextBookingID int64
	nextRequestID int64
}

func newMemStore() *memStore {
	return &memStore{
		hostLocks: make(map[int64]*sync.Mutex),
		bookings:  make(map[int64]*domain.Booking),
		requests:  make(map[int64]*domain.BookingRequest),
	}
}

func (m *memStore) hostLock(hostID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.hostLocks[hostID]
	if !ok {
		lock = &sync.Mutex{}
		m.hostLocks[hostID] = lock
	}
	return lock
}

func (m *memStore) WithHostTx(ctx context.Context, hostID int64, fn func(tx BookingTx) error) error {
	lock := m.hostLock(hostID)
	lock.Lock()
	defer lock.Unlock()
	return fn((*memTx)(m))
}

func (m *memStore) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) GetBookingByToken(ctx context.Context, id int64, token string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok && b.ManageToken == token {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) ListBookings(ctx context.Context, hostID int64, limit, offset int) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.HostID == hostID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) CreateRequest(ctx context.Context, r *domain.BookingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRequestID++
	r.ID = m.nextRequestID
	copied := *r
	m.requests[r.ID] = &copied
	return nil
}

func (m *memStore) GetRequestByToken(ctx context.Context, token string) (*domain.BookingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ConfirmationToken == token {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.requests {
		if r.Status == domain.RequestPending && !r.ExpiresAt.After(now) {
			r.Status = domain.RequestExpired
			count++
		}
	}
	return count, nil
}

func (m *memStore) requestStatus(id int64) domain.RequestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

func (m *memStore) confirmedCount(hostID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.HostID == hostID && b.Status == domain.BookingConfirmed {
			n++
		}
	}
	return n
}

// memTx gives the transactional view; the host lock is already held.
type memTx memStore

func (t *memTx) FindOverlapping(ctx context.Context, hostID int64, iv scheduling.Interval, excludeID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range t.bookings {
		if b.HostID != hostID || b.Status != domain.BookingConfirmed || b.ID == excludeID {
			continue
		}
		existing := scheduling.Interval{Start: b.StartTime, End: b.EndTime}
		if existing.Overlaps(iv) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateConfirmed(ctx context.Context, b *domain.Booking) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextBookingID++
	b.ID = t.nextBookingID
	copied := *b
	t.bookings[b.ID] = &copied
	return nil
}

func (t *memTx) UpdateBookingTimes(ctx context.Context, bookingID int64, iv scheduling.Interval) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.bookings[bookingID]
	b.StartTime = iv.Start
	b.EndTime = iv.End
	return nil
}

func (t *memTx) CancelBooking(ctx context.Context, bookingID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.bookings[bookingID]
	if !ok || b.Status == domain.BookingCancelled {
		return false, nil
	}
	b.Status = domain.BookingCancelled
	return true, nil
}

func (t *memTx) TransitionRequest(ctx context.Context, requestID int64, from, to domain.RequestStatus) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.requests[requestID]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

type recordingMailer struct {
	mu            sync.Mutex
	confirmations int
	confirmed     int
}

func (m *recordingMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	return "", nil
}

func (m *recordingMailer) SendRequestConfirmation(req *domain.BookingRequest, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations++
	return nil
}

func (m *recordingMailer) SendBookingConfirmed(b *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed++
	return nil
}

// ---------- Helpers ----------

var baseDay = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func slotAt(h, m, durMin int) (time.Time, time.Time) {
	start := baseDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
	return start, start.Add(time.Duration(durMin) * time.Minute)
}

func newTestService(store *memStore) (*BookingService, *recordingMailer) {
	mail := &recordingMailer{}
	svc := NewBookingService(store, store, mail, events.NoopPublisher{}, nil, 30*time.Minute, "http://test")
	svc.WithClock(func() time.Time { return baseDay.Add(-24 * time.Hour) })
	return svc, mail
}

func pendingRequest(t *testing.T, svc *BookingService, hostID int64, startH, startM int) *domain.BookingRequest {
	t.Helper()
	start, end := slotAt(startH, startM, 60)
	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		HostID:        hostID,
		CustomerName:  "Alex",
		CustomerEmail: "alex@example.com",
		StartTime:     start,
		EndTime:       end,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

// ---------- Tests ----------

func TestCreateRequestSendsConfirmationEmail(t *testing.T) {
	store := newMemStore()
	svc, mail := newTestService(store)

	req := pendingRequest(t, svc, 1, 10, 0)
	if req.Status != domain.RequestPending {
		t.Errorf("status = %s, want pending", req.Status)
	}
	if req.ConfirmationToken == "" {
		t.Error("confirmation token not set")
	}
	if mail.confirmations != 1 {
		t.Errorf("confirmation emails = %d, want 1", mail.confirmations)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	start, _ := slotAt(10, 0, 60)
	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		HostID: 1, CustomerEmail: "a@b.c", StartTime: start, EndTime: start,
	})
	if !domain.IsValidation(err) {
		t.Errorf("zero-length interval: got %v, want validation error", err)
	}

	_, err = svc.CreateRequest(context.Background(), CreateRequestInput{
		HostID: 1, CustomerEmail: "a@b.c", StartTime: start.Add(-72 * time.Hour), EndTime: start,
	})
	if !domain.IsValidation(err) {
		t.Errorf("past start: got %v, want validation error", err)
	}
}

func TestConfirmRequestHappyPath(t *testing.T) {
	store := newMemStore()
	svc, mail := newTestService(store)

	req := pendingRequest(t, svc, 1, 10, 0)
	booking, err := svc.ConfirmRequest(context.Background(), req.ConfirmationToken)
	if err != nil {
		t.Fatalf("ConfirmRequest: %v", err)
	}
	if booking.Status != domain.BookingConfirmed {
		t.Errorf("booking status = %s, want confirmed", booking.Status)
	}
	if got := store.requestStatus(req.ID); got != domain.RequestConfirmed {
		t.Errorf("request status = %s, want confirmed", got)
	}
	if mail.confirmed != 1 {
		t.Errorf("confirmed emails = %d, want 1", mail.confirmed)
	}
}

func TestConfirmRequestExpired(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	req := pendingRequest(t, svc, 1, 10, 0)
	// Move the clock past the hold TTL.
	svc.WithClock(func() time.Time { return req.ExpiresAt.Add(time.Minute) })

	_, err := svc.ConfirmRequest(context.Background(), req.ConfirmationToken)
	if !domain.IsValidation(err) {
		t.Fatalf("got %v, want validation error", err)
	}
	if got := store.requestStatus(req.ID); got != domain.RequestExpired {
		t.Errorf("request status = %s, want expired", got)
	}
}

func TestConfirmRequestLosesToExistingBooking(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	req := pendingRequest(t, svc, 1, 10, 0)

	// Another booking claims an overlapping interval first.
	start, end := slotAt(10, 30, 60)
	if _, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		HostID: 1, CustomerName: "Sam", CustomerEmail: "sam@example.com",
		StartTime: start, EndTime: end,
	}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	_, err := svc.ConfirmRequest(context.Background(), req.ConfirmationToken)
	if !domain.IsConflict(err) {
		t.Fatalf("got %v, want conflict error", err)
	}
	// The losing request ends cancelled, a terminal state.
	if got := store.requestStatus(req.ID); got != domain.RequestCancelled {
		t.Errorf("request status = %s, want cancelled", got)
	}
	// Confirming again reports the terminal state, never retries.
	if _, err := svc.ConfirmRequest(context.Background(), req.ConfirmationToken); !domain.IsValidation(err) {
		t.Errorf("re-confirm: got %v, want validation error", err)
	}
}

func TestConcurrentConfirmationsExactlyOneWinner(t *testing.T) {
	for round := 0; round < 50; round++ {
		store := newMemStore()
		svc, _ := newTestService(store)

		// Two holds over overlapping intervals, both pending.
		first := pendingRequest(t, svc, 1, 10, 0)
		second := pendingRequest(t, svc, 1, 10, 30)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, token := range []string{first.ConfirmationToken, second.ConfirmationToken} {
			wg.Add(1)
			go func(i int, token string) {
				defer wg.Done()
				_, errs[i] = svc.ConfirmRequest(context.Background(), token)
			}(i, token)
		}
		wg.Wait()

		var wins, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case domain.IsConflict(err):
				conflicts++
			default:
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		if wins != 1 || conflicts != 1 {
			t.Fatalf("round %d: wins=%d conflicts=%d, want exactly one of each", round, wins, conflicts)
		}
		if got := store.confirmedCount(1); got != 1 {
			t.Fatalf("round %d: %d confirmed bookings, want 1", round, got)
		}
	}
}

func TestConcurrentDirectBookingsExactlyOneWinner(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	start, end := slotAt(14, 0, 60)
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), CreateBookingInput{
				HostID: 1, CustomerName: "N", CustomerEmail: "n@example.com",
				StartTime: start, EndTime: end,
			})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !domain.IsConflict(err) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestRescheduleExcludesSelf(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	start, end := slotAt(10, 0, 60)
	booking, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		HostID: 1, CustomerName: "A", CustomerEmail: "a@example.com",
		StartTime: start, EndTime: end,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	// Shifting within the booking's own window must not self-conflict.
	newStart, newEnd := slotAt(10, 30, 60)
	moved, err := svc.Reschedule(context.Background(), booking.ID, "", newStart, newEnd)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !moved.StartTime.Equal(newStart) {
		t.Errorf("start = %v, want %v", moved.StartTime, newStart)
	}

	// A second booking blocks a reschedule onto its interval.
	otherStart, otherEnd := slotAt(13, 0, 60)
	if _, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		HostID: 1, CustomerName: "B", CustomerEmail: "b@example.com",
		StartTime: otherStart, EndTime: otherEnd,
	}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := svc.Reschedule(context.Background(), booking.ID, "", otherStart, otherEnd); !domain.IsConflict(err) {
		t.Errorf("got %v, want conflict error", err)
	}
}

func TestRescheduleRequiresMatchingToken(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	start, end := slotAt(10, 0, 60)
	booking, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		HostID: 1, CustomerName: "A", CustomerEmail: "a@example.com",
		StartTime: start, EndTime: end,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	newStart, newEnd := slotAt(11, 0, 60)
	if _, err := svc.Reschedule(context.Background(), booking.ID, "wrong-token", newStart, newEnd); err != domain.ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := svc.Reschedule(context.Background(), booking.ID, booking.ManageToken, newStart, newEnd); err != nil {
		t.Errorf("valid token: unexpected error %v", err)
	}
}

func TestCancelBookingIsSoftState(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	start, end := slotAt(10, 0, 60)
	booking, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		HostID: 1, CustomerName: "A", CustomerEmail: "a@example.com",
		StartTime: start, EndTime: end,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if err := svc.CancelBooking(context.Background(), booking.ID, "", "host_cancelled"); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	// The row survives as cancelled rather than being deleted.
	got, err := svc.GetBooking(context.Background(), booking.ID)
	if err != nil || got == nil {
		t.Fatalf("GetBooking after cancel: %v, %v", got, err)
	}
	if got.Status != domain.BookingCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	// Cancelled bookings free the interval for new claims.
	if _, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		HostID: 1, CustomerName: "B", CustomerEmail: "b@example.com",
		StartTime: start, EndTime: end,
	}); err != nil {
		t.Errorf("rebooking cancelled interval: %v", err)
	}

	// Double-cancel is rejected.
	if err := svc.CancelBooking(context.Background(), booking.ID, "", "again"); !domain.IsValidation(err) {
		t.Errorf("double cancel: got %v, want validation error", err)
	}
}

func TestBulkCancelReportsPerRecord(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	var ids []int64
	for i := 0; i < 3; i++ {
		start, end := slotAt(9+2*i, 0, 60)
		b, err := svc.CreateBooking(context.Background(), CreateBookingInput{
			HostID: 1, CustomerName: "A", CustomerEmail: "a@example.com",
			StartTime: start, EndTime: end,
		})
		if err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
		ids = append(ids, b.ID)
	}
	// One unknown ID and one belonging to a different host.
	otherStart, otherEnd := slotAt(16, 0, 60)
	other, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		HostID: 2, CustomerName: "B", CustomerEmail: "b@example.com",
		StartTime: otherStart, EndTime: otherEnd,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	ids = append(ids, 9999, other.ID)

	results := svc.BulkCancel(context.Background(), 1, ids)
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}

	cancelled := 0
	failed := 0
	for _, r := range results {
		if r.Cancelled {
			cancelled++
		} else {
			failed++
			if r.Error == "" {
				t.Errorf("failed record %d has no error message", r.BookingID)
			}
		}
	}
	if cancelled != 3 || failed != 2 {
		t.Errorf("cancelled=%d failed=%d, want 3/2", cancelled, failed)
	}
}

func TestSweeperExpiresStaleHolds(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	req := pendingRequest(t, svc, 1, 10, 0)

	sweeper := NewRequestSweeper(store, events.NoopPublisher{}, time.Minute)
	sweeper.sweep(context.Background())
	if got := store.requestStatus(req.ID); got != domain.RequestPending {
		t.Fatalf("fresh hold swept: status = %s", got)
	}

	// Age the hold past its expiry, then sweep again.
	store.mu.Lock()
	store.requests[req.ID].ExpiresAt = time.Now().Add(-time.Minute)
	store.mu.Unlock()

	sweeper.sweep(context.Background())
	if got := store.requestStatus(req.ID); got != domain.RequestExpired {
		t.Errorf("status = %s, want expired", got)
	}
}
