package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/scheduling"
	"github.com/slotline/slotline-api/internal/service"
)

const queryTimeout = 3 * time.Second

const bookingCols = `id, host_id, customer_name, customer_email,
start_time, end_time, status, manage_token, created_at, updated_at`

// BookingRepo implements service.BookingStore and the read side consumed by
// the busy-set aggregator.
type BookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

// WithHostTx runs fn inside a transaction serialized per host via a Postgres
// advisory lock. Two writers for the same host queue behind each other, so the
// overlap read and the write inside fn are indivisible; writers for different
// hosts do not contend.
func (r *BookingRepo) WithHostTx(ctx context.Context, hostID int64, fn func(tx service.BookingTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, hostID); err != nil {
		return fmt.Errorf("acquire host lock: %w", err)
	}

	if err := fn(&bookingTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *BookingRepo) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.HostID, &b.CustomerName, &b.CustomerEmail,
		&b.StartTime, &b.EndTime, &b.Status, &b.ManageToken,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &b, err
}

func (r *BookingRepo) GetBookingByToken(ctx context.Context, id int64, manageToken string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1 AND manage_token=$2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id, manageToken).Scan(
		&b.ID, &b.HostID, &b.CustomerName, &b.CustomerEmail,
		&b.StartTime, &b.EndTime, &b.Status, &b.ManageToken,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &b, err
}

func (r *BookingRepo) ListBookings(ctx context.Context, hostID int64, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + bookingCols + ` FROM bookings
		WHERE host_id=$1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.HostID, &b.CustomerName, &b.CustomerEmail,
			&b.StartTime, &b.EndTime, &b.Status, &b.ManageToken,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListConfirmed returns the intervals of confirmed bookings intersecting the
// window, for busy-set aggregation. The window is half-open like every
// interval in the engine.
func (r *BookingRepo) ListConfirmed(ctx context.Context, hostID int64, window scheduling.Interval) ([]scheduling.Interval, error) {
	const q = `SELECT start_time, end_time FROM bookings
		WHERE host_id=$1 AND status='confirmed' AND start_time < $3 AND end_time > $2
		ORDER BY start_time`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []scheduling.Interval
	for rows.Next() {
		var iv scheduling.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// bookingTx is the transactional view handed to write-path callbacks. All
// statements run on the open transaction, behind the host advisory lock.
type bookingTx struct {
	tx pgx.Tx
}

func (t *bookingTx) FindOverlapping(ctx context.Context, hostID int64, iv scheduling.Interval, excludeBookingID int64) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE host_id=$1 AND status='confirmed' AND id <> $2
		  AND start_time < $4 AND end_time > $3
	)`
	var exists bool
	err := t.tx.QueryRow(ctx, q, hostID, excludeBookingID, iv.Start, iv.End).Scan(&exists)
	return exists, err
}

func (t *bookingTx) CreateConfirmed(ctx context.Context, b *domain.Booking) error {
	const q = `INSERT INTO bookings (
		host_id, customer_name, customer_email,
		start_time, end_time, status, manage_token
	) VALUES ($1,$2,$3,$4,$5,'confirmed',$6)
	RETURNING id, created_at, updated_at`

	return t.tx.QueryRow(ctx, q,
		b.HostID, b.CustomerName, b.CustomerEmail,
		b.StartTime, b.EndTime, b.ManageToken,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (t *bookingTx) UpdateBookingTimes(ctx context.Context, bookingID int64, iv scheduling.Interval) error {
	const q = `UPDATE bookings SET start_time=$2, end_time=$3, updated_at=now()
		WHERE id=$1 AND status='confirmed'`
	result, err := t.tx.Exec(ctx, q, bookingID, iv.Start, iv.End)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %d not found or not confirmed", bookingID)
	}
	return nil
}

func (t *bookingTx) CancelBooking(ctx context.Context, bookingID int64) (bool, error) {
	const q = `UPDATE bookings SET status='cancelled', updated_at=now()
		WHERE id=$1 AND status <> 'cancelled'`
	result, err := t.tx.Exec(ctx, q, bookingID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (t *bookingTx) TransitionRequest(ctx context.Context, requestID int64, from, to domain.RequestStatus) (bool, error) {
	const q = `UPDATE booking_requests SET status=$3 WHERE id=$1 AND status=$2`
	result, err := t.tx.Exec(ctx, q, requestID, from, to)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
