package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/scheduling"
)

const requestCols = `id, host_id, customer_name, customer_email,
start_time, end_time, status, confirmation_token, expires_at, created_at`

// RequestRepo implements service.RequestStore and the pending-hold read side
// of busy-set aggregation.
type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

func (r *RequestRepo) CreateRequest(ctx context.Context, req *domain.BookingRequest) error {
	const q = `INSERT INTO booking_requests (
		host_id, customer_name, customer_email,
		start_time, end_time, status, confirmation_token, expires_at
	) VALUES ($1,$2,$3,$4,$5,'pending',$6,$7)
	RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.pool.QueryRow(ctx, q,
		req.HostID, req.CustomerName, req.CustomerEmail,
		req.StartTime, req.EndTime, req.ConfirmationToken, req.ExpiresAt,
	).Scan(&req.ID, &req.CreatedAt)
}

func (r *RequestRepo) GetRequestByToken(ctx context.Context, confirmationToken string) (*domain.BookingRequest, error) {
	const q = `SELECT ` + requestCols + ` FROM booking_requests WHERE confirmation_token=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var req domain.BookingRequest
	err := r.pool.QueryRow(ctx, q, confirmationToken).Scan(
		&req.ID, &req.HostID, &req.CustomerName, &req.CustomerEmail,
		&req.StartTime, &req.EndTime, &req.Status, &req.ConfirmationToken,
		&req.ExpiresAt, &req.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &req, err
}

// ListPendingNonExpired returns the intervals of live holds intersecting the
// window. Expired holds are excluded here, at the source, so a lapsed hold
// never blocks availability even before the sweeper catches it.
func (r *RequestRepo) ListPendingNonExpired(ctx context.Context, hostID int64, window scheduling.Interval) ([]scheduling.Interval, error) {
	const q = `SELECT start_time, end_time FROM booking_requests
		WHERE host_id=$1 AND status='pending' AND expires_at > now()
		  AND start_time < $3 AND end_time > $2
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

// ExpireStale marks lapsed pending holds expired and reports how many moved.
func (r *RequestRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE booking_requests SET status='expired'
		WHERE status='pending' AND expires_at <= $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
