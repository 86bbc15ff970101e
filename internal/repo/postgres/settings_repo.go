package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotline/slotline-api/internal/domain"
)

// SettingsRepo implements scheduling.SettingsStore. A host without a settings
// row gets the zero value; the orchestrator applies policy defaults on top.
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) GetHostSettings(ctx context.Context, hostID int64) (domain.HostSettings, error) {
	const q = `SELECT host_id, booking_horizon_days, default_meeting_duration_minutes, buffer_minutes
		FROM host_settings WHERE host_id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s domain.HostSettings
	err := r.pool.QueryRow(ctx, q, hostID).Scan(
		&s.HostID, &s.BookingHorizonDays, &s.DefaultMeetingDurationMinutes, &s.BufferMinutes,
	)
	if err == pgx.ErrNoRows {
		return domain.HostSettings{HostID: hostID}, nil
	}
	return s, err
}

func (r *SettingsRepo) UpsertHostSettings(ctx context.Context, s domain.HostSettings) error {
	const q = `INSERT INTO host_settings (host_id, booking_horizon_days, default_meeting_duration_minutes, buffer_minutes)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (host_id) DO UPDATE SET
			booking_horizon_days=EXCLUDED.booking_horizon_days,
			default_meeting_duration_minutes=EXCLUDED.default_meeting_duration_minutes,
			buffer_minutes=EXCLUDED.buffer_minutes`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		s.HostID, s.BookingHorizonDays, s.DefaultMeetingDurationMinutes, s.BufferMinutes,
	)
	return err
}
