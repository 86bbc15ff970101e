package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotline/slotline-api/internal/domain"
)

const ruleCols = `id, host_id, day_of_week, start_time, end_time, buffer_minutes, created_at, updated_at`

// RuleRepo implements scheduling.RuleStore plus the CRUD surface hosts manage
// their recurring availability through.
type RuleRepo struct {
	pool *pgxpool.Pool
}

func NewRuleRepo(pool *pgxpool.Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

func (r *RuleRepo) ListRules(ctx context.Context, hostID int64, dayOfWeek time.Weekday) ([]domain.AvailabilityRule, error) {
	const q = `SELECT ` + ruleCols + ` FROM availability_rules
		WHERE host_id=$1 AND day_of_week=$2 ORDER BY start_time`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID, int(dayOfWeek))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRules(rows)
}

func (r *RuleRepo) ListAllRules(ctx context.Context, hostID int64) ([]domain.AvailabilityRule, error) {
	const q = `SELECT ` + ruleCols + ` FROM availability_rules
		WHERE host_id=$1 ORDER BY day_of_week, start_time`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRules(rows)
}

func (r *RuleRepo) CreateRule(ctx context.Context, rule *domain.AvailabilityRule) error {
	const q = `INSERT INTO availability_rules (host_id, day_of_week, start_time, end_time, buffer_minutes)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.pool.QueryRow(ctx, q,
		rule.HostID, rule.DayOfWeek, rule.StartTime, rule.EndTime, rule.BufferMinutes,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *RuleRepo) UpdateRule(ctx context.Context, rule *domain.AvailabilityRule) (bool, error) {
	const q = `UPDATE availability_rules
		SET day_of_week=$3, start_time=$4, end_time=$5, buffer_minutes=$6, updated_at=now()
		WHERE id=$1 AND host_id=$2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.pool.Exec(ctx, q,
		rule.ID, rule.HostID, rule.DayOfWeek, rule.StartTime, rule.EndTime, rule.BufferMinutes,
	)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *RuleRepo) DeleteRule(ctx context.Context, hostID, ruleID int64) (bool, error) {
	const q = `DELETE FROM availability_rules WHERE id=$1 AND host_id=$2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, ruleID, hostID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func scanRules(rows pgx.Rows) ([]domain.AvailabilityRule, error) {
	var rules []domain.AvailabilityRule
	for rows.Next() {
		var rule domain.AvailabilityRule
		if err := rows.Scan(
			&rule.ID, &rule.HostID, &rule.DayOfWeek, &rule.StartTime, &rule.EndTime,
			&rule.BufferMinutes, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
