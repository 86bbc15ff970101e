package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotline/slotline-api/internal/domain"
)

type HostRepo struct {
	pool *pgxpool.Pool
}

func NewHostRepo(pool *pgxpool.Pool) *HostRepo {
	return &HostRepo{pool: pool}
}

func (r *HostRepo) CreateHost(ctx context.Context, h *domain.Host) error {
	const q = `INSERT INTO hosts (name, email, password_hash)
		VALUES ($1,$2,$3) RETURNING id, created_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.pool.QueryRow(ctx, q, h.Name, h.Email, h.PasswordHash).
		Scan(&h.ID, &h.CreatedAt)
}

func (r *HostRepo) GetHostByEmail(ctx context.Context, email string) (*domain.Host, error) {
	const q = `SELECT id, name, email, password_hash, created_at FROM hosts WHERE email=$1`
	return r.getHost(ctx, q, email)
}

func (r *HostRepo) GetHostByID(ctx context.Context, id int64) (*domain.Host, error) {
	const q = `SELECT id, name, email, password_hash, created_at FROM hosts WHERE id=$1`
	return r.getHost(ctx, q, id)
}

func (r *HostRepo) getHost(ctx context.Context, q string, arg any) (*domain.Host, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var h domain.Host
	err := r.pool.QueryRow(ctx, q, arg).
		Scan(&h.ID, &h.Name, &h.Email, &h.PasswordHash, &h.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}
