package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"github.com/slotline/slotline-api/internal/domain"
)

// TokenRepo stores per-host OAuth tokens for calendar providers. The token is
// kept as the oauth2 library's own JSON shape so refresh state round-trips
// without a bespoke schema.
type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

func (r *TokenRepo) Token(ctx context.Context, hostID int64, provider string) (*oauth2.Token, error) {
	const q = `SELECT token FROM calendar_credentials WHERE host_id=$1 AND provider=$2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var raw []byte
	err := r.pool.QueryRow(ctx, q, hostID, provider).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (r *TokenRepo) Save(ctx context.Context, hostID int64, provider string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}

	const q = `INSERT INTO calendar_credentials (host_id, provider, token)
		VALUES ($1,$2,$3)
		ON CONFLICT (host_id, provider) DO UPDATE SET token=EXCLUDED.token, updated_at=now()`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = r.pool.Exec(ctx, q, hostID, provider, raw)
	return err
}

// Connected lists the providers a host has linked credentials for.
func (r *TokenRepo) Connected(ctx context.Context, hostID int64) ([]string, error) {
	const q = `SELECT provider FROM calendar_credentials WHERE host_id=$1 ORDER BY provider`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}
