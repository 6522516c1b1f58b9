package session

import (
	"context"
	"errors"

	"farmsmart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Save(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO identity_sessions (id, principal, token, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    principal = EXCLUDED.principal,
    token = EXCLUDED.token,
    expires_at = EXCLUDED.expires_at,
    updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, rec.ID, rec.Principal, rec.Token, rec.ExpiresAt); err != nil {
		r.logger.Error("session repo: save", zap.String("id", rec.ID), zap.Error(err))
		return err
	}
	r.logger.Debug("session repo: saved", zap.String("id", rec.ID), zap.String("principal", rec.Principal))
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*Record, error) {
	const q = `
SELECT id::text, principal, token, expires_at, created_at
FROM identity_sessions
WHERE id = $1
LIMIT 1
`
	var out Record
	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&out.ID,
		&out.Principal,
		&out.Token,
		&out.ExpiresAt,
		&out.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("session repo: get", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM identity_sessions WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("session repo: delete", zap.String("id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
