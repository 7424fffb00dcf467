package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"company-directory/internal/domain"
)

// SessionRepository persiste tokens de sesión con su expiración.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	// FindIdentity devuelve ErrNotFound si el token no existe o expiró antes de now.
	FindIdentity(ctx context.Context, token string, now time.Time) (domain.Identity, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO sessions (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query,
		session.Token,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return mapPgError(err)
}

func (r *PgSessionRepository) FindIdentity(ctx context.Context, token string, now time.Time) (domain.Identity, error) {
	const query = `
		SELECT users.id, users.username
		FROM sessions
		INNER JOIN users ON users.id = sessions.user_id
		WHERE sessions.token = $1
		  AND sessions.expires_at > $2
	`
	var identity domain.Identity
	err := r.pool.QueryRow(ctx, query, token, now).Scan(
		&identity.UserID,
		&identity.Username,
	)
	if err != nil {
		return domain.Identity{}, mapPgError(err)
	}
	return identity, nil
}

func (r *PgSessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return mapPgError(err)
}

func (r *PgSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}
