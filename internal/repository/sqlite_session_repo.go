package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"company-directory/internal/domain"
)

type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

func (r *SQLiteSessionRepository) Create(ctx context.Context, session domain.Session) error {
	query := `INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		session.Token,
		session.UserID,
		formatSQLiteTime(session.ExpiresAt),
		formatSQLiteTime(session.CreatedAt),
	)
	return mapSQLiteError(err)
}

func (r *SQLiteSessionRepository) FindIdentity(ctx context.Context, token string, now time.Time) (domain.Identity, error) {
	query := `
		SELECT users.id, users.username
		FROM sessions
		INNER JOIN users ON users.id = sessions.user_id
		WHERE sessions.token = ?
		  AND sessions.expires_at > ?
	`
	var identity domain.Identity
	err := r.db.QueryRowContext(ctx, query, token, formatSQLiteTime(now)).Scan(&identity.UserID, &identity.Username)
	if err != nil {
		return domain.Identity{}, mapSQLiteError(err)
	}
	return identity, nil
}

func (r *SQLiteSessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return mapSQLiteError(err)
}

func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatSQLiteTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
