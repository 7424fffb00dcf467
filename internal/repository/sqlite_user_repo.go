package repository

import (
	"context"
	"database/sql"

	"company-directory/internal/domain"
)

type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user domain.User) error {
	query := `INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		formatSQLiteTime(user.CreatedAt),
	)
	return mapSQLiteError(err)
}

func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = ? LIMIT 1`

	var (
		u         domain.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if err != nil {
		return domain.User{}, mapSQLiteError(err)
	}
	if u.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
