package db

import (
	"context"
	"database/sql"
)

// DBTX es el subconjunto de database/sql que usan los repositorios.
// Lo implementan tanto *sql.DB como *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx abre una transacción, ejecuta fn y hace commit si no hubo error.
// Ante error o panic hace rollback; el panic se vuelve a lanzar.
func WithTx(ctx context.Context, sqlDB *sql.DB, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
