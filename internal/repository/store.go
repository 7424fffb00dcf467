package repository

import (
	"context"
	"fmt"

	"company-directory/internal/config"
	"company-directory/internal/db"
)

// Store agrupa los repositorios del backend elegido en DB_DRIVER.
type Store struct {
	Users     UserRepository
	Sessions  SessionRepository
	Companies CompanyRepository
	Ping      func(ctx context.Context) error
	Close     func()
}

// OpenStore abre la base configurada y aplica las migraciones pendientes.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.MigratePool(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &Store{
			Users:     NewPgUserRepository(pool),
			Sessions:  NewPgSessionRepository(pool),
			Companies: NewPgCompanyRepository(pool),
			Ping:      func(ctx context.Context) error { return db.Ping(ctx, pool) },
			Close:     pool.Close,
		}, nil
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.MigrateSQLite(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return &Store{
			Users:     NewSQLiteUserRepository(sqlDB),
			Sessions:  NewSQLiteSessionRepository(sqlDB),
			Companies: NewSQLiteCompanyRepository(sqlDB),
			Ping:      sqlDB.PingContext,
			Close:     func() { _ = sqlDB.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
