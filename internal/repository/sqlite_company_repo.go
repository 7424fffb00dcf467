package repository

import (
	"context"
	"database/sql"
	"fmt"

	"company-directory/internal/db"
	"company-directory/internal/domain"
)

type SQLiteCompanyRepository struct {
	db *sql.DB
}

func NewSQLiteCompanyRepository(db *sql.DB) *SQLiteCompanyRepository {
	return &SQLiteCompanyRepository{db: db}
}

const sqliteInsertCompany = `
	INSERT INTO companies (` + companyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (r *SQLiteCompanyRepository) Insert(ctx context.Context, company domain.Company) error {
	return insertSQLiteCompany(ctx, r.db, company)
}

func (r *SQLiteCompanyRepository) InsertMany(ctx context.Context, companies []domain.Company) error {
	if len(companies) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		for i, company := range companies {
			if err := insertSQLiteCompany(ctx, tx, company); err != nil {
				return fmt.Errorf("company %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *SQLiteCompanyRepository) GetByID(ctx context.Context, id string) (domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = ?`
	company, err := scanSQLiteCompany(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.Company{}, mapSQLiteError(err)
	}
	return company, nil
}

func (r *SQLiteCompanyRepository) ListPublic(ctx context.Context) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE is_public = 1 ORDER BY company_name ASC`
	return r.list(ctx, query)
}

func (r *SQLiteCompanyRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE owner_id = ? ORDER BY updated_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *SQLiteCompanyRepository) list(ctx context.Context, query string, args ...any) ([]domain.Company, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select companies: %w", err)
	}
	defer rows.Close()

	companies := make([]domain.Company, 0)
	for rows.Next() {
		company, err := scanSQLiteCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

func insertSQLiteCompany(ctx context.Context, q db.DBTX, company domain.Company) error {
	args, err := companyArgs(company)
	if err != nil {
		return err
	}
	// SQLite guarda booleanos y fechas como INTEGER y TEXT.
	args[19] = boolToInt(company.IsPublic)
	args[20] = formatSQLiteTime(company.CreatedAt)
	args[21] = formatSQLiteTime(company.UpdatedAt)

	if _, err := q.ExecContext(ctx, sqliteInsertCompany, args...); err != nil {
		return fmt.Errorf("failed to insert company: %w", mapSQLiteError(err))
	}
	return nil
}

func scanSQLiteCompany(row rowScanner) (domain.Company, error) {
	var (
		c                                  domain.Company
		management, products, technologies string
		ownerID                            sql.NullString
		isPublic                           int
		createdAt, updatedAt               string
	)
	err := row.Scan(
		&c.ID,
		&c.CompanyName,
		&c.RegistrationIdentifier,
		&c.Status,
		&c.Description,
		&c.Country,
		&c.Industry,
		&c.EmployeeCount,
		&c.FoundedYear,
		&c.Address,
		&c.Website,
		&c.ContactEmail,
		&c.PhoneNumber,
		&c.Revenue,
		&management,
		&products,
		&technologies,
		&c.LastUpdated,
		&ownerID,
		&isPublic,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Company{}, err
	}
	if ownerID.Valid {
		owner := ownerID.String
		c.OwnerID = &owner
	}
	c.IsPublic = isPublic == 1
	c.Management = decodeList(management)
	c.ProductsAndServices = decodeList(products)
	c.TechnologiesUsed = decodeList(technologies)
	if c.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return domain.Company{}, err
	}
	if c.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return domain.Company{}, err
	}
	return c, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
