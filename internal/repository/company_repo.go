package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"company-directory/internal/domain"
)

// CompanyRepository define el contrato de persistencia para empresas.
type CompanyRepository interface {
	Insert(ctx context.Context, company domain.Company) error
	// InsertMany inserta todas las empresas en una sola transacción.
	InsertMany(ctx context.Context, companies []domain.Company) error
	GetByID(ctx context.Context, id string) (domain.Company, error)
	ListPublic(ctx context.Context) ([]domain.Company, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Company, error)
}

const companyColumns = `id, company_name, registration_identifier, status, description, country,
	industry, employee_count, founded_year, address, website, contact_email, phone_number,
	revenue, management, products_and_services, technologies_used, last_updated, owner_id,
	is_public, created_at, updated_at`

type PgCompanyRepository struct {
	pool *pgxpool.Pool
}

func NewPgCompanyRepository(pool *pgxpool.Pool) *PgCompanyRepository {
	return &PgCompanyRepository{pool: pool}
}

func (r *PgCompanyRepository) Insert(ctx context.Context, company domain.Company) error {
	args, err := companyArgs(company)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, pgInsertCompany, args...); err != nil {
		return fmt.Errorf("insert company: %w", mapPgError(err))
	}
	return nil
}

func (r *PgCompanyRepository) InsertMany(ctx context.Context, companies []domain.Company) error {
	if len(companies) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i, company := range companies {
			args, err := companyArgs(company)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, pgInsertCompany, args...); err != nil {
				return fmt.Errorf("insert company %d: %w", i, mapPgError(err))
			}
		}
		return nil
	})
}

func (r *PgCompanyRepository) GetByID(ctx context.Context, id string) (domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	company, err := scanPgCompany(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Company{}, mapPgError(err)
	}
	return company, nil
}

func (r *PgCompanyRepository) ListPublic(ctx context.Context) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE is_public = TRUE ORDER BY company_name ASC`
	return r.list(ctx, query)
}

func (r *PgCompanyRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE owner_id = $1 ORDER BY updated_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *PgCompanyRepository) list(ctx context.Context, query string, args ...any) ([]domain.Company, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]domain.Company, 0)
	for rows.Next() {
		company, err := scanPgCompany(rows)
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

const pgInsertCompany = `
	INSERT INTO companies (` + companyColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
`

// companyArgs devuelve los valores en el orden de companyColumns.
func companyArgs(c domain.Company) ([]any, error) {
	management, err := encodeList(c.Management)
	if err != nil {
		return nil, err
	}
	products, err := encodeList(c.ProductsAndServices)
	if err != nil {
		return nil, err
	}
	technologies, err := encodeList(c.TechnologiesUsed)
	if err != nil {
		return nil, err
	}
	return []any{
		c.ID,
		c.CompanyName,
		c.RegistrationIdentifier,
		c.Status,
		c.Description,
		c.Country,
		c.Industry,
		c.EmployeeCount,
		c.FoundedYear,
		c.Address,
		c.Website,
		c.ContactEmail,
		c.PhoneNumber,
		c.Revenue,
		management,
		products,
		technologies,
		c.LastUpdated,
		c.OwnerID,
		c.IsPublic,
		c.CreatedAt,
		c.UpdatedAt,
	}, nil
}

func scanPgCompany(row rowScanner) (domain.Company, error) {
	var (
		c                                  domain.Company
		management, products, technologies string
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
		&c.OwnerID,
		&c.IsPublic,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Company{}, err
	}
	c.Management = decodeList(management)
	c.ProductsAndServices = decodeList(products)
	c.TechnologiesUsed = decodeList(technologies)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}
