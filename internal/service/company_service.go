package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"company-directory/internal/domain"
	"company-directory/internal/repository"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrCompanyNotFound   = errors.New("company not found")
	ErrCompanyForbidden  = errors.New("company access restricted")
	ErrImportTooLarge    = errors.New("import batch too large")
	errInvalidPayload    = &FieldError{Message: "Invalid company payload"}
	maxFoundedYear       = math.MaxInt32
	requiredCompanyTexts = []string{
		"companyName",
		"krsNIPorHRB",
		"status",
		"description",
		"country",
		"industry",
		"employeeCount",
		"address",
		"website",
		"contactEmail",
		"phoneNumber",
		"revenue",
	}
)

// FieldError describe un payload de empresa inválido. Message se devuelve tal cual al cliente.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return ErrValidation }

func requiredFieldError(key string) *FieldError {
	return &FieldError{Field: key, Message: fmt.Sprintf("Field %q is required", key)}
}

func emptyFieldError(key string) *FieldError {
	return &FieldError{Field: key, Message: fmt.Sprintf("Field %q cannot be empty", key)}
}

func foundedYearError() *FieldError {
	return &FieldError{Field: "foundedYear", Message: `Field "foundedYear" must be a positive integer year`}
}

// ImportError identifica el elemento que hizo fallar una importación.
type ImportError struct {
	Index int
	Err   error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("company at index %d: %v", e.Index, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// CompanyService valida y persiste registros de empresas.
type CompanyService struct {
	logger    *zap.Logger
	companies repository.CompanyRepository
	maxImport int
	now       func() time.Time
}

// NewCompanyService crea el servicio; maxImport <= 0 deshabilita el límite de importación.
func NewCompanyService(logger *zap.Logger, companies repository.CompanyRepository, maxImport int) *CompanyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyService{
		logger:    logger,
		companies: companies,
		maxImport: maxImport,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *CompanyService) MaxImportItems() int {
	return s.maxImport
}

// Prepare valida un payload JSON decodificado (con UseNumber o no) y arma la empresa sin id ni timestamps.
func (s *CompanyService) Prepare(payload any, ownerID *string) (domain.Company, error) {
	fields, ok := payload.(map[string]any)
	if !ok || fields == nil {
		return domain.Company{}, errInvalidPayload
	}

	texts := make(map[string]string, len(requiredCompanyTexts))
	for _, key := range requiredCompanyTexts {
		raw, ok := fields[key].(string)
		if !ok {
			return domain.Company{}, requiredFieldError(key)
		}
		value := strings.TrimSpace(raw)
		if value == "" {
			return domain.Company{}, emptyFieldError(key)
		}
		texts[key] = value
	}

	year, ok := parseFoundedYear(fields["foundedYear"])
	if !ok {
		return domain.Company{}, foundedYearError()
	}

	lastUpdated := s.now().Format(time.RFC3339Nano)
	if raw, ok := fields["lastUpdated"].(string); ok && strings.TrimSpace(raw) != "" {
		lastUpdated = strings.TrimSpace(raw)
	}

	isPublic := true
	if flag, ok := fields["isPublic"].(bool); ok && !flag {
		isPublic = false
	}

	var owner *string
	if ownerID != nil {
		id := *ownerID
		owner = &id
	}

	return domain.Company{
		CompanyName:            texts["companyName"],
		RegistrationIdentifier: texts["krsNIPorHRB"],
		Status:                 texts["status"],
		Description:            texts["description"],
		Country:                texts["country"],
		Industry:               texts["industry"],
		EmployeeCount:          texts["employeeCount"],
		FoundedYear:            year,
		Address:                texts["address"],
		Website:                texts["website"],
		ContactEmail:           texts["contactEmail"],
		PhoneNumber:            texts["phoneNumber"],
		Revenue:                texts["revenue"],
		Management:             parseStringList(fields["management"]),
		ProductsAndServices:    parseStringList(fields["productsAndServices"]),
		TechnologiesUsed:       parseStringList(fields["technologiesUsed"]),
		LastUpdated:            lastUpdated,
		OwnerID:                owner,
		IsPublic:               isPublic,
	}, nil
}

func (s *CompanyService) Create(ctx context.Context, payload any, ownerID string) (domain.Company, error) {
	company, err := s.Prepare(payload, &ownerID)
	if err != nil {
		return domain.Company{}, err
	}
	s.stamp(&company, s.now())
	if err := s.companies.Insert(ctx, company); err != nil {
		return domain.Company{}, err
	}
	s.logger.Info("company created",
		zap.String("company_id", company.ID),
		zap.String("owner_id", ownerID),
		zap.Bool("is_public", company.IsPublic),
	)
	return company, nil
}

// Import valida todo el lote antes de escribir y lo inserta en una sola transacción.
// Si algún elemento falla no se persiste ninguno. ownerID vacío deja los registros sin dueño.
func (s *CompanyService) Import(ctx context.Context, payloads []any, ownerID string) ([]domain.Company, error) {
	if s.maxImport > 0 && len(payloads) > s.maxImport {
		return nil, ErrImportTooLarge
	}

	var owner *string
	if ownerID != "" {
		owner = &ownerID
	}
	now := s.now()
	companies := make([]domain.Company, 0, len(payloads))
	for i, payload := range payloads {
		company, err := s.Prepare(payload, owner)
		if err != nil {
			return nil, &ImportError{Index: i, Err: err}
		}
		s.stamp(&company, now)
		companies = append(companies, company)
	}

	if err := s.companies.InsertMany(ctx, companies); err != nil {
		return nil, err
	}
	s.logger.Info("companies imported", zap.String("owner_id", ownerID), zap.Int("count", len(companies)))
	return companies, nil
}

func (s *CompanyService) ListPublic(ctx context.Context) ([]domain.Company, error) {
	return s.companies.ListPublic(ctx)
}

func (s *CompanyService) ListOwnedBy(ctx context.Context, ownerID string) ([]domain.Company, error) {
	return s.companies.ListByOwner(ctx, ownerID)
}

// Get devuelve ErrCompanyForbidden cuando el registro es privado y viewer no es el dueño.
func (s *CompanyService) Get(ctx context.Context, id string, viewer *domain.Identity) (domain.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Company{}, ErrCompanyNotFound
		}
		return domain.Company{}, err
	}
	if !company.VisibleTo(viewer) {
		return domain.Company{}, ErrCompanyForbidden
	}
	return company, nil
}

func (s *CompanyService) stamp(company *domain.Company, now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	company.ID = uuid.NewString()
	company.CreatedAt = now
	company.UpdatedAt = now
}

// parseFoundedYear acepta números o strings numéricos con valor entero positivo.
func parseFoundedYear(value any) (int, bool) {
	var f float64
	switch v := value.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return checkYear(float64(n))
		}
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	return checkYear(f)
}

func checkYear(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f > float64(maxFoundedYear) {
		return 0, false
	}
	return int(f), true
}

// parseStringList normaliza arrays o strings separados por comas; cualquier otro valor da lista vacía.
func parseStringList(value any) []string {
	out := make([]string, 0)
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if s := strings.TrimSpace(stringifyListItem(item)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// stringifyListItem convierte un elemento como lo haría String() en JavaScript:
// arrays unidos por comas, objetos como "[object Object]" y números en su forma canónica.
func stringifyListItem(item any) string {
	if item == nil {
		return "null"
	}
	return jsString(item)
}

func jsString(item any) string {
	switch v := item.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String()
		}
		return formatListNumber(f)
	case float64:
		return formatListNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = jsString(elem)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return fmt.Sprint(v)
	}
}

func formatListNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
