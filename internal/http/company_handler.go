package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"company-directory/internal/domain"
	"company-directory/internal/service"
)

// CompanyHandler expone lectura, alta e importación de empresas.
type CompanyHandler struct {
	logger    *zap.Logger
	companies *service.CompanyService
	authn     *Authenticator
}

func NewCompanyHandler(logger *zap.Logger, companies *service.CompanyService, authn *Authenticator) *CompanyHandler {
	return &CompanyHandler{
		logger:    logger,
		companies: companies,
		authn:     authn,
	}
}

// List maneja GET /api/companies; con ?mine=true lista las del usuario autenticado.
func (h *CompanyHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		companies []domain.Company
		err       error
	)
	if c.Query("mine") == "true" {
		identity, authErr := h.authn.Authenticate(c.Request)
		if authErr != nil {
			h.internalError(c, "authenticate request failed", authErr)
			return
		}
		if identity == nil {
			respondMessage(c, http.StatusUnauthorized, msgAuthRequired)
			return
		}
		companies, err = h.companies.ListOwnedBy(ctx, identity.UserID)
	} else {
		companies, err = h.companies.ListPublic(ctx)
	}
	if err != nil {
		h.internalError(c, "list companies failed", err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

// Get maneja GET /api/companies/:id.
func (h *CompanyHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, msgInvalidID)
		return
	}
	viewer, err := h.authn.Authenticate(c.Request)
	if err != nil {
		h.internalError(c, "authenticate request failed", err)
		return
	}

	company, err := h.companies.Get(c.Request.Context(), id.String(), viewer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCompanyNotFound):
			respondMessage(c, http.StatusNotFound, "Company not found")
		case errors.Is(err, service.ErrCompanyForbidden):
			respondMessage(c, http.StatusForbidden, "Access to this company is restricted")
		default:
			h.internalError(c, "get company failed", err)
		}
		return
	}
	c.JSON(http.StatusOK, company)
}

// Create maneja POST /api/companies (requiere RequireAuth).
func (h *CompanyHandler) Create(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, msgAuthRequired)
		return
	}
	payload, ok := readPayload(c, h.logger)
	if !ok {
		return
	}

	company, err := h.companies.Create(c.Request.Context(), payload, identity.UserID)
	if err != nil {
		var fieldErr *service.FieldError
		if errors.As(err, &fieldErr) {
			respondMessage(c, http.StatusBadRequest, fieldErr.Message)
			return
		}
		h.internalError(c, "create company failed", err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// Import maneja POST /api/companies/import (requiere RequireAuth).
// Acepta un array o {"companies": [...]}.
func (h *CompanyHandler) Import(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, msgAuthRequired)
		return
	}
	payload, ok := readPayload(c, h.logger)
	if !ok {
		return
	}
	items, ok := importItems(payload)
	if !ok {
		respondMessage(c, http.StatusBadRequest, msgExpectedArray)
		return
	}

	companies, err := h.companies.Import(c.Request.Context(), items, identity.UserID)
	if err != nil {
		var importErr *service.ImportError
		switch {
		case errors.As(err, &importErr):
			respondMessage(c, http.StatusBadRequest,
				fmt.Sprintf("Failed to import company at index %d: %s", importErr.Index, importErr.Err.Error()))
		case errors.Is(err, service.ErrImportTooLarge):
			respondMessage(c, http.StatusBadRequest,
				fmt.Sprintf("Import is limited to %d companies per request", h.companies.MaxImportItems()))
		default:
			h.internalError(c, "import companies failed", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"inserted": len(companies), "companies": companies})
}

func importItems(payload any) ([]any, bool) {
	switch v := payload.(type) {
	case []any:
		return v, true
	case map[string]any:
		items, ok := v["companies"].([]any)
		return items, ok
	default:
		return nil, false
	}
}

func (h *CompanyHandler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	respondMessage(c, http.StatusInternalServerError, msgInternal)
}
