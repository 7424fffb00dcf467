package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"company-directory/internal/domain"
)

const (
	identityKey = "auth_identity"
	tokenKey    = "auth_token"
)

// IdentityResolver traduce un token opaco a la identidad de su dueño.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Identity, error)
}

// Authenticator resuelve el header Authorization: Bearer <token>.
type Authenticator struct {
	logger   *zap.Logger
	sessions IdentityResolver
}

func NewAuthenticator(logger *zap.Logger, sessions IdentityResolver) *Authenticator {
	return &Authenticator{logger: logger, sessions: sessions}
}

// Authenticate devuelve nil, nil si no hay token o no corresponde a una sesión vigente.
func (a *Authenticator) Authenticate(r *http.Request) (*domain.Identity, error) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, nil
	}
	return a.sessions.Resolve(r.Context(), token)
}

// RequireAuth corta con 401 cuando la request no trae una sesión válida.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Authenticate(c.Request)
		if err != nil {
			a.logger.Error("authenticate request failed", zap.Error(err))
			abortWithMessage(c, http.StatusInternalServerError, msgInternal)
			return
		}
		if identity == nil {
			abortWithMessage(c, http.StatusUnauthorized, msgAuthRequired)
			return
		}
		c.Set(identityKey, identity)
		c.Set(tokenKey, bearerToken(c.GetHeader("Authorization")))
		c.Next()
	}
}

// GetIdentity obtiene la identidad guardada por RequireAuth.
func GetIdentity(c *gin.Context) (*domain.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := val.(*domain.Identity)
	return identity, ok && identity != nil
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
