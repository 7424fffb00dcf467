package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"company-directory/internal/service"
)

// AuthHandler expone registro, login y logout.
type AuthHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
	sessions *service.SessionService
}

func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		authServ: authServ,
		sessions: sessions,
	}
}

type authUserResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type authResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      authUserResponse `json:"user"`
}

var registerMessages = map[error]string{
	service.ErrUsernameRequired: "Username is required",
	service.ErrUsernameTooShort: "Username must be at least 3 characters long",
	service.ErrPasswordTooShort: "Password must be at least 8 characters long",
}

// Register maneja POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	payload, ok := readPayload(c, h.logger)
	if !ok {
		return
	}

	res, err := h.authServ.Register(c.Request.Context(), stringField(payload, "username"), stringField(payload, "password"))
	if err != nil {
		for target, msg := range registerMessages {
			if errors.Is(err, target) {
				respondMessage(c, http.StatusBadRequest, msg)
				return
			}
		}
		if errors.Is(err, service.ErrUsernameTaken) {
			respondMessage(c, http.StatusConflict, "This username is already registered")
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		respondMessage(c, http.StatusInternalServerError, msgInternal)
		return
	}

	createdAt := res.User.CreatedAt
	c.JSON(http.StatusCreated, authResponse{
		Token:     res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt,
		User:      authUserResponse{ID: res.User.ID, Username: res.User.Username, CreatedAt: &createdAt},
	})
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	payload, ok := readPayload(c, h.logger)
	if !ok {
		return
	}

	res, err := h.authServ.Login(c.Request.Context(), stringField(payload, "username"), stringField(payload, "password"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCredentialsMissing):
			respondMessage(c, http.StatusBadRequest, "Username and password are required")
		case errors.Is(err, service.ErrInvalidCredentials):
			respondMessage(c, http.StatusUnauthorized, "Invalid username or password")
		case errors.Is(err, service.ErrTooManyAttempts):
			respondMessage(c, http.StatusTooManyRequests, "Too many login attempts, try again later")
		default:
			h.logger.Error("login failed", zap.Error(err))
			respondMessage(c, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Token:     res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt,
		User:      authUserResponse{ID: res.User.ID, Username: res.User.Username},
	})
}

// Logout maneja POST /api/auth/logout (requiere RequireAuth).
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(tokenKey)
	if err := h.sessions.Revoke(c.Request.Context(), token); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		respondMessage(c, http.StatusInternalServerError, msgInternal)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me maneja GET /api/auth/me (requiere RequireAuth).
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, msgAuthRequired)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity})
}
