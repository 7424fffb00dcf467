package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"company-directory/internal/domain"
	"company-directory/internal/repository"
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

// dummyPasswordHash iguala el coste de un login con usuario inexistente.
var dummyPasswordHash = strings.Repeat("00", passwordSaltBytes) + ":" + strings.Repeat("00", passwordKeyBytes)

var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrUsernameTooShort   = errors.New("username too short")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrCredentialsMissing = errors.New("username and password are required")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// AuthResult es lo que devuelve un registro o login exitoso.
type AuthResult struct {
	User    domain.User
	Session domain.Session
}

// AuthService aplica las reglas de registro y login.
type AuthService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	sessions *SessionService
	limiter  LoginLimiter
	verify   func(password, stored string) bool
	now      func() time.Time
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, sessions *SessionService, limiter LoginLimiter) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		logger:   logger,
		users:    users,
		sessions: sessions,
		limiter:  limiter,
		verify:   VerifyPassword,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return AuthResult{}, ErrUsernameRequired
	}
	if utf8.RuneCountInString(username) < minUsernameLength {
		return AuthResult{}, ErrUsernameTooShort
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return AuthResult{}, ErrPasswordTooShort
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return AuthResult{}, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return AuthResult{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().Truncate(time.Microsecond),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, ErrUsernameTaken
		}
		return AuthResult{}, err
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return AuthResult{User: user, Session: session}, nil
}

// Login solo cuenta los fallos contra el limitador; un login correcto los olvida.
func (s *AuthService) Login(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AuthResult{}, ErrCredentialsMissing
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, username) {
		s.logger.Warn("login throttled", zap.String("username", username))
		return AuthResult{}, ErrTooManyAttempts
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, err
		}
		s.verify(password, dummyPasswordHash)
		s.loginFailed(ctx, username)
		return AuthResult{}, ErrInvalidCredentials
	}
	if !s.verify(password, user.PasswordHash) {
		s.loginFailed(ctx, username)
		return AuthResult{}, ErrInvalidCredentials
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	if s.limiter != nil {
		s.limiter.Reset(ctx, username)
	}
	return AuthResult{User: user, Session: session}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username string) {
	if s.limiter != nil {
		s.limiter.Fail(ctx, username)
	}
}
