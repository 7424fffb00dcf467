package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"company-directory/internal/domain"
	"company-directory/internal/repository"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	sessionTokenBytes = 48
)

// SessionService emite, resuelve y purga tokens de sesión opacos.
type SessionService struct {
	logger   *zap.Logger
	sessions repository.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionService(logger *zap.Logger, sessions repository.SessionRepository, ttl time.Duration) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		logger:   logger,
		sessions: sessions,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PurgeExpired borra las sesiones con expires_at <= now.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

// Create purga las sesiones vencidas y emite un token nuevo para userID.
func (s *SessionService) Create(ctx context.Context, userID string) (domain.Session, error) {
	if _, err := s.PurgeExpired(ctx); err != nil {
		return domain.Session{}, err
	}

	token, err := generateSessionToken()
	if err != nil {
		return domain.Session{}, err
	}
	now := s.now().Truncate(time.Microsecond)
	session := domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Resolve devuelve nil sin error cuando el token no existe o ya expiró.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	identity, err := s.sessions.FindIdentity(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &identity, nil
}

// Revoke invalida un token explícitamente (logout).
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// StartSweeper purga sesiones vencidas cada interval hasta que ctx termine.
// Con interval <= 0 no hace nada; la purga perezosa de Create sigue activa.
func (s *SessionService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				n, err := s.PurgeExpired(tickCtx)
				cancel()
				if err != nil {
					s.logger.Warn("session sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					s.logger.Info("session sweep purged expired sessions", zap.Int64("count", n))
				}
			}
		}
	}()
}

func generateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
