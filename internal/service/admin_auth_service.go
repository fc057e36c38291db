package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/griga-events/ticketing/internal/auth"
	"github.com/griga-events/ticketing/internal/clock"
	"github.com/griga-events/ticketing/internal/config"
	"github.com/griga-events/ticketing/internal/domain"
)

// AdminAuthService authenticates the single configured administrator.
type AdminAuthService struct {
	email      string
	hash       string
	configured bool
	tokens     *auth.TokenManager
}

// NewAdminAuthService builds the service. A missing identity, secret or an unparsable
// password hash leaves it unconfigured, and every call fails closed.
func NewAdminAuthService(cfg config.AdminConfig, clk clock.Clock) *AdminAuthService {
	_, hashErr := bcrypt.Cost([]byte(cfg.PasswordHash))
	return &AdminAuthService{
		email:      strings.TrimSpace(cfg.Email),
		hash:       cfg.PasswordHash,
		configured: cfg.Configured() && hashErr == nil,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL(), clk),
	}
}

// Configured reports whether admin authentication can succeed at all.
func (s *AdminAuthService) Configured() bool {
	return s.configured
}

// TokenTTL returns the session lifetime.
func (s *AdminAuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// CheckCredentials compares email case-insensitively and the password against the
// bcrypt hash. The hash comparison runs even when the email is wrong.
func (s *AdminAuthService) CheckCredentials(email, password string) error {
	if !s.configured {
		return auth.ErrNotConfigured
	}
	emailOK := strings.EqualFold(strings.TrimSpace(email), s.email)
	passwordErr := auth.ComparePassword(s.hash, password)
	if !emailOK || passwordErr != nil {
		return auth.ErrInvalidCredentials
	}
	return nil
}

// Login verifies credentials and issues a session token.
func (s *AdminAuthService) Login(_ context.Context, email, password string) (string, time.Time, error) {
	if err := s.CheckCredentials(email, password); err != nil {
		return "", time.Time{}, err
	}
	return s.tokens.GenerateToken(s.email, domain.SubjectTypeAdmin)
}

// Authenticate verifies a bearer token and returns the admin session.
func (s *AdminAuthService) Authenticate(token string) (*domain.Session, error) {
	if !s.configured {
		return nil, auth.ErrNotConfigured
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	if claims.SubjectType != domain.SubjectTypeAdmin || !strings.EqualFold(claims.Subject, s.email) {
		return nil, auth.ErrInvalidToken
	}

	session := &domain.Session{Email: claims.Subject, Subject: claims.SubjectType}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return session, nil
}
