package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/griga-events/ticketing/internal/domain"
	apperrors "github.com/griga-events/ticketing/pkg/util/errorutil"
)

const sessionKey = "admin_session"

// SessionVerifier turns a bearer token into a session.
type SessionVerifier interface {
	Authenticate(token string) (*domain.Session, error)
}

// CredentialChecker verifies the admin email and password.
type CredentialChecker interface {
	Configured() bool
	CheckCredentials(email, password string) error
}

// AdminMiddleware guards admin routes.
type AdminMiddleware struct {
	sessions    SessionVerifier
	credentials CredentialChecker
	realm       string
}

// NewAdminMiddleware constructs middleware.
func NewAdminMiddleware(sessions SessionVerifier, credentials CredentialChecker, realm string) *AdminMiddleware {
	return &AdminMiddleware{sessions: sessions, credentials: credentials, realm: realm}
}

// RequireSession enforces a valid bearer session token.
func (m *AdminMiddleware) RequireSession(c *fiber.Ctx) error {
	if !m.credentials.Configured() {
		return apperrors.NewConfigError(ErrNotConfigured.Error())
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized(ErrInvalidToken.Error())
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized(ErrInvalidToken.Error())
	}

	session, err := m.sessions.Authenticate(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return apperrors.NewConfigError(err.Error())
		}
		return apperrors.NewUnauthorized(ErrInvalidToken.Error())
	}

	c.Locals(sessionKey, session)
	return c.Next()
}

// RequireBasic challenges for HTTP Basic credentials. The username is the admin email.
func (m *AdminMiddleware) RequireBasic() fiber.Handler {
	gate := basicauth.New(basicauth.Config{
		Realm: m.realm,
		Authorizer: func(user, pass string) bool {
			return m.credentials.CheckCredentials(user, pass) == nil
		},
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, fmt.Sprintf("Basic realm=%q", m.realm))
			return apperrors.NewUnauthorized("authentication required")
		},
	})

	return func(c *fiber.Ctx) error {
		if !m.credentials.Configured() {
			return apperrors.NewConfigError(ErrNotConfigured.Error())
		}
		return gate(c)
	}
}

// SessionFromContext retrieves the authenticated admin session.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok
}
