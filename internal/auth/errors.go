package auth

import "errors"

var (
	// ErrNotConfigured means the admin identity or token secret is absent.
	ErrNotConfigured = errors.New("admin authentication is not configured")
	// ErrInvalidCredentials is returned for any failed login, whatever part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, forged and expired session tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)
