package domain

import "time"

// SubjectType differentiates token holders.
type SubjectType string

const (
	SubjectTypeAdmin SubjectType = "ADMIN"
)

// Session is an authenticated admin session derived from a verified token.
type Session struct {
	Email     string
	Subject   SubjectType
	IssuedAt  time.Time
	ExpiresAt time.Time
}
