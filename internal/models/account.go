package models

import (
	"time"
)

// Account is a row in the users table. An account belongs to an employee and
// carries the credential and lockout state mutated by the authentication
// engine. Profile fields are resolved by a left join against employees and
// roles; they are zero-valued when the account has no employee record.
type Account struct {
	ID             string
	Username       string
	PasswordHash   string // empty when no password has been provisioned
	RoleID         int
	Enabled        bool
	FailedAttempts int
	LockedUntil    *time.Time
	Online         bool
	EmployeeID     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Joined employee profile attributes
	FullName   string
	Email      string
	Department string
}

// IsLocked reports whether the account's temporary lock is still in effect.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
