package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Authentication failures
	ErrMissingPassword    = errors.New("password is required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordNotSet     = errors.New("no password set for this account")

	// Password reset failures. Wrong code, expired code and no live request
	// all collapse into the same error on purpose.
	ErrResetCodeInvalid = errors.New("invalid or expired reset code")
)

// AccountLockedError is returned when an attempt hits an account whose lock
// expiry is still in the future. It is only produced on attempts after the
// lock was set; the attempt that triggers the lock gets the generic
// invalid-credentials failure.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minute(s)", e.RemainingMinutes())
}

// RemainingMinutes returns the remaining lock duration rounded up to whole
// minutes, never less than 1 while the lock holds.
func (e *AccountLockedError) RemainingMinutes() int {
	secs := int(time.Until(e.Until).Seconds())
	if secs <= 0 {
		return 0
	}
	return (secs + 59) / 60
}
