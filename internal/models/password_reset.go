package models

import "time"

// PasswordResetRequest holds the live one-time code for an account. The table
// is keyed by account id, so re-requesting a reset overwrites the previous
// code and expiry. A consumed request is deleted; an expired one simply
// becomes unusable until overwritten.
type PasswordResetRequest struct {
	AccountID string
	Code      string // fixed-width numeric, e.g. "042917"
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the code can no longer be consumed.
func (r *PasswordResetRequest) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
