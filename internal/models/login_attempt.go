package models

import "time"

// LoginAttempt is an append-only audit record. Exactly one row is written per
// authentication call that reaches the account lookup, whether the username
// resolved or not.
type LoginAttempt struct {
	ID          string
	AccountID   *string // nil when the username did not resolve to an account
	Username    string
	AttemptTime time.Time
	Success     bool
	IPAddress   string
	UserAgent   string // human-readable client descriptor, not the raw header
	GeoLabel    string // coarse location: reverse-lookup result, "Localhost" or "Unknown"
}
