package services

import "time"

// LockoutPolicy is the exponential-backoff brute-force mitigation applied to
// the per-account failed-attempt counter. Once the counter reaches the
// threshold, every further failure re-locks the account; the duration doubles
// each time the counter crosses another full threshold window: failures 5
// through 9 lock for the base duration, 10 through 14 for twice the base,
// 15 through 19 for four times, and so on.
type LockoutPolicy struct {
	Threshold int
	Base      time.Duration
}

// DefaultLockoutPolicy matches the production configuration defaults.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: 5, Base: 10 * time.Minute}
}

// ShouldLock reports whether a counter value that just landed on
// failedAttempts triggers a lock. Any value at or past the threshold locks,
// so an expired lock gives no free guesses: the very next failure re-locks.
func (p LockoutPolicy) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= p.Threshold
}

// LockDuration computes the backoff for a counter value that triggered a
// lock: base * 2^floor((failedAttempts - threshold) / threshold).
func (p LockoutPolicy) LockDuration(failedAttempts int) time.Duration {
	if failedAttempts < p.Threshold {
		return 0
	}
	exponent := (failedAttempts - p.Threshold) / p.Threshold
	return p.Base * time.Duration(1<<exponent)
}
