package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockoutPolicy_ShouldLock(t *testing.T) {
	policy := DefaultLockoutPolicy()

	tests := []struct {
		name     string
		failed   int
		expected bool
	}{
		{"below threshold", 4, false},
		{"at threshold", 5, true},
		{"past threshold", 6, true},
		{"end of first window", 9, true},
		{"second window", 10, true},
		{"third window", 15, true},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.ShouldLock(tt.failed))
		})
	}
}

func TestLockoutPolicy_LockDuration_DoublesPerWindow(t *testing.T) {
	policy := DefaultLockoutPolicy()

	assert.Equal(t, 10*time.Minute, policy.LockDuration(5))
	assert.Equal(t, 10*time.Minute, policy.LockDuration(9))
	assert.Equal(t, 20*time.Minute, policy.LockDuration(10))
	assert.Equal(t, 40*time.Minute, policy.LockDuration(15))
	assert.Equal(t, 80*time.Minute, policy.LockDuration(20))
}

func TestLockoutPolicy_LockDuration_BelowThreshold(t *testing.T) {
	policy := DefaultLockoutPolicy()

	assert.Equal(t, time.Duration(0), policy.LockDuration(4))
}
