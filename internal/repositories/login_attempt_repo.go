package repositories

import (
	"context"
	"time"

	"github.com/Hayal27/chrm-server/internal/database"
	"github.com/Hayal27/chrm-server/internal/models"
	"github.com/google/uuid"
)

// LoginAttemptRepository handles the append-only login audit trail
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Record appends a login attempt. Rows are never updated or deleted here.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.AttemptTime.IsZero() {
		attempt.AttemptTime = time.Now()
	}

	query := `
		INSERT INTO login_attempts (id, account_id, username, attempt_time, success, ip_address, user_agent, geo_label)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID,
		attempt.AccountID,
		attempt.Username,
		attempt.AttemptTime,
		attempt.Success,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.GeoLabel,
	)

	return err
}

// CountByUsername returns the number of attempts recorded for a login name
func (r *LoginAttemptRepository) CountByUsername(ctx context.Context, username string) (int, error) {
	query := `SELECT COUNT(*) FROM login_attempts WHERE username = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, username).Scan(&count)
	return count, err
}

// CountFailedSince returns failed attempts for a login name from a point in
// time, used by the ops dashboard to spot brute-force bursts.
func (r *LoginAttemptRepository) CountFailedSince(ctx context.Context, username string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = $1 AND success = FALSE AND attempt_time >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, username, since).Scan(&count)
	return count, err
}
