package repositories

import (
	"context"
	"time"

	"github.com/Hayal27/chrm-server/internal/database"
	"github.com/Hayal27/chrm-server/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning account rows (single row or result set)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `
	u.id, u.username, u.password_hash, u.role_id, u.enabled, u.failed_attempts,
	u.locked_until, u.online, u.employee_id, u.created_at, u.updated_at,
	COALESCE(e.full_name, ''), COALESCE(e.email, ''), COALESCE(e.department, '')
`

// scanAccountRow handles nullable fields and populates an Account model
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var passwordHash *string
	var lockedUntil *time.Time
	var employeeID *string

	err := scanner.Scan(
		&account.ID, &account.Username, &passwordHash, &account.RoleID,
		&account.Enabled, &account.FailedAttempts,
		&lockedUntil, &account.Online, &employeeID,
		&account.CreatedAt, &account.UpdatedAt,
		&account.FullName, &account.Email, &account.Department,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		account.PasswordHash = *passwordHash
	}
	account.LockedUntil = lockedUntil
	account.EmployeeID = employeeID

	return &account, nil
}

// GetByUsername resolves an account by its login name, left-joined with the
// employee profile fields the login response carries.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM users u
		LEFT JOIN employees e ON e.id = u.employee_id
		WHERE u.username = $1
	`

	return scanAccountRow(r.pool.QueryRow(ctx, query, username))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM users u
		LEFT JOIN employees e ON e.id = u.employee_id
		WHERE u.id = $1
	`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

// MarkLoginSuccess applies the success-path invariant: the failed-attempt
// counter resets, any lock is cleared and the account goes online.
func (r *AccountRepository) MarkLoginSuccess(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET failed_attempts = 0, locked_until = NULL, online = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordFailedAttempt bumps the failed-attempt counter with a single atomic
// increment-and-return statement, so concurrent failures against the same
// account cannot lose updates. Returns the new counter value.
func (r *AccountRepository) RecordFailedAttempt(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE users
		SET failed_attempts = failed_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_attempts
	`

	var failedAttempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&failedAttempts); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return failedAttempts, nil
}

// SetLockedUntil sets the lock expiry after the counter crossed the threshold
func (r *AccountRepository) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	query := `UPDATE users SET locked_until = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, until, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetOnline flips the online flag. Logout calls this with false and succeeds
// whether or not the account was online.
func (r *AccountRepository) SetOnline(ctx context.Context, id string, online bool) error {
	query := `UPDATE users SET online = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, online, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
