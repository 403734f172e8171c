package repositories

import (
	"context"

	"github.com/Hayal27/chrm-server/internal/database"
	"github.com/Hayal27/chrm-server/internal/models"
	"github.com/jackc/pgx/v5"
)

// PasswordResetRepository handles the one-live-code-per-account reset table
type PasswordResetRepository struct {
	db *database.DB
}

// NewPasswordResetRepository creates a new PasswordResetRepository
func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Upsert writes the live reset request for an account. The table is keyed by
// account id, so a re-request overwrites the previous code and expiry and the
// old code stops working immediately.
func (r *PasswordResetRepository) Upsert(ctx context.Context, req *models.PasswordResetRequest) error {
	query := `
		INSERT INTO password_resets (account_id, code, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_id)
		DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, created_at = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query, req.AccountID, req.Code, req.ExpiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// GetLive fetches the request matching both the account and the exact code,
// provided its expiry is still in the future. Wrong code, expired code and no
// request at all are indistinguishable: all return ErrNotFound.
func (r *PasswordResetRepository) GetLive(ctx context.Context, accountID, code string) (*models.PasswordResetRequest, error) {
	query := `
		SELECT account_id, code, expires_at, created_at
		FROM password_resets
		WHERE account_id = $1 AND code = $2 AND expires_at > NOW()
	`

	var req models.PasswordResetRequest
	err := r.db.Pool.QueryRow(ctx, query, accountID, code).Scan(
		&req.AccountID, &req.Code, &req.ExpiresAt, &req.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &req, nil
}

// ConsumeAndResetPassword applies the new credential and deletes the live
// request in one transaction: the account gets the new hash, its
// failed-attempt counter and lock expiry are cleared, and the code can never
// be replayed. The delete re-asserts the full code predicate inside the
// transaction, so a code superseded or expired between lookup and consume
// fails with ErrResetCodeInvalid instead of silently eating the newer code.
// Nothing is mutated if any statement fails.
func (r *PasswordResetRepository) ConsumeAndResetPassword(ctx context.Context, accountID, code, newPasswordHash string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		deleted, err := tx.Exec(ctx, `
			DELETE FROM password_resets
			WHERE account_id = $1 AND code = $2 AND expires_at > NOW()
		`, accountID, code)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if deleted.RowsAffected() == 0 {
			return models.ErrResetCodeInvalid
		}

		result, err := tx.Exec(ctx, `
			UPDATE users
			SET password_hash = $1, failed_attempts = 0, locked_until = NULL, updated_at = NOW()
			WHERE id = $2
		`, newPasswordHash, accountID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		return nil
	})
}

// DeleteExpired removes requests whose expiry has passed. Expired rows are
// already unusable; this keeps the table from accumulating dead codes.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
