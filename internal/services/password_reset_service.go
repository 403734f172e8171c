package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Hayal27/chrm-server/internal/models"
	pkgauth "github.com/Hayal27/chrm-server/pkg/auth"
	pkglogger "github.com/Hayal27/chrm-server/pkg/logger"
)

const (
	resetCodeDigits     = 6
	resetDispatchWindow = 30 * time.Second
)

// PasswordResetRepository defines the reset-request store operations
type PasswordResetRepository interface {
	Upsert(ctx context.Context, req *models.PasswordResetRequest) error
	GetLive(ctx context.Context, accountID, code string) (*models.PasswordResetRequest, error)
	ConsumeAndResetPassword(ctx context.Context, accountID, code, newPasswordHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// PasswordResetService handles the request-code / reset-password cycle
type PasswordResetService struct {
	accounts    AccountRepository
	resets      PasswordResetRepository
	email       EmailService
	codeTTL     time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(accounts AccountRepository, resets PasswordResetRepository, email EmailService, codeTTL time.Duration, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *PasswordResetService {
	return &PasswordResetService{
		accounts:    accounts,
		resets:      resets,
		email:       email,
		codeTTL:     codeTTL,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RequestReset issues a fresh one-time code for the account and mails it.
//
// The code row is persisted before the mail is handed off, and the dispatch
// runs on its own goroutine with its own deadline, so a slow or failing mail
// provider can neither delay the response nor invalidate the stored code. At
// most one live code exists per account; requesting again replaces the
// previous code immediately.
func (s *PasswordResetService) RequestReset(ctx context.Context, username string) error {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if account.Email == "" {
		s.logger.Warn("password reset requested for account with no email on file",
			slog.String("account_id", account.ID))
		return models.ErrBadRequest
	}

	code, err := generateResetCode()
	if err != nil {
		s.logger.Error("failed to generate reset code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.codeTTL)
	req := &models.PasswordResetRequest{
		AccountID: account.ID,
		Code:      code,
		ExpiresAt: expiresAt,
	}

	if err := s.resets.Upsert(ctx, req); err != nil {
		s.logger.Error("failed to store reset request", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogPasswordReset("reset_requested", account.ID, true)

	go s.dispatchCode(account.ID, account.Email, code, expiresAt)

	return nil
}

// dispatchCode delivers the code off the request path. Delivery failure is
// surfaced through audit logging only; the stored code stays valid.
func (s *PasswordResetService) dispatchCode(accountID, email, code string, expiresAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), resetDispatchWindow)
	defer cancel()

	if err := s.email.SendPasswordResetCode(ctx, email, code, expiresAt); err != nil {
		s.logger.Error("reset code dispatch failed",
			slog.String("account_id", accountID),
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		s.auditLogger.LogPasswordReset("reset_code_dispatched", accountID, false)
		return
	}

	s.auditLogger.LogPasswordReset("reset_code_dispatched", accountID, true)
}

// ResetPassword consumes a live code and installs the new credential.
//
// Wrong code, expired code and no pending request all return the same
// invalid-code error. A successful reset also clears the failed-attempt
// counter and any active lock, and the consumed code can never be replayed.
func (s *PasswordResetService) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.resets.GetLive(ctx, account.ID, code); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogPasswordReset("reset_rejected", account.ID, false)
			return models.ErrResetCodeInvalid
		}
		s.logger.Error("failed to look up reset request", slog.Any("error", err))
		return models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.resets.ConsumeAndResetPassword(ctx, account.ID, code, hash); err != nil {
		// The consume transaction re-checks the code, so a request issued
		// between the lookup above and the consume invalidates this one.
		if errors.Is(err, models.ErrResetCodeInvalid) {
			s.auditLogger.LogPasswordReset("reset_rejected", account.ID, false)
			return models.ErrResetCodeInvalid
		}
		s.logger.Error("failed to apply password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogPasswordReset("reset_completed", account.ID, true)
	return nil
}

// PurgeExpired removes dead reset rows, called by the background cleanup loop
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.resets.DeleteExpired(ctx)
}

// generateResetCode draws a uniformly random 6-digit numeric code from the
// system CSPRNG.
func generateResetCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < resetCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", resetCodeDigits, n), nil
}
