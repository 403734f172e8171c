package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Hayal27/chrm-server/internal/auth"
	"github.com/Hayal27/chrm-server/internal/clientinfo"
	"github.com/Hayal27/chrm-server/internal/models"
	pkgauth "github.com/Hayal27/chrm-server/pkg/auth"
	pkglogger "github.com/Hayal27/chrm-server/pkg/logger"
)

// AccountRepository defines the account store operations the auth flows need
type AccountRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	MarkLoginSuccess(ctx context.Context, id string) error
	RecordFailedAttempt(ctx context.Context, id string) (int, error)
	SetLockedUntil(ctx context.Context, id string, until time.Time) error
	SetOnline(ctx context.Context, id string, online bool) error
}

// LoginAttemptRepository defines the append-only attempt log operations
type LoginAttemptRepository interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
}

// AuthService handles the login, lockout and logout business logic
type AuthService struct {
	accounts    AccountRepository
	attempts    LoginAttemptRepository
	deriver     *clientinfo.Deriver
	tm          *auth.TokenManager
	policy      LockoutPolicy
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(accounts AccountRepository, attempts LoginAttemptRepository, deriver *clientinfo.Deriver, tm *auth.TokenManager, policy LockoutPolicy, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		accounts:    accounts,
		attempts:    attempts,
		deriver:     deriver,
		tm:          tm,
		policy:      policy,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// AccountResponse represents an account in the HTTP response
type AccountResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	RoleID     int    `json:"role_id"`
	FullName   string `json:"full_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
}

// LoginResult is what a successful authentication returns
type LoginResult struct {
	Token   string           `json:"token"`
	Account *AccountResponse `json:"account"`
}

func toAccountResponse(account *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:         account.ID,
		Username:   account.Username,
		RoleID:     account.RoleID,
		FullName:   account.FullName,
		Email:      account.Email,
		Department: account.Department,
	}
}

// Authenticate verifies credentials and enforces the lockout policy.
//
// Every call that reaches the account lookup appends exactly one attempt row,
// whether or not the login succeeds; the only exception is the
// password-not-set administrative state, which returns before any row is
// written. Unknown user and wrong password return the same error so callers
// cannot probe for valid login names. Crossing the lockout threshold is
// silent on the triggering call; the caller only sees the lock on the next
// attempt.
func (s *AuthService) Authenticate(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if password == "" {
		return nil, models.ErrMissingPassword
	}

	// Best effort only. Neither label may block or fail the attempt record.
	geoLabel := s.deriver.GeoLabel(ctx, sourceAddr)
	agent := clientinfo.DescribeUserAgent(rawUserAgent)
	now := time.Now()

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if err := s.recordAttempt(ctx, nil, username, false, sourceAddr, agent, geoLabel); err != nil {
				return nil, models.ErrInternalServer
			}
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				Username:      username,
				IPAddress:     sourceAddr,
				UserAgent:     agent,
				GeoLabel:      geoLabel,
				Success:       false,
				FailureReason: "unknown_user",
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.IsLocked(now) {
		if err := s.recordAttempt(ctx, &account.ID, username, false, sourceAddr, agent, geoLabel); err != nil {
			return nil, models.ErrInternalServer
		}
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_blocked",
			AccountID:     account.ID,
			Username:      username,
			IPAddress:     sourceAddr,
			UserAgent:     agent,
			GeoLabel:      geoLabel,
			Success:       false,
			FailureReason: "account_locked",
		})
		return nil, &models.AccountLockedError{Until: *account.LockedUntil}
	}

	if account.PasswordHash == "" {
		// Administrative data-integrity state, not a credential failure.
		// This is the one branch past the lookup that writes no attempt row.
		s.logger.Warn("login attempt against account with no password set",
			slog.String("account_id", account.ID))
		return nil, models.ErrPasswordNotSet
	}

	passwordOK := pkgauth.ComparePassword(account.PasswordHash, password) == nil

	if passwordOK && account.Enabled {
		if err := s.accounts.MarkLoginSuccess(ctx, account.ID); err != nil {
			s.logger.Error("failed to persist login success", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if err := s.recordAttempt(ctx, &account.ID, username, true, sourceAddr, agent, geoLabel); err != nil {
			return nil, models.ErrInternalServer
		}

		token, err := s.tm.Generate(account.ID, account.RoleID)
		if err != nil {
			s.logger.Error("failed to generate token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType: "login_success",
			AccountID: account.ID,
			Username:  username,
			IPAddress: sourceAddr,
			UserAgent: agent,
			GeoLabel:  geoLabel,
			Success:   true,
		})

		return &LoginResult{Token: token, Account: toAccountResponse(account)}, nil
	}

	// Wrong password, or a disabled account even with the right password.
	failed, err := s.accounts.RecordFailedAttempt(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to persist failed attempt", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if s.policy.ShouldLock(failed) {
		until := now.Add(s.policy.LockDuration(failed))
		if err := s.accounts.SetLockedUntil(ctx, account.ID, until); err != nil {
			s.logger.Error("failed to persist lock expiry", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		s.auditLogger.LogAccountAction("account_locked", account.ID, map[string]string{
			"failed_attempts": strconv.Itoa(failed),
			"locked_until":    until.UTC().Format(time.RFC3339),
		})
	}

	if err := s.recordAttempt(ctx, &account.ID, username, false, sourceAddr, agent, geoLabel); err != nil {
		return nil, models.ErrInternalServer
	}

	reason := "wrong_password"
	if passwordOK {
		reason = "account_disabled"
	}
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		AccountID:     account.ID,
		Username:      username,
		IPAddress:     sourceAddr,
		UserAgent:     agent,
		GeoLabel:      geoLabel,
		Success:       false,
		FailureReason: reason,
	})

	return nil, models.ErrInvalidCredentials
}

// Logout marks the account offline. Idempotent: logging out an account that
// is already offline succeeds. Tokens are not invalidated; they expire
// naturally.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	if err := s.accounts.SetOnline(ctx, accountID, false); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to mark account offline", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("logout", accountID, nil)
	return nil
}

// GetAccount resolves the account for an authenticated request
func (s *AuthService) GetAccount(ctx context.Context, accountID string) (*AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return toAccountResponse(account), nil
}

func (s *AuthService) recordAttempt(ctx context.Context, accountID *string, username string, success bool, ip, agent, geoLabel string) error {
	attempt := &models.LoginAttempt{
		AccountID: accountID,
		Username:  username,
		Success:   success,
		IPAddress: ip,
		UserAgent: agent,
		GeoLabel:  geoLabel,
	}
	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Error("failed to append login attempt", slog.Any("error", err))
		return err
	}
	return nil
}
