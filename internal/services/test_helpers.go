package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Hayal27/chrm-server/internal/clientinfo"
	"github.com/Hayal27/chrm-server/internal/models"
	pkgauth "github.com/Hayal27/chrm-server/pkg/auth"
	pkglogger "github.com/Hayal27/chrm-server/pkg/logger"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByUsernameFunc       func(ctx context.Context, username string) (*models.Account, error)
	GetByIDFunc             func(ctx context.Context, id string) (*models.Account, error)
	MarkLoginSuccessFunc    func(ctx context.Context, id string) error
	RecordFailedAttemptFunc func(ctx context.Context, id string) (int, error)
	SetLockedUntilFunc      func(ctx context.Context, id string, until time.Time) error
	SetOnlineFunc           func(ctx context.Context, id string, online bool) error
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) MarkLoginSuccess(ctx context.Context, id string) error {
	if m.MarkLoginSuccessFunc != nil {
		return m.MarkLoginSuccessFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) RecordFailedAttempt(ctx context.Context, id string) (int, error) {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, id)
	}
	return 1, nil
}

func (m *MockAccountRepository) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	if m.SetLockedUntilFunc != nil {
		return m.SetLockedUntilFunc(ctx, id, until)
	}
	return nil
}

func (m *MockAccountRepository) SetOnline(ctx context.Context, id string, online bool) error {
	if m.SetOnlineFunc != nil {
		return m.SetOnlineFunc(ctx, id, online)
	}
	return nil
}

// MockLoginAttemptRepository implements LoginAttemptRepository for testing
type MockLoginAttemptRepository struct {
	RecordFunc func(ctx context.Context, attempt *models.LoginAttempt) error

	Recorded []*models.LoginAttempt
}

func (m *MockLoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	m.Recorded = append(m.Recorded, attempt)
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, attempt)
	}
	return nil
}

// MockPasswordResetRepository implements PasswordResetRepository for testing
type MockPasswordResetRepository struct {
	UpsertFunc                  func(ctx context.Context, req *models.PasswordResetRequest) error
	GetLiveFunc                 func(ctx context.Context, accountID, code string) (*models.PasswordResetRequest, error)
	ConsumeAndResetPasswordFunc func(ctx context.Context, accountID, code, newPasswordHash string) error
	DeleteExpiredFunc           func(ctx context.Context) (int64, error)
}

func (m *MockPasswordResetRepository) Upsert(ctx context.Context, req *models.PasswordResetRequest) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, req)
	}
	return nil
}

func (m *MockPasswordResetRepository) GetLive(ctx context.Context, accountID, code string) (*models.PasswordResetRequest, error) {
	if m.GetLiveFunc != nil {
		return m.GetLiveFunc(ctx, accountID, code)
	}
	return nil, models.ErrNotFound
}

func (m *MockPasswordResetRepository) ConsumeAndResetPassword(ctx context.Context, accountID, code, newPasswordHash string) error {
	if m.ConsumeAndResetPasswordFunc != nil {
		return m.ConsumeAndResetPasswordFunc(ctx, accountID, code, newPasswordHash)
	}
	return nil
}

func (m *MockPasswordResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	return 0, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendPasswordResetCodeFunc func(ctx context.Context, email, code string, expiresAt time.Time) error

	Sent chan string
}

func (m *MockEmailService) SendPasswordResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	var err error
	if m.SendPasswordResetCodeFunc != nil {
		err = m.SendPasswordResetCodeFunc(ctx, email, code, expiresAt)
	}
	if m.Sent != nil {
		m.Sent <- code
	}
	return err
}

// failingResolver always errors, so geo derivation falls back to "Unknown"
// without touching the network.
type failingResolver struct{}

func (failingResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	return nil, fmt.Errorf("lookup %s: no such host", addr)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}

func newTestDeriver() *clientinfo.Deriver {
	return clientinfo.NewDeriverWithResolver(failingResolver{}, 10*time.Millisecond)
}

func testAccount(overrides func(*models.Account)) *models.Account {
	account := &models.Account{
		ID:             "acc-1",
		Username:       "hr.admin",
		PasswordHash:   testHash(),
		RoleID:         2,
		Enabled:        true,
		FailedAttempts: 0,
		Online:         false,
		FullName:       "Abebe Kebede",
		Email:          "abebe@example.com",
		Department:     "Human Resources",
		CreatedAt:      time.Now().Add(-24 * time.Hour),
		UpdatedAt:      time.Now().Add(-time.Hour),
	}
	if overrides != nil {
		overrides(account)
	}
	return account
}

const testPassword = "correct-horse"

var (
	hashOnce         sync.Once
	testPasswordHash string
)

// testHash hashes the fixture password once per test binary rather than per
// fixture.
func testHash() string {
	hashOnce.Do(func() {
		hash, err := pkgauth.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		testPasswordHash = hash
	})
	return testPasswordHash
}
