package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hayal27/chrm-server/internal/auth"
	"github.com/Hayal27/chrm-server/internal/clientinfo"
	"github.com/Hayal27/chrm-server/internal/models"
	"github.com/Hayal27/chrm-server/internal/repositories"
	"github.com/Hayal27/chrm-server/internal/services"
	pkglogger "github.com/Hayal27/chrm-server/pkg/logger"
)

const testClientAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// offlineResolver keeps geo derivation off the network during tests
type offlineResolver struct{}

func (offlineResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	return nil, fmt.Errorf("lookup %s: no such host", addr)
}

// captureMailer implements services.EmailService and hands dispatched codes
// to the test instead of SES.
type captureMailer struct {
	codes chan string
}

func (m *captureMailer) SendPasswordResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	m.codes <- code
	return nil
}

func (m *captureMailer) waitForCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-m.codes:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("no reset code was dispatched")
		return ""
	}
}

func TestAuthFlows(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Skipf("skipping: could not start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testDB.Teardown(ctx) })

	accounts := repositories.NewAccountRepository(testDB.DB)
	attempts := repositories.NewLoginAttemptRepository(testDB.DB)
	resets := repositories.NewPasswordResetRepository(testDB.DB)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger)
	tokenManager := auth.NewTokenManager("integration-test-secret-0123456789", time.Hour)
	deriver := clientinfo.NewDeriverWithResolver(offlineResolver{}, 10*time.Millisecond)
	policy := services.LockoutPolicy{Threshold: 5, Base: 10 * time.Minute}

	authSvc := services.NewAuthService(accounts, attempts, deriver, tokenManager, policy, logger, auditLogger)

	mailbox := &captureMailer{codes: make(chan string, 4)}
	resetSvc := services.NewPasswordResetService(accounts, resets, mailbox, 10*time.Minute, logger, auditLogger)

	t.Run("successful login resets counter and issues token", func(t *testing.T) {
		accountID, username, err := SeedAccount(ctx, testDB.Pool, "login-ok", "initial-password", 2)
		require.NoError(t, err)

		_, err = authSvc.Authenticate(ctx, username, "wrong-password", "10.1.2.3", testClientAgent)
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
		_, err = authSvc.Authenticate(ctx, username, "wrong-password", "10.1.2.3", testClientAgent)
		require.ErrorIs(t, err, models.ErrInvalidCredentials)

		result, err := authSvc.Authenticate(ctx, username, "initial-password", "10.1.2.3", testClientAgent)
		require.NoError(t, err)
		assert.Equal(t, accountID, result.Account.ID)

		claims, err := tokenManager.Validate(result.Token)
		require.NoError(t, err)
		assert.Equal(t, accountID, claims.AccountID)

		stored, err := accounts.GetByUsername(ctx, username)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.FailedAttempts)
		assert.Nil(t, stored.LockedUntil)
		assert.True(t, stored.Online)

		count, err := attempts.CountByUsername(ctx, username)
		require.NoError(t, err)
		assert.Equal(t, 3, count, "each call appends exactly one attempt row")
	})

	t.Run("five failures lock the account", func(t *testing.T) {
		_, username, err := SeedAccount(ctx, testDB.Pool, "lockout", "initial-password", 2)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			_, err = authSvc.Authenticate(ctx, username, "wrong-password", "10.1.2.3", testClientAgent)
			require.ErrorIs(t, err, models.ErrInvalidCredentials,
				"the locking attempt itself still reports invalid credentials")
		}

		stored, err := accounts.GetByUsername(ctx, username)
		require.NoError(t, err)
		assert.Equal(t, 5, stored.FailedAttempts)
		require.NotNil(t, stored.LockedUntil)
		assert.True(t, stored.LockedUntil.After(time.Now()))

		failedCount, err := attempts.CountFailedSince(ctx, username, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 5, failedCount)

		// Even the correct password is rejected while the lock holds.
		_, err = authSvc.Authenticate(ctx, username, "initial-password", "10.1.2.3", testClientAgent)
		var lockedErr *models.AccountLockedError
		require.ErrorAs(t, err, &lockedErr)
		assert.GreaterOrEqual(t, lockedErr.RemainingMinutes(), 1)
		assert.LessOrEqual(t, lockedErr.RemainingMinutes(), 10)
	})

	t.Run("password reset lifts an active lock", func(t *testing.T) {
		_, username, err := SeedAccount(ctx, testDB.Pool, "reset", "initial-password", 2)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			_, err = authSvc.Authenticate(ctx, username, "wrong-password", "10.1.2.3", testClientAgent)
			require.ErrorIs(t, err, models.ErrInvalidCredentials)
		}

		require.NoError(t, resetSvc.RequestReset(ctx, username))
		code := mailbox.waitForCode(t)

		require.NoError(t, resetSvc.ResetPassword(ctx, username, code, "fresh-password-1"))

		result, err := authSvc.Authenticate(ctx, username, "fresh-password-1", "10.1.2.3", testClientAgent)
		require.NoError(t, err, "a successful reset clears the counter and the lock")
		assert.NotEmpty(t, result.Token)

		// The consumed code can never be replayed.
		err = resetSvc.ResetPassword(ctx, username, code, "another-password-2")
		assert.ErrorIs(t, err, models.ErrResetCodeInvalid)
	})

	t.Run("new reset request replaces the previous code", func(t *testing.T) {
		_, username, err := SeedAccount(ctx, testDB.Pool, "replace", "initial-password", 2)
		require.NoError(t, err)

		require.NoError(t, resetSvc.RequestReset(ctx, username))
		firstCode := mailbox.waitForCode(t)

		require.NoError(t, resetSvc.RequestReset(ctx, username))
		secondCode := mailbox.waitForCode(t)

		if firstCode != secondCode {
			err = resetSvc.ResetPassword(ctx, username, firstCode, "fresh-password-1")
			assert.ErrorIs(t, err, models.ErrResetCodeInvalid, "the old code dies as soon as a new one is issued")
		}

		require.NoError(t, resetSvc.ResetPassword(ctx, username, secondCode, "fresh-password-1"))
	})

	t.Run("account without password is rejected distinctly", func(t *testing.T) {
		_, username, err := SeedAccount(ctx, testDB.Pool, "no-pass", "", 2)
		require.NoError(t, err)

		_, err = authSvc.Authenticate(ctx, username, "anything-at-all", "10.1.2.3", testClientAgent)
		assert.ErrorIs(t, err, models.ErrPasswordNotSet)

		count, err := attempts.CountByUsername(ctx, username)
		require.NoError(t, err)
		assert.Equal(t, 0, count, "this branch writes no attempt row")
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		accountID, username, err := SeedAccount(ctx, testDB.Pool, "logout", "initial-password", 2)
		require.NoError(t, err)

		_, err = authSvc.Authenticate(ctx, username, "initial-password", "10.1.2.3", testClientAgent)
		require.NoError(t, err)

		require.NoError(t, authSvc.Logout(ctx, accountID))
		require.NoError(t, authSvc.Logout(ctx, accountID), "logging out twice succeeds")

		stored, err := accounts.GetByID(ctx, accountID)
		require.NoError(t, err)
		assert.False(t, stored.Online)
	})

	t.Run("concurrent failures never lose counter increments", func(t *testing.T) {
		accountID, username, err := SeedAccount(ctx, testDB.Pool, "race", "initial-password", 2)
		require.NoError(t, err)

		const workers = 8
		errCh := make(chan error, workers)
		for i := 0; i < workers; i++ {
			go func() {
				_, err := accounts.RecordFailedAttempt(ctx, accountID)
				errCh <- err
			}()
		}
		for i := 0; i < workers; i++ {
			require.NoError(t, <-errCh)
		}

		stored, err := accounts.GetByUsername(ctx, username)
		require.NoError(t, err)
		assert.Equal(t, workers, stored.FailedAttempts, "the atomic increment keeps the count exact")
	})
}
