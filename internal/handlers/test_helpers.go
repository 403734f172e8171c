package handlers

import (
	"context"

	"github.com/Hayal27/chrm-server/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	AuthenticateFunc func(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*services.LoginResult, error)
	LogoutFunc       func(ctx context.Context, accountID string) error
	GetAccountFunc   func(ctx context.Context, accountID string) (*services.AccountResponse, error)
}

func (m *MockAuthService) Authenticate(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*services.LoginResult, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, username, password, sourceAddr, rawUserAgent)
	}
	return nil, nil
}

func (m *MockAuthService) Logout(ctx context.Context, accountID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accountID)
	}
	return nil
}

func (m *MockAuthService) GetAccount(ctx context.Context, accountID string) (*services.AccountResponse, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, accountID)
	}
	return nil, nil
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	RequestResetFunc  func(ctx context.Context, username string) error
	ResetPasswordFunc func(ctx context.Context, username, code, newPassword string) error
}

func (m *MockPasswordResetService) RequestReset(ctx context.Context, username string) error {
	if m.RequestResetFunc != nil {
		return m.RequestResetFunc(ctx, username)
	}
	return nil
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, username, code, newPassword)
	}
	return nil
}
