package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Hayal27/chrm-server/internal/auth"
	"github.com/Hayal27/chrm-server/internal/models"
	"github.com/Hayal27/chrm-server/internal/services"
	pkghttp "github.com/Hayal27/chrm-server/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.RemoteAddr = "203.0.113.7:51442"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-client/1.0")

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin_Success(t *testing.T) {
	var gotUsername, gotAddr string
	svc := &MockAuthService{
		AuthenticateFunc: func(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*services.LoginResult, error) {
			gotUsername = username
			gotAddr = sourceAddr
			return &services.LoginResult{
				Token: "signed-token",
				Account: &services.AccountResponse{
					ID:       "acc-1",
					Username: username,
					RoleID:   2,
				},
			}, nil
		},
	}
	h := NewAuthHandler(svc, &MockPasswordResetService{})

	rec := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{Username: "hr.admin", Password: "secret-pass"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hr.admin", gotUsername)
	assert.Equal(t, "203.0.113.7", gotAddr, "connection address is preferred over headers")

	var result services.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "signed-token", result.Token)
	require.NotNil(t, result.Account)
	assert.Equal(t, "acc-1", result.Account.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &MockAuthService{
		AuthenticateFunc: func(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*services.LoginResult, error) {
			return nil, models.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(svc, &MockPasswordResetService{})

	rec := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{Username: "hr.admin", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error)
}

func TestLogin_LockedAccount(t *testing.T) {
	svc := &MockAuthService{
		AuthenticateFunc: func(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*services.LoginResult, error) {
			return nil, &models.AccountLockedError{Until: time.Now().Add(10 * time.Minute)}
		},
	}
	h := NewAuthHandler(svc, &MockPasswordResetService{})

	rec := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{Username: "hr.admin", Password: "wrong"})

	assert.Equal(t, http.StatusLocked, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "account_locked", resp.Error)
	assert.Contains(t, resp.Message, "minute")
}

func TestLogin_MissingPassword(t *testing.T) {
	svc := &MockAuthService{
		AuthenticateFunc: func(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*services.LoginResult, error) {
			return nil, models.ErrMissingPassword
		},
	}
	h := NewAuthHandler(svc, &MockPasswordResetService{})

	rec := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{Username: "hr.admin"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "Password is required")
}

func TestLogin_MissingUsernameFailsValidation(t *testing.T) {
	svc := &MockAuthService{
		AuthenticateFunc: func(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*services.LoginResult, error) {
			t.Fatal("service must not be called when validation fails")
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, &MockPasswordResetService{})

	rec := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{Password: "whatever"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_PasswordNotSet(t *testing.T) {
	svc := &MockAuthService{
		AuthenticateFunc: func(ctx context.Context, username, password, sourceAddr, rawUserAgent string) (*services.LoginResult, error) {
			return nil, models.ErrPasswordNotSet
		},
	}
	h := NewAuthHandler(svc, &MockPasswordResetService{})

	rec := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{Username: "hr.admin", Password: "whatever"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "No password is set")
}

func TestLogin_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{}, &MockPasswordResetService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func withClaims(req *http.Request, accountID string) *http.Request {
	claims := &models.TokenClaims{AccountID: accountID, RoleID: 1}
	return req.WithContext(context.WithValue(req.Context(), auth.AccountContextKey, claims))
}

func TestLogout_Success(t *testing.T) {
	var gotID string
	svc := &MockAuthService{
		LogoutFunc: func(ctx context.Context, accountID string) error {
			gotID = accountID
			return nil
		},
	}
	h := NewAuthHandler(svc, &MockPasswordResetService{})

	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), "acc-1")
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", gotID)
}

func TestLogout_RequiresClaims(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{}, &MockPasswordResetService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_ReturnsAccount(t *testing.T) {
	svc := &MockAuthService{
		GetAccountFunc: func(ctx context.Context, accountID string) (*services.AccountResponse, error) {
			return &services.AccountResponse{ID: accountID, Username: "hr.admin"}, nil
		},
	}
	h := NewAuthHandler(svc, &MockPasswordResetService{})

	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), "acc-1")
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var account services.AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "acc-1", account.ID)
}

func TestForgotPassword_UnknownUser(t *testing.T) {
	resetSvc := &MockPasswordResetService{
		RequestResetFunc: func(ctx context.Context, username string) error {
			return models.ErrNotFound
		},
	}
	h := NewAuthHandler(&MockAuthService{}, resetSvc)

	rec := postJSON(t, h.ForgotPassword, "/api/v1/auth/forgot-password", ForgotPasswordRequest{Username: "ghost"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForgotPassword_Success(t *testing.T) {
	resetSvc := &MockPasswordResetService{}
	h := NewAuthHandler(&MockAuthService{}, resetSvc)

	rec := postJSON(t, h.ForgotPassword, "/api/v1/auth/forgot-password", ForgotPasswordRequest{Username: "hr.admin"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reset code")
}

func TestResetPassword_InvalidCode(t *testing.T) {
	resetSvc := &MockPasswordResetService{
		ResetPasswordFunc: func(ctx context.Context, username, code, newPassword string) error {
			return models.ErrResetCodeInvalid
		},
	}
	h := NewAuthHandler(&MockAuthService{}, resetSvc)

	rec := postJSON(t, h.ResetPassword, "/api/v1/auth/reset-password", ResetPasswordRequest{
		Username:    "hr.admin",
		Code:        "123456",
		NewPassword: "brand-new-password",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "Invalid or expired")
}

func TestResetPassword_RejectsNonNumericCode(t *testing.T) {
	resetSvc := &MockPasswordResetService{
		ResetPasswordFunc: func(ctx context.Context, username, code, newPassword string) error {
			t.Fatal("service must not be called when validation fails")
			return nil
		},
	}
	h := NewAuthHandler(&MockAuthService{}, resetSvc)

	rec := postJSON(t, h.ResetPassword, "/api/v1/auth/reset-password", ResetPasswordRequest{
		Username:    "hr.admin",
		Code:        "12ab56",
		NewPassword: "brand-new-password",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPassword_Success(t *testing.T) {
	var gotCode string
	resetSvc := &MockPasswordResetService{
		ResetPasswordFunc: func(ctx context.Context, username, code, newPassword string) error {
			gotCode = code
			return nil
		},
	}
	h := NewAuthHandler(&MockAuthService{}, resetSvc)

	rec := postJSON(t, h.ResetPassword, "/api/v1/auth/reset-password", ResetPasswordRequest{
		Username:    "hr.admin",
		Code:        "482913",
		NewPassword: "brand-new-password",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "482913", gotCode)
}
