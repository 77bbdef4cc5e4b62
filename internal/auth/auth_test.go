package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return NewService(Config{
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		JWTSecret:         "test-secret",
		TokenDuration:     time.Minute,
		BCryptCost:        bcrypt.MinCost,
	})
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"Valid credentials", "admin", "hunter2", nil},
		{"Wrong password", "admin", "hunter3", ErrInvalidCredentials},
		{"Wrong username", "root", "hunter2", ErrInvalidCredentials},
		{"Empty", "", "", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expires, err := svc.Login(tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}
			if token == "" {
				t.Error("Expected a token")
			}
			if time.Until(expires) <= 0 || time.Until(expires) > time.Minute {
				t.Errorf("Expected expiry within a minute, got %v", expires)
			}
		})
	}
}

func TestLoginDisabled(t *testing.T) {
	svc := NewService(Config{AdminUsername: "admin", JWTSecret: "s"})
	if svc.Enabled() {
		t.Error("Expected login disabled without a password hash")
	}
	if _, _, err := svc.Login("admin", ""); !errors.Is(err, ErrLoginDisabled) {
		t.Errorf("Expected ErrLoginDisabled, got %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	svc := newTestService(t)
	token, _, err := svc.GenerateToken("admin", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Expected valid token, got %v", err)
	}
	if claims.Username != "admin" || claims.Role != RoleAdmin {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	other := NewService(Config{JWTSecret: "other-secret"})
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired := NewService(Config{JWTSecret: "test-secret", TokenDuration: -time.Minute})
	old, _, err := expired.GenerateToken("admin", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := svc.ValidateToken(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	svc := newTestService(t)
	admin, _, _ := svc.GenerateToken("admin", RoleAdmin)
	viewer, _, _ := svc.GenerateToken("guest", RoleViewer)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"Admin token", "Bearer " + admin, nil},
		{"Viewer token", "Bearer " + viewer, ErrUnauthorized},
		{"Missing header", "", ErrInvalidToken},
		{"Wrong scheme", "Basic " + admin, ErrInvalidToken},
		{"Garbage", "Bearer nope", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/reload", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			_, err := svc.Authorize(r, RoleAdmin)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHasRole(t *testing.T) {
	if !CanReload(RoleAdmin) {
		t.Error("Expected admin to reload")
	}
	if CanReload(RoleViewer) {
		t.Error("Expected viewer not to reload")
	}
	if HasRole("superuser", RoleViewer) {
		t.Error("Expected unknown role to be rejected")
	}
}
