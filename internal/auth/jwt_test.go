package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return svc
}

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.Generate("auth0|user-123", 15*time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	subject, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if subject != "auth0|user-123" {
		t.Errorf("subject = %q, want %q", subject, "auth0|user-123")
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.Generate("user-123", -1*time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := svc.Validate(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	svc := newTestTokenService(t)
	other, err := NewTokenService("a-completely-different-secret")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	token, err := other.Generate("user-123", 15*time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := svc.Validate(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestValidate_Garbage(t *testing.T) {
	svc := newTestTokenService(t)
	if _, err := svc.Validate("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestStorageKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"auth0|64f1ab9c", "auth064f1ab9c"},
		{"plain-user", "plain-user"},
		{"a|b|c", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StorageKey(tt.in); got != tt.want {
			t.Errorf("StorageKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	svc := newTestTokenService(t)

	var seen Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireAuth(svc)(next)

	t.Run("valid bearer token passes and sets identity", func(t *testing.T) {
		token, err := svc.Generate("auth0|user-1", 15*time.Minute)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/snippet/abc", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		protected.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if seen.Subject != "auth0|user-1" {
			t.Errorf("Subject = %q, want %q", seen.Subject, "auth0|user-1")
		}
		if seen.Token != token {
			t.Error("expected raw token to be carried in the identity")
		}
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/snippet/abc", nil)
		rr := httptest.NewRecorder()

		protected.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
		if !strings.Contains(rr.Body.String(), "unauthorized") {
			t.Errorf("body = %q, want unauthorized error", rr.Body.String())
		}
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/snippet/abc", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rr := httptest.NewRecorder()

		protected.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
	})
}

func TestIdentityFromContext_Empty(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("expected ok=false on a context without identity")
	}
}
