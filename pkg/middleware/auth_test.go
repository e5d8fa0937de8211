package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookmark-manager-backend/pkg/utils"
)

func authTestHandler(t *testing.T) (http.Handler, *utils.JWTService) {
	t.Helper()
	jwtService := utils.NewJWTService("test-secret", time.Hour, time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			t.Error("user missing from context inside protected handler")
		}
		w.WriteHeader(http.StatusOK)
	})
	return AuthMiddleware(jwtService)(next), jwtService
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	handler, _ := authTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	handler, _ := authTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	handler, jwtService := authTestHandler(t)
	_, refresh, _, err := jwtService.GenerateTokenPair("user-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	handler, jwtService := authTestHandler(t)
	access, _, _, err := jwtService.GenerateTokenPair("user-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
