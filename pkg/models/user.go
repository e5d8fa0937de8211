package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthProvider identifies how an account was registered.
type AuthProvider string

const (
	ProviderEmail    AuthProvider = "email"
	ProviderGitHub   AuthProvider = "github"
	ProviderTelegram AuthProvider = "telegram"
)

// ValidProvider reports whether p is one of the known auth providers.
func ValidProvider(p AuthProvider) bool {
	switch p {
	case ProviderEmail, ProviderGitHub, ProviderTelegram:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	ID           string       `json:"id" db:"id"`
	Email        string       `json:"email" db:"email"`
	Username     string       `json:"username,omitempty" db:"username"`
	PasswordHash string       `json:"-" db:"password_hash"` // never serialized
	AuthProvider AuthProvider `json:"auth_provider" db:"auth_provider"`
	IsActive     bool         `json:"is_active" db:"is_active"`
	LastLogin    *time.Time   `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Username string `json:"username,omitempty" validate:"omitempty,max=150"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the credential pair issued on login/register.
type LoginResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshTokenRequest is the payload for token refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenClaims are the JWT claims for both access and refresh tokens.
// TokenID is only set on refresh tokens and backs logout revocation.
type TokenClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Type    string `json:"type"` // "access" or "refresh"
	TokenID string `json:"jti,omitempty"`
	Exp     int64  `json:"exp"`
	Iat     int64  `json:"iat"`
}

func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

func (c *TokenClaims) GetIssuer() (string, error) { return "", nil }

func (c *TokenClaims) GetSubject() (string, error) { return c.UserID, nil }

func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }
