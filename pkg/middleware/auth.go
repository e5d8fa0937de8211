package middleware

import (
	"context"
	"net/http"
	"strings"

	"bookmark-manager-backend/pkg/models"
	"bookmark-manager-backend/pkg/utils"
)

// ContextKey is the type for values this package stores in the request
// context.
type ContextKey string

const UserContextKey ContextKey = "user"

// AuthMiddleware validates the Bearer access token and stores the
// authenticated user in the request context.
func AuthMiddleware(jwtService *utils.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				utils.WriteUnauthorizedResponse(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				utils.WriteUnauthorizedResponse(w, "Invalid token")
				return
			}

			user := &models.User{
				ID:    claims.UserID,
				Email: claims.Email,
			}
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext returns the authenticated user, or nil outside the
// auth middleware.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}

// RequireUser fetches the authenticated user or writes a 401 and returns
// false.
func RequireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	return user, true
}
