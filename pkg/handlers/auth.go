package handlers

import (
	"net/http"
	"time"

	"bookmark-manager-backend/pkg/cache"
	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/middleware"
	"bookmark-manager-backend/pkg/models"
	"bookmark-manager-backend/pkg/utils"
)

type AuthHandler struct {
	db       database.Store
	jwt      *utils.JWTService
	denylist *cache.TokenDenylist
	log      logger.Logger
}

func NewAuthHandler(db database.Store, jwt *utils.JWTService, denylist *cache.TokenDenylist, log logger.Logger) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt, denylist: denylist, log: log}
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.log.Error("password hashing failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Registration failed")
		return
	}

	user := &models.User{
		Email:        models.NormalizeEmail(req.Email),
		Username:     req.Username,
		PasswordHash: hash,
		AuthProvider: models.ProviderEmail,
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		if database.IsDuplicate(err) {
			utils.WriteConflictResponse(w, "An account with this email already exists")
			return
		}
		writeStoreError(w, err, "User not found")
		return
	}

	h.log.Info("user registered", logger.String("user_id", user.ID))
	h.writeTokenResponse(w, user, utils.WriteCreatedResponse)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), models.NormalizeEmail(req.Email))
	if err != nil || !utils.VerifyPassword(req.Password, user.PasswordHash) {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}
	if !user.IsActive {
		utils.WriteForbiddenResponse(w, "Account is disabled")
		return
	}

	if err := h.db.UpdateLastLogin(r.Context(), user.ID); err != nil {
		h.log.Warn("failed to record last login",
			logger.String("user_id", user.ID), logger.Error(err))
	}

	h.writeTokenResponse(w, user, utils.WriteSuccessResponse)
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}
	revoked, err := h.denylist.IsRevoked(r.Context(), claims.TokenID)
	if err != nil {
		h.log.Error("denylist lookup failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Token refresh failed")
		return
	}
	if revoked {
		utils.WriteUnauthorizedResponse(w, "Refresh token has been revoked")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}
	if !user.IsActive {
		utils.WriteForbiddenResponse(w, "Account is disabled")
		return
	}

	// Rotate: the presented refresh token is retired with the new pair.
	if err := h.denylist.Revoke(r.Context(), claims.TokenID, time.Until(time.Unix(claims.Exp, 0))); err != nil {
		h.log.Warn("failed to retire refresh token", logger.Error(err))
	}

	h.writeTokenResponse(w, user, utils.WriteSuccessResponse)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		// Expired or garbage tokens need no revocation.
		utils.WriteSuccessResponse(w, map[string]string{"message": "Logged out"})
		return
	}
	if err := h.denylist.Revoke(r.Context(), claims.TokenID, time.Until(time.Unix(claims.Exp, 0))); err != nil {
		h.log.Error("token revocation failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Logout failed")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"message": "Logged out"})
}

// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	user, err := h.db.GetUserByID(r.Context(), current.ID)
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	utils.WriteSuccessResponse(w, user)
}

func (h *AuthHandler) writeTokenResponse(w http.ResponseWriter, user *models.User, write func(http.ResponseWriter, interface{})) {
	access, refresh, expiresIn, err := h.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		h.log.Error("token generation failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Token generation failed")
		return
	}
	write(w, models.LoginResponse{
		User:         *user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
	})
}
