package handlers

import (
	"net/http"

	"github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/gin-gonic/gin"
	"github.com/supabase-community/supabase-go"
)

// Session is a refreshed token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// TokenRefresher exchanges a refresh token for a new session.
type TokenRefresher interface {
	Refresh(refreshToken string) (*Session, error)
}

// SupabaseRefresher refreshes sessions through the Supabase auth API.
type SupabaseRefresher struct {
	client *supabase.Client
}

func NewSupabaseRefresher(url, anonKey string) (*SupabaseRefresher, error) {
	client, err := supabase.NewClient(url, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}
	return &SupabaseRefresher{client: client}, nil
}

// Refresh calls the auth API directly so the shared client's own session is never replaced.
func (r *SupabaseRefresher) Refresh(refreshToken string) (*Session, error) {
	resp, err := r.client.Auth.RefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    "bearer",
	}, nil
}

// AuthHandler handles authentication-related endpoints
type AuthHandler struct {
	refresher TokenRefresher
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(refresher TokenRefresher) *AuthHandler {
	return &AuthHandler{refresher: refresher}
}

// RefreshTokenHandler godoc
// @Summary Refresh an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body docs.RefreshRequest true "Refresh token"
// @Success 200 {object} Session
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshTokenHandler(c *gin.Context) {
	log := logger.GetLogger()

	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.ValidationFailed("invalid_request", "refresh_token is required"))
		return
	}

	if h.refresher == nil {
		_ = c.Error(errors.New(errors.ServiceUnavailableErr, "Token refresh unavailable", "auth provider not configured"))
		return
	}

	session, err := h.refresher.Refresh(req.RefreshToken)
	if err != nil {
		log.Warnw("Failed to refresh token", "error", err)
		_ = c.Error(errors.Unauthorized("refresh_failed", "Failed to refresh token"))
		return
	}

	if session.TokenType == "" {
		session.TokenType = "bearer"
	}
	c.JSON(http.StatusOK, session)
}
