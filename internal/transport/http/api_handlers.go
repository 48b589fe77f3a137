package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hallwaychat/hallway-server/internal/auth"
)

// APIHandlers provides HTTP handlers for the auth endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// CredentialsRequest is the signup/login request body.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the token refresh request body.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is the successful signup/login response body.
type AuthResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// APIError is the error response body shared by the REST endpoints.
type APIError struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
}

func apiError(message, errorType string) APIError {
	return APIError{Message: message, ErrorType: errorType}
}

// Signup handles user registration.
// POST /api/signup
func (h *APIHandlers) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError("both username and password are required", "bad_format"))
		return
	}

	user, tokens, err := h.authService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var formatErr *auth.FormatError
		switch {
		case errors.As(err, &formatErr):
			c.JSON(http.StatusBadRequest, apiError(formatErr.Reason, "bad_format"))
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, apiError("username already exists", "username_already_exists"))
		default:
			h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
			c.JSON(http.StatusInternalServerError, apiError("internal server error while creating user", "server_error"))
		}
		return
	}

	h.log.Info().Str("username", user.Username).Msg("user registered")
	c.JSON(http.StatusCreated, AuthResponse{
		Success:      true,
		Message:      "Signup successful",
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Login handles user login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError("both username and password are required", "bad_format"))
		return
	}

	user, tokens, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, apiError("invalid username or password", "invalid_credentials"))
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, apiError("internal server error", "server_error"))
		return
	}

	h.log.Info().Str("username", user.Username).Msg("user logged in")
	c.JSON(http.StatusOK, AuthResponse{
		Success:      true,
		Message:      "Login successful",
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Refresh exchanges a refresh token for a new access token.
// POST /api/refresh
func (h *APIHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, apiError("refresh token is required", "missing_refresh_token"))
		return
	}

	access, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apiError("invalid or expired refresh token", "invalid_refresh_token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": access,
	})
}
