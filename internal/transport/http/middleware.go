package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyUserID is the context key for storing user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the context key for storing username.
	ContextKeyUsername = "username"
)

// AuthMiddleware creates a middleware that validates bearer tokens.
func AuthMiddleware(verifier TokenVerifier, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, apiError("missing authorization header", "invalid_token"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.JSON(http.StatusUnauthorized, apiError("invalid authorization header format", "invalid_token"))
			c.Abort()
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.JSON(http.StatusUnauthorized, apiError("invalid or expired token", "invalid_token"))
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, principal.UserID)
		c.Set(ContextKeyUsername, principal.Username)

		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// currentUser pulls the authenticated principal out of the gin context.
func currentUser(c *gin.Context) (int64, string, bool) {
	rawID, ok := c.Get(ContextKeyUserID)
	if !ok {
		return 0, "", false
	}
	userID, ok := rawID.(int64)
	if !ok {
		return 0, "", false
	}
	username, _ := c.Get(ContextKeyUsername)
	name, _ := username.(string)
	return userID, name, true
}
