package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/api"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "user_id"
	ContextEmail  = "user_email"
	ContextRole   = "user_role"
)

func reject(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: msg, Code: code})
}

// AuthMiddleware verifies the bearer access token and stores the caller's
// id, email and role on the gin context.
func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, tokenString, found := strings.Cut(c.GetHeader("Authorization"), " ")
		if !found && scheme == "" {
			reject(c, http.StatusUnauthorized, "missing_token", "Authorization header required")
			return
		}
		if !found || !strings.EqualFold(strings.TrimSpace(scheme), "Bearer") {
			reject(c, http.StatusUnauthorized, "invalid_token", "Invalid authorization header format")
			return
		}

		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			reject(c, http.StatusUnauthorized, "missing_token", "Token is empty")
			return
		}

		claims, err := ValidateToken(tokenString, accessTokenSecret)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				reject(c, http.StatusUnauthorized, "token_expired", "Token expired")
				return
			}
			reject(c, http.StatusUnauthorized, "invalid_token", "Invalid or malformed token")
			return
		}

		if claims.TokenType != "access" {
			reject(c, http.StatusUnauthorized, "invalid_token", "Access token required")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			reject(c, http.StatusUnauthorized, "missing_role", "User role not found")
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			reject(c, http.StatusUnauthorized, "missing_role", "Invalid role type")
			return
		}

		if roleStr != requiredRole {
			reject(c, http.StatusForbidden, "forbidden", "Insufficient permissions")
			return
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (int64, bool) {
	id, ok := c.Value(ContextUserID).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// Identity returns the email and role carried by the access token.
func Identity(c *gin.Context) (email, role string) {
	return c.GetString(ContextEmail), c.GetString(ContextRole)
}
