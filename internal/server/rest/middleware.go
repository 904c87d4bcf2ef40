package rest

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const userIDKey = "postboard_user_id"

// requesterID returns the authenticated user id stored by the auth
// middleware, or "" for an anonymous request.
func requesterID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// extractBearerToken parses "Authorization: Bearer <token>", returning ""
// when the header is missing or malformed. The scheme is case-insensitive.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireAuth rejects requests without a valid bearer token. An expired
// token gets a distinct message from an invalid one.
func requireAuth(secretKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		userID, err := auth.GetUserIDFromToken(token, secretKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// optionalAuth resolves an identity when a valid bearer token is present and
// leaves the request anonymous otherwise. A malformed or expired token is
// treated as no identity, not as a failure.
func optionalAuth(secretKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractBearerToken(c); token != "" {
			if userID, err := auth.GetUserIDFromToken(token, secretKey); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}
