package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"accounthub/api/internal/config"
	"accounthub/api/internal/models"
	"accounthub/api/internal/security"
)

const (
	// CurrentUserKey holds the authenticated models.User in the gin context.
	CurrentUserKey = "current_user"
	// SessionClaimsKey holds the parsed security.SessionClaims.
	SessionClaimsKey = "session_claims"
)

// UserGetter resolves token claims to the account of record.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// Auth verifies the bearer token's signature and expiry, then requires it
// to equal the token currently stored on the account. A signed token that
// is no longer the active one (after logout or a newer login) is rejected,
// so at most one credential per account is honored at a time.
func Auth(cfg *config.AppConfig, users UserGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseSessionToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}

		if user.SessionToken == nil || *user.SessionToken != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}

		c.Set(CurrentUserKey, user)
		c.Set(SessionClaimsKey, *claims)

		c.Next()
	}
}
