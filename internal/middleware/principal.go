package middleware

import (
	"net/http"
	"strings"

	"mediastore/internal/logger"

	"github.com/gin-gonic/gin"
)

// OwnerIDKey is the gin context key carrying the authenticated owner.
const OwnerIDKey = "ownerID"

// PrincipalMiddleware resolves the calling principal from the X-Owner-ID
// header. The service sits behind a gateway that authenticates requests
// and injects the header; token verification lives there, not here.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := strings.TrimSpace(c.GetHeader("X-Owner-ID"))
		if ownerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-Owner-ID header missing"})
			return
		}

		c.Set(OwnerIDKey, ownerID)
		ctx := logger.WithOwnerID(c.Request.Context(), ownerID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OptionalPrincipalMiddleware resolves the principal when present and
// lets anonymous requests through. Used on public file serving where
// private objects still need an owner check.
func OptionalPrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := strings.TrimSpace(c.GetHeader("X-Owner-ID"))
		if ownerID != "" {
			c.Set(OwnerIDKey, ownerID)
			ctx := logger.WithOwnerID(c.Request.Context(), ownerID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
