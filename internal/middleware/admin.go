package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/config"
)

const (
	HeaderAdminKey       = "X-Admin-Key"
	HeaderAdminSecretKey = "X-Admin-Secret"
)

// AdminMiddleware guards account administration. Admin routes are closed
// entirely until an admin key is configured.
func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.AdminKey == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin key not configured"})
			c.Abort()
			return
		}
		if !headerEquals(c, HeaderAdminKey, cfg.Auth.AdminKey) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminSecretMiddleware is the second factor for routes that touch key
// material, such as secret rotation.
func AdminSecretMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.AdminSecretKey == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin secret key not configured"})
			c.Abort()
			return
		}
		if !headerEquals(c, HeaderAdminSecretKey, cfg.Auth.AdminSecretKey) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin secret key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func headerEquals(c *gin.Context, header, want string) bool {
	return subtle.ConstantTimeCompare([]byte(c.GetHeader(header)), []byte(want)) == 1
}
