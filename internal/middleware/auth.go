package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/config"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/service"
)

const (
	HeaderGatewayKey  = "X-Gateway-Key"
	ContextAccountKey = "account"
)

func AuthMiddleware(cfg *config.Config, am *service.AccountManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderGatewayKey)
		if apiKey == "" {
			if cfg != nil && !cfg.Auth.RequireAPIKey {
				if acct := am.Default(); acct != nil {
					c.Set(ContextAccountKey, acct)
					c.Next()
					return
				}
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}

		acct, ok := am.GetByAPIKeyWithFallback(c.Request.Context(), apiKey)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Set(ContextAccountKey, acct)
		c.Next()
	}
}

// AccountFrom returns the account AuthMiddleware attached to the request.
func AccountFrom(c *gin.Context) (*model.Account, bool) {
	val, ok := c.Get(ContextAccountKey)
	if !ok {
		return nil, false
	}
	acct, ok := val.(*model.Account)
	return acct, ok && acct != nil
}
