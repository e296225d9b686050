package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/middleware"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/pkg/logger"
)

// HeaderVaultPassword unlocks password-mode accounts for a single request.
const HeaderVaultPassword = "X-Vault-Password"

func currentAccount(c *gin.Context) (*model.Account, bool) {
	acct, ok := middleware.AccountFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing account context"})
		return nil, false
	}
	return acct, true
}

func vaultPassword(c *gin.Context) string {
	return c.GetHeader(HeaderVaultPassword)
}

// renderError writes err in the AppError shape. Errors raised by handlers
// never go through middleware.ErrorHandler.
func renderError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	middleware.AddAuditContext(c, "error", appErr.Message)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.LogError(c.Request.Context(), appErr, "Request failed", "path", c.FullPath(), "code", appErr.Type)
	}
	c.JSON(appErr.HTTPStatus, appErr)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		renderError(c, apperrors.NewInvalidRequest(err.Error()))
		return false
	}
	return true
}

// renderResult answers a verb that produced an OrderResult. Exchange
// refusals stay 200 with success=false.
func renderResult(c *gin.Context, action string, res *model.OrderResult, err error) {
	if err != nil {
		renderError(c, err)
		return
	}
	middleware.AddAuditContext(c, "action", action)
	middleware.AddAuditContext(c, "success", res.Success)
	if res.OrderID != nil {
		middleware.AddAuditContext(c, "order_id", *res.OrderID)
	}
	c.JSON(http.StatusOK, res)
}
