package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/middleware"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/service"
)

type FundsHandler struct {
	svc *service.GatewayService
}

func NewFundsHandler(svc *service.GatewayService) *FundsHandler {
	return &FundsHandler{svc: svc}
}

func (h *FundsHandler) Mount(v1 *gin.RouterGroup) {
	v1.POST("/withdraw", h.Withdraw)
	v1.POST("/emergency", h.Emergency)
}

func (h *FundsHandler) Withdraw(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.WithdrawRequest
	if !bindJSON(c, &req) {
		return
	}
	middleware.AddAuditContext(c, "destination", req.Destination)
	res, err := h.svc.Withdraw(c.Request.Context(), acct, vaultPassword(c), req)
	renderResult(c, "withdraw", res, err)
}

// Emergency runs the shutdown sequence and answers with the step report.
// The status is 200 whenever the sequence ran; the report says how far it got.
func (h *FundsHandler) Emergency(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.WithdrawRequest
	if !bindJSON(c, &req) {
		return
	}
	middleware.AddAuditContext(c, "action", "emergency_withdraw")
	middleware.AddAuditContext(c, "destination", req.Destination)
	report, err := h.svc.EmergencyWithdraw(c.Request.Context(), acct, vaultPassword(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	middleware.AddAuditContext(c, "state", string(report.State))
	c.JSON(http.StatusOK, report)
}
