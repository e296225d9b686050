package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/middleware"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/service"
)

type TradeHandler struct {
	svc *service.GatewayService
}

func NewTradeHandler(svc *service.GatewayService) *TradeHandler {
	return &TradeHandler{svc: svc}
}

func (h *TradeHandler) Mount(v1 *gin.RouterGroup) {
	v1.POST("/trades", h.Execute)
	v1.POST("/sizing", h.Sizing)
}

func (h *TradeHandler) Execute(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.TradeParams
	if !bindJSON(c, &req) {
		return
	}
	middleware.AddAuditContext(c, "action", "execute_trade")
	middleware.AddAuditContext(c, "asset", req.Asset)
	res, err := h.svc.ExecuteTrade(c.Request.Context(), acct, vaultPassword(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Sizing is pure arithmetic and touches neither the exchange nor the vault.
func (h *TradeHandler) Sizing(c *gin.Context) {
	var req model.SizingRequest
	if !bindJSON(c, &req) {
		return
	}
	size, err := service.CalculatePositionSize(req.RiskAmount, req.EntryPrice, req.StopLoss)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, size)
}
