package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/middleware"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/service"
)

type OrderHandler struct {
	svc *service.GatewayService
}

func NewOrderHandler(svc *service.GatewayService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) Mount(v1 *gin.RouterGroup) {
	v1.POST("/orders", h.PlaceOrder)
	v1.POST("/orders/market", h.PlaceMarketOrder)
	v1.POST("/orders/stop-loss", h.PlaceStopLoss)
	v1.POST("/orders/take-profit", h.PlaceTakeProfit)
	v1.GET("/orders", h.OpenOrders)
	v1.DELETE("/orders/:asset/:oid", h.CancelOrder)
	v1.DELETE("/orders", h.CancelAll)
	v1.POST("/leverage", h.SetLeverage)
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.OrderParams
	if !bindJSON(c, &req) {
		return
	}
	middleware.AddAuditContext(c, "asset", req.Asset)
	res, err := h.svc.PlaceOrder(c.Request.Context(), acct, vaultPassword(c), req)
	renderResult(c, "place_order", res, err)
}

func (h *OrderHandler) PlaceMarketOrder(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.MarketOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	middleware.AddAuditContext(c, "asset", req.Asset)
	res, err := h.svc.PlaceMarketOrder(c.Request.Context(), acct, vaultPassword(c), req)
	renderResult(c, "place_market_order", res, err)
}

func (h *OrderHandler) PlaceStopLoss(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.TriggerOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.PlaceStopLoss(c.Request.Context(), acct, vaultPassword(c), req)
	renderResult(c, "place_stop_loss", res, err)
}

func (h *OrderHandler) PlaceTakeProfit(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.TriggerOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.PlaceTakeProfit(c.Request.Context(), acct, vaultPassword(c), req)
	renderResult(c, "place_take_profit", res, err)
}

func (h *OrderHandler) SetLeverage(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.LeverageRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.SetLeverage(c.Request.Context(), acct, vaultPassword(c), req)
	renderResult(c, "set_leverage", res, err)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	oid, err := strconv.ParseInt(c.Param("oid"), 10, 64)
	if err != nil || oid <= 0 {
		renderError(c, apperrors.NewInvalidRequest("oid must be a positive integer"))
		return
	}
	res, err := h.svc.CancelOrder(c.Request.Context(), acct, vaultPassword(c), c.Param("asset"), oid)
	renderResult(c, "cancel_order", res, err)
}

func (h *OrderHandler) CancelAll(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	res, err := h.svc.CancelAllOrders(c.Request.Context(), acct, vaultPassword(c))
	renderResult(c, "cancel_all_orders", res, err)
}

func (h *OrderHandler) OpenOrders(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	orders, err := h.svc.OpenOrders(c.Request.Context(), acct)
	if err != nil {
		renderError(c, err)
		return
	}
	if orders == nil {
		orders = []model.OpenOrder{}
	}
	c.JSON(http.StatusOK, orders)
}
