package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/service"
)

// AccountHandler serves the read side of the exchange account plus the
// position-closing verbs.
type AccountHandler struct {
	svc *service.GatewayService
}

func NewAccountHandler(svc *service.GatewayService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Mount(v1 *gin.RouterGroup) {
	v1.GET("/account", h.State)
	v1.GET("/positions", h.Positions)
	v1.DELETE("/positions/:asset", h.ClosePosition)
	v1.DELETE("/positions", h.CloseAll)
	v1.GET("/mids", h.Mids)
	v1.GET("/assets", h.Assets)
}

func (h *AccountHandler) State(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	state, err := h.svc.AccountState(c.Request.Context(), acct)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *AccountHandler) Positions(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	positions, err := h.svc.Positions(c.Request.Context(), acct)
	if err != nil {
		renderError(c, err)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	c.JSON(http.StatusOK, positions)
}

func (h *AccountHandler) ClosePosition(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	res, err := h.svc.ClosePosition(c.Request.Context(), acct, vaultPassword(c), c.Param("asset"))
	renderResult(c, "close_position", res, err)
}

func (h *AccountHandler) CloseAll(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	res, err := h.svc.CloseAllPositions(c.Request.Context(), acct, vaultPassword(c))
	renderResult(c, "close_all_positions", res, err)
}

func (h *AccountHandler) Mids(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	mids, err := h.svc.Mids(c.Request.Context(), acct)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, mids)
}

func (h *AccountHandler) Assets(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	assets, err := h.svc.Assets(c.Request.Context(), acct)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}
