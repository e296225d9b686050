package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hlgate/hlgate/internal/config"
	"github.com/hlgate/hlgate/internal/middleware"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/service"
)

// AdminHandler manages accounts. Responses never carry the stored secret.
type AdminHandler struct {
	accounts *service.AccountService
	gateway  *service.GatewayService
	audit    *AuditHandler
}

func NewAdminHandler(accounts *service.AccountService, gateway *service.GatewayService, audit *AuditHandler) *AdminHandler {
	return &AdminHandler{accounts: accounts, gateway: gateway, audit: audit}
}

// Mount registers /admin under v1. Routes that replace key material also
// require the admin secret.
func (h *AdminHandler) Mount(v1 *gin.RouterGroup, cfg *config.Config) {
	admin := v1.Group("/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	admin.GET("/accounts", h.List)
	admin.GET("/accounts/:id", h.Get)
	admin.POST("/accounts", middleware.AdminSecretMiddleware(cfg), h.Create)
	admin.PUT("/accounts/:id", h.Update)
	admin.PUT("/accounts/:id/secret", middleware.AdminSecretMiddleware(cfg), h.RotateSecret)
	admin.DELETE("/accounts/:id", h.Delete)
	admin.POST("/accounts/:id/resume", h.Resume)
	if h.audit != nil {
		admin.GET("/audit", h.audit.ListAll)
	}
}

func (h *AdminHandler) List(c *gin.Context) {
	limit := 100
	offset := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			offset = parsed
		}
	}
	accounts, err := h.accounts.List(c.Request.Context(), limit, offset)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountPublicList(accounts))
}

func (h *AdminHandler) Get(c *gin.Context) {
	a, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountPublic(a))
}

func (h *AdminHandler) Create(c *gin.Context) {
	var req service.AccountCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.accounts.Create(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	middleware.AddAuditContext(c, "account_id", a.ID)
	c.JSON(http.StatusCreated, toAccountPublic(a))
}

func (h *AdminHandler) Update(c *gin.Context) {
	var req service.AccountUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.accounts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountPublic(a))
}

func (h *AdminHandler) RotateSecret(c *gin.Context) {
	var req service.SecretRotateRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.accounts.RotateSecret(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		renderError(c, err)
		return
	}
	middleware.AddAuditContext(c, "account_id", a.ID)
	c.JSON(http.StatusOK, toAccountPublic(a))
}

func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Resume lifts the trading halt left by an emergency withdrawal.
func (h *AdminHandler) Resume(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.accounts.Get(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	if !h.gateway.ResumeTrading(id) {
		renderError(c, apperrors.NewInvalidRequest("account "+id+" is not halted"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resumed"})
}

type AccountPublic struct {
	ID      string                `json:"id"`
	Name    string                `json:"name"`
	APIKey  string                `json:"api_key"`
	Address string                `json:"address"`
	KeyMode string                `json:"key_mode"`
	Risk    model.RiskConfig      `json:"risk"`
	Rate    model.RateLimitConfig `json:"rate_limit"`
}

func toAccountPublic(a *model.Account) *AccountPublic {
	if a == nil {
		return nil
	}
	return &AccountPublic{
		ID:      a.ID,
		Name:    a.Name,
		APIKey:  maskSecret(a.APIKey),
		Address: a.Address,
		KeyMode: a.KeyMode,
		Risk:    a.Risk,
		Rate:    a.Rate,
	}
}

func toAccountPublicList(accounts []*model.Account) []*AccountPublic {
	out := make([]*AccountPublic, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountPublic(a))
	}
	return out
}

func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
