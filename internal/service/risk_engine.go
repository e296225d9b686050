package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/pkg/logger"
	"github.com/hlgate/hlgate/internal/pkg/metrics"
)

type UsageRepo interface {
	GetDailyUsage(ctx context.Context, accountID string) (int, float64, error)
	AddDailyUsage(ctx context.Context, accountID string, orders int, notional float64) error
}

// RiskCheck describes an order about to be signed. Notional is in USD.
type RiskCheck struct {
	Asset    string
	Notional float64
	Leverage int
}

type RiskEngine struct {
	repo UsageRepo
}

func NewRiskEngine(repo UsageRepo) *RiskEngine {
	return &RiskEngine{repo: repo}
}

func reject(reason, format string, args ...any) error {
	metrics.RiskRejects.WithLabelValues(reason).Inc()
	return apperrors.NewRiskReject("risk reject: " + fmt.Sprintf(format, args...))
}

// CheckOrder runs the pre-trade checks. A non-nil error means the order must
// not be signed.
func (e *RiskEngine) CheckOrder(ctx context.Context, acct *model.Account, chk RiskCheck) error {
	cfg := acct.Risk

	for _, blocked := range cfg.BlockedAssets {
		if strings.EqualFold(blocked, chk.Asset) {
			return reject("blocked_asset", "asset %s is blocked for this account", chk.Asset)
		}
	}

	if chk.Leverage > 0 && cfg.MaxLeverage > 0 && chk.Leverage > cfg.MaxLeverage {
		return reject("max_leverage", "leverage %d exceeds limit %d", chk.Leverage, cfg.MaxLeverage)
	}

	if chk.Notional < 0 {
		return reject("invalid_notional", "notional must not be negative")
	}
	if cfg.MaxOrderValue > 0 && chk.Notional > cfg.MaxOrderValue {
		return reject("max_value", "order value %.2f exceeds limit %.2f", chk.Notional, cfg.MaxOrderValue)
	}

	if chk.Notional > 0 && e.repo != nil && (cfg.MaxDailyValue > 0 || cfg.MaxDailyOrders > 0) {
		orders, volume, err := e.repo.GetDailyUsage(ctx, acct.ID)
		if err != nil {
			return fmt.Errorf("risk check failed: %w", err)
		}
		if cfg.MaxDailyValue > 0 && volume+chk.Notional > cfg.MaxDailyValue {
			return reject("daily_volume_limit", "daily volume limit exceeded (curr: %.2f, new: %.2f, max: %.2f)",
				volume, chk.Notional, cfg.MaxDailyValue)
		}
		if cfg.MaxDailyOrders > 0 && orders+1 > cfg.MaxDailyOrders {
			return reject("daily_order_limit", "daily order limit exceeded (curr: %d, max: %d)", orders, cfg.MaxDailyOrders)
		}
	}
	return nil
}

// Record books an accepted order against the account's daily usage.
func (e *RiskEngine) Record(ctx context.Context, acct *model.Account, notional float64) {
	if e.repo == nil || notional <= 0 {
		return
	}
	if err := e.repo.AddDailyUsage(ctx, acct.ID, 1, notional); err != nil {
		logger.Warn("Failed to record daily usage", "account_id", acct.ID, "error", err)
	}
}
