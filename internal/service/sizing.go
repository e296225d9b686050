package service

import (
	"context"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

// CalculatePositionSize sizes a position so that hitting stop loses exactly
// risk. StopPercent is expressed in percent.
func CalculatePositionSize(risk, entry, stop float64) (*model.PositionSize, error) {
	if risk <= 0 || entry <= 0 || stop <= 0 {
		return nil, apperrors.NewInvalidRequest("risk, entry and stop must be positive")
	}
	r := decimal.NewFromFloat(risk)
	e := decimal.NewFromFloat(entry)
	s := decimal.NewFromFloat(stop)
	if e.Equal(s) {
		return nil, apperrors.NewInvalidRequest("stop price must differ from entry price")
	}

	slFraction := e.Sub(s).Abs().Div(e)
	value := r.Div(slFraction)
	qty := value.Div(e)
	return &model.PositionSize{
		PositionValue: value.Round(2).InexactFloat64(),
		Quantity:      qty.Round(6).InexactFloat64(),
		StopPercent:   slFraction.Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64(),
	}, nil
}

// ExecuteTrade opens a risk-sized market position and brackets it with a
// stop loss and an optional take profit. Protective order failures are
// reported but never unwind the entry.
func (c *TradingClient) ExecuteTrade(ctx context.Context, ks KeySource, p model.TradeParams) (*model.TradeResult, error) {
	out := &model.TradeResult{}
	if (p.IsBuy && p.StopLoss >= p.EntryPrice) || (!p.IsBuy && p.StopLoss <= p.EntryPrice) {
		res, err := c.fail("execute_trade", apperrors.NewInvalidRequest("stop loss is on the wrong side of the entry"))
		out.Entry = res
		return out, err
	}
	sizing, err := CalculatePositionSize(p.RiskAmount, p.EntryPrice, p.StopLoss)
	if err != nil {
		res, err := c.fail("execute_trade", err)
		out.Entry = res
		return out, err
	}
	out.Sizing = sizing

	if p.Leverage > 0 {
		lev, err := c.SetLeverage(ctx, ks, p.Asset, p.Leverage)
		if err != nil {
			return out, err
		}
		out.Leverage = lev
		if !lev.Success {
			out.Entry = model.Failed("leverage not set: " + lev.Error)
			return out, nil
		}
	}

	entry, err := c.PlaceMarketOrder(ctx, ks, p.Asset, p.IsBuy, sizing.Quantity)
	if err != nil {
		return out, err
	}
	out.Entry = entry
	if !entry.Success {
		return out, nil
	}

	size := sizing.Quantity
	if filled, err := decimal.NewFromString(entry.FilledSize); err == nil && filled.IsPositive() {
		size = filled.InexactFloat64()
	}

	if out.StopLoss, err = c.PlaceStopLoss(ctx, ks, p.Asset, p.IsBuy, size, p.StopLoss); err != nil {
		return out, err
	}
	if p.TakeProfit > 0 {
		if out.TakeProfit, err = c.PlaceTakeProfit(ctx, ks, p.Asset, p.IsBuy, size, p.TakeProfit); err != nil {
			return out, err
		}
	}
	return out, nil
}
