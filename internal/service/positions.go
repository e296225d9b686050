package service

import (
	"context"
	"strings"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/shopspring/decimal"
)

// ClosePosition flattens the position in asset with a reduce-only market
// order. Having nothing to close is a success.
func (c *TradingClient) ClosePosition(ctx context.Context, ks KeySource, asset string) (*model.OrderResult, error) {
	const verb = "close_position"
	md, err := c.assets.Lookup(ctx, asset)
	if err != nil {
		return c.fail(verb, err)
	}
	positions, err := c.GetPositions(ctx, c.Account(ks))
	if err != nil {
		return c.fail(verb, err)
	}
	for _, p := range positions {
		if strings.EqualFold(p.Coin, md.Symbol) {
			return c.closeOne(ctx, ks, p)
		}
	}
	return c.done(verb, model.Succeeded())
}

// CloseAllPositions closes every open position one at a time. Failures are
// reported by symbol and do not stop the remaining closes.
func (c *TradingClient) CloseAllPositions(ctx context.Context, ks KeySource) (*model.OrderResult, error) {
	agg, err := c.closeAll(ctx, ks)
	if err != nil {
		return c.fail("close_all_positions", err)
	}
	return c.done("close_all_positions", agg.OrderResult("close positions"))
}

func (c *TradingClient) closeAll(ctx context.Context, ks KeySource) (Aggregate, error) {
	positions, err := c.GetPositions(ctx, c.Account(ks))
	if err != nil {
		return Aggregate{}, err
	}
	items := make([]ItemResult, 0, len(positions))
	for _, p := range positions {
		res, err := c.closeOne(ctx, ks, p)
		if err != nil {
			return Aggregate{}, err
		}
		items = append(items, ItemResult{ID: p.Coin, Result: res})
	}
	return Fold(items), nil
}

func (c *TradingClient) closeOne(ctx context.Context, ks KeySource, p model.Position) (*model.OrderResult, error) {
	szi, err := decimal.NewFromString(p.Szi)
	if err != nil {
		return c.fail("close_position", err)
	}
	if szi.IsZero() {
		return c.done("close_position", model.Succeeded())
	}
	// A long closes with a sell.
	isBuy := szi.IsNegative()
	return c.placeMarket(ctx, ks, "close_position", p.Coin, isBuy, szi.Abs().InexactFloat64(), true)
}
