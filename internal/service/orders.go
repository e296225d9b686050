package service

import (
	"context"
	"fmt"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
)

// PlaceOrder submits a limit order. Post-only orders use Alo, everything else Gtc.
func (c *TradingClient) PlaceOrder(ctx context.Context, ks KeySource, p model.OrderParams) (*model.OrderResult, error) {
	wire, err := c.buildLimitOrder(ctx, p)
	if err != nil {
		return c.fail("place_order", err)
	}
	return c.submitOrder(ctx, ks, "place_order", wire)
}

// PlaceMarketOrder crosses the book with a limit order priced off the mid
// plus the configured slippage in the direction of the trade.
func (c *TradingClient) PlaceMarketOrder(ctx context.Context, ks KeySource, asset string, isBuy bool, size float64) (*model.OrderResult, error) {
	return c.placeMarket(ctx, ks, "place_market_order", asset, isBuy, size, false)
}

func (c *TradingClient) placeMarket(ctx context.Context, ks KeySource, verb, asset string, isBuy bool, size float64, reduceOnly bool) (*model.OrderResult, error) {
	px, err := c.slippagePrice(ctx, asset, isBuy)
	if err != nil {
		return c.fail(verb, err)
	}
	wire, err := c.buildLimitOrder(ctx, model.OrderParams{
		Asset:      asset,
		IsBuy:      isBuy,
		Price:      px,
		Size:       size,
		ReduceOnly: reduceOnly,
	})
	if err != nil {
		return c.fail(verb, err)
	}
	return c.submitOrder(ctx, ks, verb, wire)
}

// PlaceStopLoss places a reduce-only market trigger on the side that closes
// a position. isLong is the direction of the position being protected.
func (c *TradingClient) PlaceStopLoss(ctx context.Context, ks KeySource, asset string, isLong bool, size, triggerPx float64) (*model.OrderResult, error) {
	return c.placeTrigger(ctx, ks, "place_stop_loss", asset, isLong, size, triggerPx, model.TpslStopLoss)
}

// PlaceTakeProfit is PlaceStopLoss with the tp discriminator.
func (c *TradingClient) PlaceTakeProfit(ctx context.Context, ks KeySource, asset string, isLong bool, size, triggerPx float64) (*model.OrderResult, error) {
	return c.placeTrigger(ctx, ks, "place_take_profit", asset, isLong, size, triggerPx, model.TpslTakeProfit)
}

func (c *TradingClient) placeTrigger(ctx context.Context, ks KeySource, verb, asset string, isLong bool, size, triggerPx float64, tpsl string) (*model.OrderResult, error) {
	md, err := c.assets.Lookup(ctx, asset)
	if err != nil {
		return c.fail(verb, err)
	}
	if triggerPx <= 0 || size <= 0 {
		return c.fail(verb, apperrors.NewInvalidRequest("trigger price and size must be positive"))
	}
	sz := FormatSize(size, md.SzDecimals)
	if sz == "0" {
		return c.fail(verb, apperrors.NewInvalidRequest(fmt.Sprintf("size %v is below the %s size increment", size, md.Symbol)))
	}
	px := FormatPrice(triggerPx)
	wire := model.OrderWire{
		Asset:      md.ID,
		IsBuy:      !isLong,
		LimitPx:    px,
		Size:       sz,
		ReduceOnly: true,
		OrderType: model.OrderTypeWire{Trigger: &model.TriggerOrderType{
			IsMarket:  true,
			TriggerPx: px,
			Tpsl:      tpsl,
		}},
	}
	return c.submitOrder(ctx, ks, verb, wire)
}

// SetLeverage switches asset to cross margin at the given leverage.
func (c *TradingClient) SetLeverage(ctx context.Context, ks KeySource, asset string, leverage int) (*model.OrderResult, error) {
	const verb = "set_leverage"
	md, err := c.assets.Lookup(ctx, asset)
	if err != nil {
		return c.fail(verb, err)
	}
	if leverage < 1 || (md.MaxLeverage > 0 && leverage > md.MaxLeverage) {
		return c.fail(verb, apperrors.NewInvalidRequest(fmt.Sprintf("leverage %d out of range for %s (max %d)", leverage, md.Symbol, md.MaxLeverage)))
	}

	resp, err := c.submitL1(ctx, ks, model.NewUpdateLeverageAction(md.ID, leverage))
	if err != nil {
		return c.fail(verb, err)
	}
	if err := resp.Err(); err != nil {
		return c.done(verb, model.Failed(err.Error()))
	}
	return c.done(verb, model.Succeeded())
}

// CancelOrder cancels one resting order.
func (c *TradingClient) CancelOrder(ctx context.Context, ks KeySource, asset string, oid int64) (*model.OrderResult, error) {
	const verb = "cancel_order"
	md, err := c.assets.Lookup(ctx, asset)
	if err != nil {
		return c.fail(verb, err)
	}
	resp, err := c.submitL1(ctx, ks, model.NewCancelAction(model.CancelWire{Asset: md.ID, OID: oid}))
	if err != nil {
		return c.fail(verb, err)
	}
	statuses, err := resp.Statuses()
	if err != nil {
		return c.done(verb, model.Failed(err.Error()))
	}
	if len(statuses) > 0 && statuses[0].Failed() {
		return c.done(verb, model.Failed(statuses[0].Error))
	}
	return c.done(verb, &model.OrderResult{Success: true, OrderID: &oid})
}

// CancelAllOrders cancels every open order one at a time. A failed cancel
// does not stop the rest; failures are reported as "{symbol} order {id}".
func (c *TradingClient) CancelAllOrders(ctx context.Context, ks KeySource) (*model.OrderResult, error) {
	agg, err := c.cancelAll(ctx, ks)
	if err != nil {
		return c.fail("cancel_all_orders", err)
	}
	return c.done("cancel_all_orders", agg.OrderResult("cancel orders"))
}

func (c *TradingClient) cancelAll(ctx context.Context, ks KeySource) (Aggregate, error) {
	orders, err := c.GetOpenOrders(ctx, c.Account(ks))
	if err != nil {
		return Aggregate{}, err
	}

	items := make([]ItemResult, 0, len(orders))
	for _, o := range orders {
		res, err := c.CancelOrder(ctx, ks, o.Coin, o.OID)
		if err != nil {
			return Aggregate{}, err
		}
		items = append(items, ItemResult{ID: fmt.Sprintf("%s order %d", o.Coin, o.OID), Result: res})
	}
	return Fold(items), nil
}

func (c *TradingClient) buildLimitOrder(ctx context.Context, p model.OrderParams) (model.OrderWire, error) {
	md, err := c.assets.Lookup(ctx, p.Asset)
	if err != nil {
		return model.OrderWire{}, err
	}
	if p.Price <= 0 {
		return model.OrderWire{}, apperrors.NewInvalidRequest("price must be positive")
	}
	if p.Size <= 0 {
		return model.OrderWire{}, apperrors.NewInvalidRequest("size must be positive")
	}
	sz := FormatSize(p.Size, md.SzDecimals)
	if sz == "0" {
		return model.OrderWire{}, apperrors.NewInvalidRequest(fmt.Sprintf("size %v is below the %s size increment", p.Size, md.Symbol))
	}

	tif := model.TifGtc
	if p.PostOnly {
		tif = model.TifAlo
	}
	return model.OrderWire{
		Asset:      md.ID,
		IsBuy:      p.IsBuy,
		LimitPx:    FormatPrice(p.Price),
		Size:       sz,
		ReduceOnly: p.ReduceOnly,
		OrderType:  model.OrderTypeWire{Limit: &model.LimitOrderType{Tif: tif}},
	}, nil
}

func (c *TradingClient) submitOrder(ctx context.Context, ks KeySource, verb string, wire model.OrderWire) (*model.OrderResult, error) {
	resp, err := c.submitL1(ctx, ks, model.NewOrderAction(wire))
	if err != nil {
		return c.fail(verb, err)
	}
	statuses, err := resp.Statuses()
	if err != nil {
		return c.done(verb, model.Failed(err.Error()))
	}
	if len(statuses) == 0 {
		return c.done(verb, model.Failed("exchange returned no order status"))
	}
	return c.done(verb, resultFromStatus(statuses[0]))
}

func resultFromStatus(s model.ActionStatus) *model.OrderResult {
	switch {
	case s.Filled != nil:
		oid := s.Filled.OID
		return &model.OrderResult{Success: true, OrderID: &oid, FilledSize: s.Filled.TotalSz, AvgPrice: s.Filled.AvgPx}
	case s.Resting != nil:
		oid := s.Resting.OID
		return &model.OrderResult{Success: true, OrderID: &oid}
	case s.Error != "":
		return model.Failed(s.Error)
	default:
		// Bare statuses such as "waitingForTrigger" mean accepted.
		return model.Succeeded()
	}
}

func (c *TradingClient) slippagePrice(ctx context.Context, asset string, isBuy bool) (float64, error) {
	mid, err := c.MidPrice(ctx, asset)
	if err != nil {
		return 0, err
	}
	if isBuy {
		return mid * (1 + c.opts.MarketSlippage), nil
	}
	return mid * (1 - c.opts.MarketSlippage), nil
}

// MidPrice prefers the local mid source and falls back to /info allMids.
func (c *TradingClient) MidPrice(ctx context.Context, asset string) (float64, error) {
	md, err := c.assets.Lookup(ctx, asset)
	if err != nil {
		return 0, err
	}
	if c.opts.Mids != nil {
		if mid, ok := c.opts.Mids.Mid(md.Symbol); ok && mid > 0 {
			return mid, nil
		}
	}
	mids, err := c.GetAllMids(ctx)
	if err != nil {
		return 0, err
	}
	raw, ok := mids[md.Symbol]
	if !ok {
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("no mid price for %s", md.Symbol))
	}
	mid, err := parsePositive(raw)
	if err != nil {
		return 0, fmt.Errorf("mid price for %s: %w", md.Symbol, err)
	}
	return mid, nil
}
