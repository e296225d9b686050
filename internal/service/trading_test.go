package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const restingReply = `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":77}}]}}}`

func TestPlaceOrderBuildsExactWirePayload(t *testing.T) {
	gw := newFakeGateway()
	gw.exchange = func(model.ExchangeRequest) string { return restingReply }
	c := newTestClient(gw)

	res, err := c.PlaceOrder(context.Background(), testKey(), model.OrderParams{
		Asset: "btc", IsBuy: true, Price: 27123.456, Size: 0.12345,
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.OrderID)
	assert.Equal(t, int64(77), *res.OrderID)

	calls := gw.exchangeCalls()
	require.Len(t, calls, 1)
	action, ok := calls[0].Action.(*model.OrderAction)
	require.True(t, ok)
	require.Len(t, action.Orders, 1)
	o := action.Orders[0]
	assert.Equal(t, 0, o.Asset)
	assert.True(t, o.IsBuy)
	assert.Equal(t, "27123.5", o.LimitPx)
	assert.Equal(t, "0.123", o.Size)
	require.NotNil(t, o.OrderType.Limit)
	assert.Equal(t, model.TifGtc, o.OrderType.Limit.Tif)
	assert.Equal(t, model.GroupingNA, action.Grouping)

	addr, err := signer.RecoverL1Signer(calls[0].Action, nil, calls[0].Nonce, false, calls[0].Signature)
	require.NoError(t, err)
	assert.Equal(t, testKey().Address(), addr)
}

func TestPlaceOrderPostOnlyUsesAlo(t *testing.T) {
	gw := newFakeGateway()
	gw.exchange = func(model.ExchangeRequest) string { return restingReply }
	c := newTestClient(gw)

	_, err := c.PlaceOrder(context.Background(), testKey(), model.OrderParams{
		Asset: "ETH", Price: 1800, Size: 1, PostOnly: true,
	})
	require.NoError(t, err)
	action := gw.exchangeCalls()[0].Action.(*model.OrderAction)
	assert.Equal(t, 1, action.Orders[0].Asset)
	assert.Equal(t, model.TifAlo, action.Orders[0].OrderType.Limit.Tif)
}

func TestPlaceOrderRejections(t *testing.T) {
	gw := newFakeGateway()
	c := newTestClient(gw)
	ctx := context.Background()

	res, err := c.PlaceOrder(ctx, testKey(), model.OrderParams{Asset: "DOGE", Price: 1, Size: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown asset")

	res, err = c.PlaceOrder(ctx, testKey(), model.OrderParams{Asset: "BTC", Price: 30000, Size: 0.0004})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "size increment")

	assert.Empty(t, gw.exchangeCalls())
}

func TestPlaceOrderSurfacesExchangeErrors(t *testing.T) {
	gw := newFakeGateway()
	gw.exchange = func(model.ExchangeRequest) string {
		return `{"status":"ok","response":{"type":"order","data":{"statuses":[{"error":"Insufficient margin to place order."}]}}}`
	}
	c := newTestClient(gw)

	res, err := c.PlaceOrder(context.Background(), testKey(), model.OrderParams{Asset: "BTC", Price: 30000, Size: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Insufficient margin to place order.", res.Error)

	gw.exchange = func(model.ExchangeRequest) string { return `{"status":"err","response":"User or API Wallet does not exist."}` }
	res, err = c.PlaceOrder(context.Background(), testKey(), model.OrderParams{Asset: "BTC", Price: 30000, Size: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "User or API Wallet does not exist.", res.Error)
}

func TestPlaceMarketOrderAppliesSlippage(t *testing.T) {
	gw := newFakeGateway()
	gw.info["allMids"] = `{"BTC":"30000","ETH":"2000"}`
	gw.exchange = func(model.ExchangeRequest) string {
		return `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"0.5","avgPx":"30010.0","oid":9}}]}}}`
	}
	c := newTestClient(gw)

	res, err := c.PlaceMarketOrder(context.Background(), testKey(), "BTC", true, 0.5)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "0.5", res.FilledSize)
	assert.Equal(t, "30010.0", res.AvgPrice)

	_, err = c.PlaceMarketOrder(context.Background(), testKey(), "ETH", false, 2)
	require.NoError(t, err)

	calls := gw.exchangeCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "30300", calls[0].Action.(*model.OrderAction).Orders[0].LimitPx)
	assert.Equal(t, "1980", calls[1].Action.(*model.OrderAction).Orders[0].LimitPx)
}

type staticMids map[string]float64

func (m staticMids) Mid(symbol string) (float64, bool) {
	v, ok := m[symbol]
	return v, ok
}

func TestPlaceMarketOrderPrefersLocalMids(t *testing.T) {
	gw := newFakeGateway()
	c := NewTradingClient(gw, TradingOptions{Mids: staticMids{"BTC": 20000}})

	_, err := c.PlaceMarketOrder(context.Background(), testKey(), "BTC", true, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0, gw.infoCalls["allMids"])
	assert.Equal(t, "20200", gw.exchangeCalls()[0].Action.(*model.OrderAction).Orders[0].LimitPx)
}

func TestTriggerOrdersCloseTheProtectedSide(t *testing.T) {
	gw := newFakeGateway()
	gw.exchange = func(model.ExchangeRequest) string {
		return `{"status":"ok","response":{"type":"order","data":{"statuses":["waitingForTrigger"]}}}`
	}
	c := newTestClient(gw)
	ctx := context.Background()

	res, err := c.PlaceStopLoss(ctx, testKey(), "BTC", true, 0.5, 28000.04)
	require.NoError(t, err)
	assert.True(t, res.Success)
	res, err = c.PlaceTakeProfit(ctx, testKey(), "BTC", false, 0.5, 25000)
	require.NoError(t, err)
	assert.True(t, res.Success)

	calls := gw.exchangeCalls()
	require.Len(t, calls, 2)
	sl := calls[0].Action.(*model.OrderAction).Orders[0]
	assert.False(t, sl.IsBuy)
	assert.True(t, sl.ReduceOnly)
	assert.Equal(t, "28000", sl.LimitPx)
	require.NotNil(t, sl.OrderType.Trigger)
	assert.Equal(t, "28000", sl.OrderType.Trigger.TriggerPx)
	assert.Equal(t, model.TpslStopLoss, sl.OrderType.Trigger.Tpsl)
	assert.True(t, sl.OrderType.Trigger.IsMarket)

	tp := calls[1].Action.(*model.OrderAction).Orders[0]
	assert.True(t, tp.IsBuy)
	assert.Equal(t, model.TpslTakeProfit, tp.OrderType.Trigger.Tpsl)
}

func TestSetLeverageValidatesRange(t *testing.T) {
	gw := newFakeGateway()
	c := newTestClient(gw)
	ctx := context.Background()

	res, err := c.SetLeverage(ctx, testKey(), "ETH", 26)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, gw.exchangeCalls())

	res, err = c.SetLeverage(ctx, testKey(), "ETH", 10)
	require.NoError(t, err)
	assert.True(t, res.Success)
	action := gw.exchangeCalls()[0].Action.(*model.UpdateLeverageAction)
	assert.Equal(t, 1, action.Asset)
	assert.True(t, action.IsCross)
	assert.Equal(t, 10, action.Leverage)
}

func TestCancelAllOrdersReportsEveryFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.info["openOrders"] = `[
		{"coin":"BTC","limitPx":"29000.0","oid":1,"side":"B","sz":"0.1","timestamp":1},
		{"coin":"ETH","limitPx":"1900.0","oid":2,"side":"A","sz":"1.0","timestamp":2},
		{"coin":"BTC","limitPx":"28000.0","oid":3,"side":"B","sz":"0.1","timestamp":3}
	]`
	gw.exchange = func(req model.ExchangeRequest) string {
		if req.Action.(*model.CancelAction).Cancels[0].OID == 2 {
			return `{"status":"ok","response":{"type":"cancel","data":{"statuses":[{"error":"Order was never placed, already canceled, or filled."}]}}}`
		}
		return `{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`
	}
	c := newTestClient(gw)

	res, err := c.CancelAllOrders(context.Background(), testKey())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "failed to cancel orders: ETH order 2", res.Error)
	assert.Len(t, gw.exchangeCalls(), 3)
}

func TestCancelAllOrdersWithNothingOpen(t *testing.T) {
	gw := newFakeGateway()
	gw.info["openOrders"] = `[]`
	c := newTestClient(gw)

	res, err := c.CancelAllOrders(context.Background(), testKey())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, gw.exchangeCalls())
}

const positionsState = `{
	"assetPositions":[
		{"type":"oneWay","position":{"coin":"BTC","szi":"-0.5","entryPx":"31000.0","positionValue":"15000","unrealizedPnl":"500","returnOnEquity":"0.1","liquidationPx":null,"marginUsed":"1500","leverage":{"type":"cross","value":10}}},
		{"type":"oneWay","position":{"coin":"ETH","szi":"2.0","entryPx":"1900.0","positionValue":"4000","unrealizedPnl":"200","returnOnEquity":"0.05","liquidationPx":null,"marginUsed":"400","leverage":{"type":"cross","value":10}}},
		{"type":"oneWay","position":{"coin":"SOL","szi":"0.0","entryPx":null,"positionValue":"0","unrealizedPnl":"0","returnOnEquity":"0","liquidationPx":null,"marginUsed":"0","leverage":{"type":"cross","value":10}}}
	],
	"withdrawable":"250.5",
	"time":1700000000000
}`

func TestClosePositionFlattensWithReduceOnly(t *testing.T) {
	gw := newFakeGateway()
	gw.info["clearinghouseState"] = positionsState
	gw.info["allMids"] = `{"BTC":"30000","ETH":"2000"}`
	c := newTestClient(gw)

	res, err := c.ClosePosition(context.Background(), testKey(), "BTC")
	require.NoError(t, err)
	assert.True(t, res.Success)

	calls := gw.exchangeCalls()
	require.Len(t, calls, 1)
	o := calls[0].Action.(*model.OrderAction).Orders[0]
	assert.True(t, o.IsBuy)
	assert.True(t, o.ReduceOnly)
	assert.Equal(t, "0.5", o.Size)
	assert.Equal(t, "30300", o.LimitPx)
}

func TestClosePositionWithoutPositionIsNoop(t *testing.T) {
	gw := newFakeGateway()
	gw.info["clearinghouseState"] = `{"assetPositions":[],"withdrawable":"0"}`
	c := newTestClient(gw)

	res, err := c.ClosePosition(context.Background(), testKey(), "ETH")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, gw.exchangeCalls())

	// SOL is not in the test universe; an unknown asset is an error, not a no-op.
	res, err = c.ClosePosition(context.Background(), testKey(), "SOL")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestCloseAllPositionsSkipsFlatAndReportsFailures(t *testing.T) {
	gw := newFakeGateway()
	gw.info["clearinghouseState"] = positionsState
	gw.info["allMids"] = `{"BTC":"30000","ETH":"2000"}`
	gw.exchange = func(req model.ExchangeRequest) string {
		if req.Action.(*model.OrderAction).Orders[0].Asset == 1 {
			return `{"status":"ok","response":{"type":"order","data":{"statuses":[{"error":"Reduce only order would increase position."}]}}}`
		}
		return restingReply
	}
	c := newTestClient(gw)

	res, err := c.CloseAllPositions(context.Background(), testKey())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "failed to close positions: ETH", res.Error)
	assert.Len(t, gw.exchangeCalls(), 2)
}

func TestGetPositionsDropsZeroSize(t *testing.T) {
	gw := newFakeGateway()
	gw.info["clearinghouseState"] = positionsState
	c := newTestClient(gw)

	positions, err := c.GetPositions(context.Background(), testKey().Address())
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "BTC", positions[0].Coin)
	assert.Equal(t, "ETH", positions[1].Coin)
}

func TestAssetCacheFetchesOnce(t *testing.T) {
	gw := newFakeGateway()
	c := newTestClient(gw)
	ctx := context.Background()

	_, err := c.assets.Lookup(ctx, "BTC")
	require.NoError(t, err)
	_, err = c.assets.Lookup(ctx, "eth")
	require.NoError(t, err)
	all, err := c.GetAssets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, gw.infoCalls["meta"])
}

func TestAssetCacheRetriesAfterFailedLoad(t *testing.T) {
	gw := newFakeGateway()
	gw.infoErr["meta"] = errors.New("connection reset")
	c := newTestClient(gw)
	ctx := context.Background()

	_, err := c.assets.Lookup(ctx, "BTC")
	require.Error(t, err)
	md, err := c.assets.Lookup(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, 3, md.SzDecimals)
	assert.Equal(t, 2, gw.infoCalls["meta"])
}

func TestTransportFailureFoldsIntoResult(t *testing.T) {
	gw := newFakeGateway()
	gw.infoErr["meta"] = apperrors.New(apperrors.ErrTransport, "POST /info failed", errors.New("timeout"))
	c := newTestClient(gw)

	res, err := c.PlaceOrder(context.Background(), testKey(), model.OrderParams{Asset: "BTC", Price: 1, Size: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, strings.Contains(res.Error, "timeout"))
}
