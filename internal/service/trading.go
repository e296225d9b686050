package service

import (
	"context"
	"crypto/ecdsa"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hlgate/hlgate/internal/exchange"
	"github.com/hlgate/hlgate/internal/manager"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/pkg/logger"
	"github.com/hlgate/hlgate/internal/pkg/metrics"
	"github.com/hlgate/hlgate/internal/signer"
	"github.com/shopspring/decimal"
)

const (
	DefaultMarketSlippage    = 0.01
	DefaultWithdrawFeeBuffer = 1.0
	DefaultSettlementDelay   = 2 * time.Second
)

// MidSource is an optional local source of mid prices, such as a websocket
// feed. It reports false when it has no fresh price.
type MidSource interface {
	Mid(symbol string) (float64, bool)
}

type TradingOptions struct {
	Mainnet           bool
	SignatureChainID  string
	MarketSlippage    float64
	WithdrawFeeBuffer float64
	SettlementDelay   time.Duration
	// VaultAddress makes actions trade on behalf of a vault or sub-account.
	VaultAddress *common.Address
	Nonces       *manager.NonceManager
	Mids         MidSource
	// Sleep waits out the settlement delay. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// TradingClient exposes the trading verbs. It holds no key material; every
// write verb takes a KeySource and unlocks it only around the signature.
type TradingClient struct {
	gw     exchange.Gateway
	opts   TradingOptions
	assets *AssetCache
	nonces *manager.NonceManager
	log    *slog.Logger
}

func NewTradingClient(gw exchange.Gateway, opts TradingOptions) *TradingClient {
	if opts.MarketSlippage <= 0 {
		opts.MarketSlippage = DefaultMarketSlippage
	}
	if opts.WithdrawFeeBuffer <= 0 {
		opts.WithdrawFeeBuffer = DefaultWithdrawFeeBuffer
	}
	if opts.SettlementDelay <= 0 {
		opts.SettlementDelay = DefaultSettlementDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.SignatureChainID == "" {
		if opts.Mainnet {
			opts.SignatureChainID = "0xa4b1"
		} else {
			opts.SignatureChainID = "0x66eee"
		}
	}
	nonces := opts.Nonces
	if nonces == nil {
		nonces = manager.NewNonceManager()
	}
	c := &TradingClient{
		gw:     gw,
		opts:   opts,
		nonces: nonces,
		log:    logger.With("component", "trading_client"),
	}
	c.assets = NewAssetCache(c.fetchMeta)
	return c
}

// --- Queries ---

func (c *TradingClient) fetchMeta(ctx context.Context) (*model.Meta, error) {
	var meta model.Meta
	if err := c.gw.PostInfo(ctx, model.InfoRequest{Type: "meta"}, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetAssets returns the cached asset universe.
func (c *TradingClient) GetAssets(ctx context.Context) ([]model.AssetMetadata, error) {
	return c.assets.All(ctx)
}

func (c *TradingClient) GetAllMids(ctx context.Context) (map[string]string, error) {
	mids := make(map[string]string)
	if err := c.gw.PostInfo(ctx, model.InfoRequest{Type: "allMids"}, &mids); err != nil {
		return nil, err
	}
	return mids, nil
}

func (c *TradingClient) GetAccountState(ctx context.Context, user common.Address) (*model.ClearinghouseState, error) {
	var state model.ClearinghouseState
	req := model.InfoRequest{Type: "clearinghouseState", User: strings.ToLower(user.Hex())}
	if err := c.gw.PostInfo(ctx, req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetPositions returns the open (non-zero) positions of user.
func (c *TradingClient) GetPositions(ctx context.Context, user common.Address) ([]model.Position, error) {
	state, err := c.GetAccountState(ctx, user)
	if err != nil {
		return nil, err
	}
	return openPositions(state), nil
}

func (c *TradingClient) GetOpenOrders(ctx context.Context, user common.Address) ([]model.OpenOrder, error) {
	var orders []model.OpenOrder
	req := model.InfoRequest{Type: "openOrders", User: strings.ToLower(user.Hex())}
	if err := c.gw.PostInfo(ctx, req, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Account returns the address whose state the verbs act on: the vault when
// one is configured, otherwise the signer.
func (c *TradingClient) Account(ks KeySource) common.Address {
	if c.opts.VaultAddress != nil {
		return *c.opts.VaultAddress
	}
	return ks.Address()
}

func openPositions(state *model.ClearinghouseState) []model.Position {
	out := make([]model.Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		szi, err := decimal.NewFromString(ap.Position.Szi)
		if err != nil || szi.IsZero() {
			continue
		}
		out = append(out, ap.Position)
	}
	return out
}

// --- Submission ---

// submitL1 signs action through the phantom agent and posts it. Transport
// errors come back as errors; exchange rejections are left in the response.
func (c *TradingClient) submitL1(ctx context.Context, ks KeySource, action any) (*model.ExchangeResponse, error) {
	normalized, err := signer.NormalizeAction(action)
	if err != nil {
		return nil, err
	}
	nonce := c.nonces.Next(ks.Address())

	var sig model.Signature
	err = withKey(ks, func(key *ecdsa.PrivateKey) error {
		var err error
		sig, err = signer.SignL1Action(key, normalized, c.opts.VaultAddress, nonce, c.opts.Mainnet)
		return err
	})
	if err != nil {
		return nil, err
	}

	req := model.ExchangeRequest{Action: normalized, Nonce: nonce, Signature: sig}
	if c.opts.VaultAddress != nil {
		req.VaultAddress = strings.ToLower(c.opts.VaultAddress.Hex())
	}
	return c.gw.PostExchange(ctx, req)
}

// fail folds a non-fatal error into a result. Fatal errors (vault and
// configuration) are returned to the caller.
func (c *TradingClient) fail(verb string, err error) (*model.OrderResult, error) {
	if apperrors.Fatal(err) {
		metrics.OrdersTotal.WithLabelValues(verb, "fatal").Inc()
		return nil, err
	}
	metrics.OrdersTotal.WithLabelValues(verb, "failed").Inc()
	c.log.Warn("Trading verb failed", "verb", verb, "error", err)
	return model.Failed(err.Error()), nil
}

func (c *TradingClient) done(verb string, res *model.OrderResult) (*model.OrderResult, error) {
	status := "ok"
	if !res.Success {
		status = "rejected"
		c.log.Warn("Exchange rejected action", "verb", verb, "error", res.Error)
	}
	metrics.OrdersTotal.WithLabelValues(verb, status).Inc()
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
