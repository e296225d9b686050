package service

import (
	"context"
	"testing"
	"time"

	"github.com/hlgate/hlgate/internal/config"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayFixture struct {
	gw       *fakeGateway
	manager  *AccountManager
	accounts *AccountService
	svc      *GatewayService
}

func newGatewayFixture(t *testing.T, cfg *config.Config) *gatewayFixture {
	t.Helper()
	v, err := vault.New("server-side-key")
	require.NoError(t, err)
	gw := newFakeGateway()
	gw.exchange = func(model.ExchangeRequest) string { return restingReply }
	manager := NewAccountManager(cfg, gw, TradingOptions{}, v, nil)
	return &gatewayFixture{
		gw:       gw,
		manager:  manager,
		accounts: NewAccountService(manager, nil, v),
		svc:      NewGatewayService(manager, NewRiskEngine(NewRiskUsageStore())),
	}
}

func TestAccountCreateEncryptsKey(t *testing.T) {
	f := newGatewayFixture(t, &config.Config{})
	acct, err := f.accounts.Create(context.Background(), AccountCreateRequest{
		ID: "acct-1", APIKey: "sk-1", PrivateKey: "0x" + testKeyHex, Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, testKey().Address().Hex(), acct.Address)
	assert.Equal(t, model.KeyModePassword, acct.KeyMode)
	assert.NotContains(t, acct.Secret, testKeyHex)

	got, ok := f.manager.GetByAPIKey("sk-1")
	require.True(t, ok)
	assert.Equal(t, "acct-1", got.ID)
}

func TestAccountCreateValidation(t *testing.T) {
	f := newGatewayFixture(t, &config.Config{})
	ctx := context.Background()

	_, err := f.accounts.Create(ctx, AccountCreateRequest{APIKey: "sk-1", PrivateKey: testKeyHex})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest), "password mode needs a password")

	_, err = f.accounts.Create(ctx, AccountCreateRequest{APIKey: "sk-1", PrivateKey: "zz", Password: "pw"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	_, err = f.accounts.Create(ctx, AccountCreateRequest{APIKey: "sk-1", PrivateKey: testKeyHex, KeyMode: "hsm"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))
}

func TestGatewayPasswordRequiredForPasswordAccounts(t *testing.T) {
	f := newGatewayFixture(t, &config.Config{})
	ctx := context.Background()
	acct, err := f.accounts.Create(ctx, AccountCreateRequest{APIKey: "sk-1", PrivateKey: testKeyHex, Password: "pw"})
	require.NoError(t, err)

	params := model.OrderParams{Asset: "BTC", IsBuy: true, Price: 30000, Size: 0.01}
	_, err = f.svc.PlaceOrder(ctx, acct, "", params)
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthFailed))

	_, err = f.svc.PlaceOrder(ctx, acct, "nope", params)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecryption))

	res, err := f.svc.PlaceOrder(ctx, acct, "pw", params)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, f.gw.exchangeCalls(), 1)
}

func TestGatewayServerKeyAccountsNeedNoPassword(t *testing.T) {
	f := newGatewayFixture(t, &config.Config{})
	ctx := context.Background()
	acct, err := f.accounts.Create(ctx, AccountCreateRequest{APIKey: "sk-1", PrivateKey: testKeyHex, KeyMode: model.KeyModeServer})
	require.NoError(t, err)

	res, err := f.svc.CancelOrder(ctx, acct, "", "BTC", 42)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestGatewayAppliesConfiguredRiskDefaults(t *testing.T) {
	cfg := &config.Config{Risk: config.RiskConfig{MaxOrderValue: 100, MaxLeverage: 5}}
	f := newGatewayFixture(t, cfg)
	ctx := context.Background()
	acct, err := f.accounts.Create(ctx, AccountCreateRequest{APIKey: "sk-1", PrivateKey: testKeyHex, KeyMode: model.KeyModeServer})
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, acct, "", model.OrderParams{Asset: "BTC", IsBuy: true, Price: 30000, Size: 0.01})
	assert.True(t, apperrors.Is(err, apperrors.ErrRiskReject))

	_, err = f.svc.SetLeverage(ctx, acct, "", model.LeverageRequest{Asset: "BTC", Leverage: 6})
	assert.True(t, apperrors.Is(err, apperrors.ErrRiskReject))

	// Reduce-only orders never add exposure.
	res, err := f.svc.PlaceOrder(ctx, acct, "", model.OrderParams{Asset: "BTC", Price: 30000, Size: 0.01, ReduceOnly: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, f.gw.exchangeCalls(), 1)
}

func TestGatewayHaltsAfterEmergencyWithdraw(t *testing.T) {
	f := newGatewayFixture(t, &config.Config{})
	f.gw.info["openOrders"] = `[]`
	f.gw.info["clearinghouseState"] = `{"assetPositions":[],"withdrawable":"0.5"}`
	f.manager.opts.Sleep = func(context.Context, time.Duration) error { return nil }
	ctx := context.Background()
	acct, err := f.accounts.Create(ctx, AccountCreateRequest{APIKey: "sk-1", PrivateKey: testKeyHex, KeyMode: model.KeyModeServer})
	require.NoError(t, err)

	report, err := f.svc.EmergencyWithdraw(ctx, acct, "", model.WithdrawRequest{Destination: destination})
	require.NoError(t, err)
	assert.Equal(t, ShutdownFailed, report.State)

	_, err = f.svc.PlaceOrder(ctx, acct, "", model.OrderParams{Asset: "BTC", IsBuy: true, Price: 30000, Size: 0.01})
	assert.True(t, apperrors.Is(err, apperrors.ErrRiskReject))

	assert.True(t, f.svc.ResumeTrading(acct.ID))
	res, err := f.svc.PlaceOrder(ctx, acct, "", model.OrderParams{Asset: "BTC", IsBuy: true, Price: 30000, Size: 0.01})
	require.NoError(t, err)
	assert.True(t, res.Success)
}
