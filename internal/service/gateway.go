package service

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/pkg/logger"
)

// GatewayService is what the HTTP handlers call. It resolves the account's
// trading client and key source, applies risk checks to orders that add
// exposure and books accepted orders against daily usage.
type GatewayService struct {
	accounts *AccountManager
	risk     *RiskEngine

	mu     sync.RWMutex
	halted map[string]time.Time // Key: account ID
}

func NewGatewayService(accounts *AccountManager, risk *RiskEngine) *GatewayService {
	return &GatewayService{
		accounts: accounts,
		risk:     risk,
		halted:   make(map[string]time.Time),
	}
}

func (s *GatewayService) open(acct *model.Account, password string) (*TradingClient, KeySource, error) {
	ks, err := s.accounts.KeySourceFor(acct, password)
	if err != nil {
		return nil, nil, err
	}
	return s.accounts.ClientFor(acct), ks, nil
}

func (s *GatewayService) checkRisk(ctx context.Context, acct *model.Account, chk RiskCheck) error {
	if at, ok := s.haltedAt(acct.ID); ok {
		return apperrors.NewRiskReject("trading halted since emergency withdrawal at " + at.Format(time.RFC3339))
	}
	if s.risk == nil {
		return nil
	}
	scoped := *acct
	scoped.Risk = s.accounts.EffectiveRisk(acct)
	return s.risk.CheckOrder(ctx, &scoped, chk)
}

func (s *GatewayService) record(ctx context.Context, acct *model.Account, res *model.OrderResult, notional float64) {
	if s.risk != nil && res != nil && res.Success {
		s.risk.Record(ctx, acct, notional)
	}
}

func (s *GatewayService) PlaceOrder(ctx context.Context, acct *model.Account, password string, p model.OrderParams) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	notional := p.Price * p.Size
	if !p.ReduceOnly {
		if err := s.checkRisk(ctx, acct, RiskCheck{Asset: p.Asset, Notional: notional}); err != nil {
			return nil, err
		}
	}
	res, err := client.PlaceOrder(ctx, ks, p)
	s.record(ctx, acct, res, notional)
	return res, err
}

func (s *GatewayService) PlaceMarketOrder(ctx context.Context, acct *model.Account, password string, req model.MarketOrderRequest) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	mid, err := client.MidPrice(ctx, req.Asset)
	if err != nil {
		return model.Failed(err.Error()), nil
	}
	notional := mid * req.Size
	if err := s.checkRisk(ctx, acct, RiskCheck{Asset: req.Asset, Notional: notional}); err != nil {
		return nil, err
	}
	res, err := client.PlaceMarketOrder(ctx, ks, req.Asset, req.IsBuy, req.Size)
	s.record(ctx, acct, res, notional)
	return res, err
}

// Protective orders only reduce exposure and skip the risk checks.

func (s *GatewayService) PlaceStopLoss(ctx context.Context, acct *model.Account, password string, req model.TriggerOrderRequest) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	return client.PlaceStopLoss(ctx, ks, req.Asset, req.IsLong, req.Size, req.TriggerPrice)
}

func (s *GatewayService) PlaceTakeProfit(ctx context.Context, acct *model.Account, password string, req model.TriggerOrderRequest) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	return client.PlaceTakeProfit(ctx, ks, req.Asset, req.IsLong, req.Size, req.TriggerPrice)
}

func (s *GatewayService) SetLeverage(ctx context.Context, acct *model.Account, password string, req model.LeverageRequest) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	if err := s.checkRisk(ctx, acct, RiskCheck{Asset: req.Asset, Leverage: req.Leverage}); err != nil {
		return nil, err
	}
	return client.SetLeverage(ctx, ks, req.Asset, req.Leverage)
}

func (s *GatewayService) CancelOrder(ctx context.Context, acct *model.Account, password, asset string, oid int64) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	return client.CancelOrder(ctx, ks, asset, oid)
}

func (s *GatewayService) CancelAllOrders(ctx context.Context, acct *model.Account, password string) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	return client.CancelAllOrders(ctx, ks)
}

func (s *GatewayService) ClosePosition(ctx context.Context, acct *model.Account, password, asset string) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	return client.ClosePosition(ctx, ks, asset)
}

func (s *GatewayService) CloseAllPositions(ctx context.Context, acct *model.Account, password string) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	return client.CloseAllPositions(ctx, ks)
}

func (s *GatewayService) Withdraw(ctx context.Context, acct *model.Account, password string, req model.WithdrawRequest) (*model.OrderResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	return client.WithdrawFunds(ctx, ks, req.Destination, req.Amount)
}

// EmergencyWithdraw halts new exposure on the account before running the
// shutdown sequence. The halt stays until ResumeTrading.
func (s *GatewayService) EmergencyWithdraw(ctx context.Context, acct *model.Account, password string, req model.WithdrawRequest) (*ShutdownReport, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.halted[acct.ID] = time.Now().UTC()
	s.mu.Unlock()
	logger.Warn("Emergency withdrawal started, account halted", "account_id", acct.ID)
	return client.EmergencyWithdraw(ctx, ks, req.Destination, req.Amount)
}

func (s *GatewayService) ResumeTrading(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.halted[accountID]
	delete(s.halted, accountID)
	return ok
}

func (s *GatewayService) haltedAt(accountID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.halted[accountID]
	return at, ok
}

func (s *GatewayService) ExecuteTrade(ctx context.Context, acct *model.Account, password string, p model.TradeParams) (*model.TradeResult, error) {
	client, ks, err := s.open(acct, password)
	if err != nil {
		return nil, err
	}
	sizing, err := CalculatePositionSize(p.RiskAmount, p.EntryPrice, p.StopLoss)
	if err != nil {
		return nil, err
	}
	if err := s.checkRisk(ctx, acct, RiskCheck{Asset: p.Asset, Notional: sizing.PositionValue, Leverage: p.Leverage}); err != nil {
		return nil, err
	}
	res, err := client.ExecuteTrade(ctx, ks, p)
	if res != nil {
		s.record(ctx, acct, res.Entry, sizing.PositionValue)
	}
	return res, err
}

// --- Queries ---

func (s *GatewayService) subject(acct *model.Account) (*TradingClient, common.Address, error) {
	if !common.IsHexAddress(acct.Address) {
		return nil, common.Address{}, apperrors.NewConfiguration("account " + acct.ID + " has no valid address")
	}
	client := s.accounts.ClientFor(acct)
	if client.opts.VaultAddress != nil {
		return client, *client.opts.VaultAddress, nil
	}
	return client, common.HexToAddress(acct.Address), nil
}

func (s *GatewayService) AccountState(ctx context.Context, acct *model.Account) (*model.ClearinghouseState, error) {
	client, addr, err := s.subject(acct)
	if err != nil {
		return nil, err
	}
	return client.GetAccountState(ctx, addr)
}

func (s *GatewayService) Positions(ctx context.Context, acct *model.Account) ([]model.Position, error) {
	client, addr, err := s.subject(acct)
	if err != nil {
		return nil, err
	}
	return client.GetPositions(ctx, addr)
}

func (s *GatewayService) OpenOrders(ctx context.Context, acct *model.Account) ([]model.OpenOrder, error) {
	client, addr, err := s.subject(acct)
	if err != nil {
		return nil, err
	}
	return client.GetOpenOrders(ctx, addr)
}

func (s *GatewayService) Mids(ctx context.Context, acct *model.Account) (map[string]string, error) {
	return s.accounts.ClientFor(acct).GetAllMids(ctx)
}

func (s *GatewayService) Assets(ctx context.Context, acct *model.Account) ([]model.AssetMetadata, error) {
	return s.accounts.ClientFor(acct).GetAssets(ctx)
}
