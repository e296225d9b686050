package service

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hlgate/hlgate/internal/config"
	"github.com/hlgate/hlgate/internal/exchange"
	"github.com/hlgate/hlgate/internal/manager"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/vault"
	"golang.org/x/time/rate"
)

// AccountManager caches accounts by API key together with their trading
// clients and rate limiters.
type AccountManager struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account // Key: API key
	clients  map[string]*TradingClient // Key: account ID
	limiters map[string]*rate.Limiter  // Key: account ID
	cfg      *config.Config
	gw       exchange.Gateway
	opts     TradingOptions
	vault    *vault.Vault
	repo     AccountRepo
}

type AccountRepo interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error)
}

// NewAccountManager builds a manager whose clients share gw and opts.
// v may be nil when no server key is configured.
func NewAccountManager(cfg *config.Config, gw exchange.Gateway, opts TradingOptions, v *vault.Vault, repo AccountRepo) *AccountManager {
	if opts.Nonces == nil {
		opts.Nonces = manager.NewNonceManager()
	}
	return &AccountManager{
		accounts: make(map[string]*model.Account),
		clients:  make(map[string]*TradingClient),
		limiters: make(map[string]*rate.Limiter),
		cfg:      cfg,
		gw:       gw,
		opts:     opts,
		vault:    v,
		repo:     repo,
	}
}

func (m *AccountManager) Register(a *model.Account) {
	if a == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.APIKey] = a

	limit := rate.Limit(a.Rate.QPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := a.Rate.Burst
	if burst == 0 {
		burst = 1
	}
	m.limiters[a.ID] = rate.NewLimiter(limit, burst)
}

func (m *AccountManager) Replace(a *model.Account) {
	m.RemoveByID(a.ID)
	m.Register(a)
}

func (m *AccountManager) RemoveByID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, a := range m.accounts {
		if a != nil && a.ID == id {
			delete(m.accounts, key)
		}
	}
	delete(m.limiters, id)
	delete(m.clients, id)
}

func (m *AccountManager) GetByID(id string) (*model.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a != nil && a.ID == id {
			return a, true
		}
	}
	return nil, false
}

func (m *AccountManager) List() []*model.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

func (m *AccountManager) GetByAPIKey(apiKey string) (*model.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[apiKey]
	return a, ok
}

// Default returns the only registered account. Used when API keys are not
// required and the gateway serves a single wallet.
func (m *AccountManager) Default() *model.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.accounts) != 1 {
		return nil
	}
	for _, a := range m.accounts {
		return a
	}
	return nil
}

// GetByAPIKeyWithFallback consults the repository on a cache miss and caches
// what it finds.
func (m *AccountManager) GetByAPIKeyWithFallback(ctx context.Context, apiKey string) (*model.Account, bool) {
	if a, ok := m.GetByAPIKey(apiKey); ok {
		return a, true
	}
	if m.repo == nil {
		return nil, false
	}
	a, err := m.repo.GetByAPIKey(ctx, apiKey)
	if err != nil || a == nil {
		return nil, false
	}
	m.Register(a)
	return a, true
}

func (m *AccountManager) LimiterFor(accountID string) *rate.Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limiters[accountID]
}

// ClientFor returns the account's trading client, creating it on first use.
func (m *AccountManager) ClientFor(a *model.Account) *TradingClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[a.ID]; ok {
		return c
	}
	c := NewTradingClient(m.gw, m.opts)
	m.clients[a.ID] = c
	return c
}

// KeySourceFor resolves how the account's secret is unlocked. Password
// accounts need the caller's password; server accounts ignore it.
func (m *AccountManager) KeySourceFor(a *model.Account, password string) (KeySource, error) {
	secret, err := vault.ParseEncryptedSecret(a.Secret)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrConfiguration, "stored secret for account "+a.ID+" is unreadable", err)
	}
	addr := common.HexToAddress(a.Address)

	switch a.KeyMode {
	case model.KeyModeServer:
		if m.vault == nil {
			return nil, apperrors.NewConfiguration("account " + a.ID + " uses the server key but none is configured")
		}
		return ServerKey{Vault: m.vault, Secret: secret, Account: addr}, nil
	default:
		if password == "" {
			return nil, apperrors.New(apperrors.ErrAuthFailed, "vault password is required for this account", nil)
		}
		return PasswordKey{Secret: secret, Password: password, Account: addr}, nil
	}
}

// EffectiveRisk layers the account's limits over the configured defaults.
func (m *AccountManager) EffectiveRisk(a *model.Account) model.RiskConfig {
	r := a.Risk
	if m.cfg == nil {
		return r
	}
	d := m.cfg.Risk
	r.MaxOrderValue = chooseFloat(d.MaxOrderValue, r.MaxOrderValue)
	r.MaxDailyValue = chooseFloat(d.MaxDailyValue, r.MaxDailyValue)
	r.MaxDailyOrders = chooseInt(d.MaxDailyOrders, r.MaxDailyOrders)
	r.MaxLeverage = chooseInt(d.MaxLeverage, r.MaxLeverage)
	r.BlockedAssets = chooseStringSlice(d.BlockedAssets, r.BlockedAssets)
	return r
}

func chooseFloat(base, override float64) float64 {
	if override > 0 {
		return override
	}
	return base
}

func chooseInt(base, override int) int {
	if override > 0 {
		return override
	}
	return base
}

func chooseStringSlice(base, override []string) []string {
	if len(override) > 0 {
		return override
	}
	return base
}
