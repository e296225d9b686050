package config

import (
	"testing"
	"time"

	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	cfg := Config{
		Exchange: ExchangeConfig{Network: "Testnet "},
		Vault:    VaultConfig{ServerKey: "server-key", RequireServerKey: true},
		Trading:  TradingConfig{MarketSlippage: 0.01, WithdrawFeeBuffer: 1, SettlementDelay: 2 * time.Second},
	}
	cfg.applyNetwork()
	return cfg
}

func TestApplyNetworkTestnetDefaults(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, NetworkTestnet, cfg.Exchange.Network)
	assert.False(t, cfg.Exchange.Mainnet())
	assert.Equal(t, TestnetURL, cfg.Exchange.BaseURL)
	assert.Equal(t, TestnetSignatureChainID, cfg.Exchange.SignatureChainID)
	assert.Equal(t, "wss://api.hyperliquid-testnet.xyz/ws", cfg.Exchange.WSURL)
	assert.NoError(t, cfg.Validate())
}

func TestApplyNetworkKeepsOverrides(t *testing.T) {
	cfg := Config{Exchange: ExchangeConfig{Network: NetworkMainnet, BaseURL: "http://localhost:9000", SignatureChainID: "0x1"}}
	cfg.applyNetwork()
	assert.True(t, cfg.Exchange.Mainnet())
	assert.Equal(t, "http://localhost:9000", cfg.Exchange.BaseURL)
	assert.Equal(t, "0x1", cfg.Exchange.SignatureChainID)
}

func TestValidateMissingServerKeyIsConfigurationError(t *testing.T) {
	cfg := validConfig()
	cfg.Vault.ServerKey = "  "
	err := cfg.Validate()
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
	assert.True(t, apperrors.Fatal(err))

	cfg.Vault.RequireServerKey = false
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(c *Config){
		"network":  func(c *Config) { c.Exchange.Network = "devnet" },
		"chain id": func(c *Config) { c.Exchange.SignatureChainID = "42161" },
		"slippage": func(c *Config) { c.Trading.MarketSlippage = 0 },
		"fee":      func(c *Config) { c.Trading.WithdrawFeeBuffer = -1 },
		"delay":    func(c *Config) { c.Trading.SettlementDelay = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.True(t, apperrors.Is(cfg.Validate(), apperrors.ErrConfiguration))
		})
	}
}
