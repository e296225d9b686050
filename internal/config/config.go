package config

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"

	MainnetURL = "https://api.hyperliquid.xyz"
	TestnetURL = "https://api.hyperliquid-testnet.xyz"

	// Arbitrum One / Arbitrum Sepolia, as hex strings the exchange expects.
	MainnetSignatureChainID = "0xa4b1"
	TestnetSignatureChainID = "0x66eee"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	Risk     RiskConfig     `mapstructure:"risk"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// ReadOnly rejects every write except the emergency withdraw.
	ReadOnly bool `mapstructure:"read_only"`
}

type ExchangeConfig struct {
	Network          string        `mapstructure:"network"`
	BaseURL          string        `mapstructure:"base_url"`
	SignatureChainID string        `mapstructure:"signature_chain_id"`
	Timeout          time.Duration `mapstructure:"timeout"`
	WSURL            string        `mapstructure:"ws_url"`
	StreamMids       bool          `mapstructure:"stream_mids"`
}

// Mainnet reports whether actions are signed for the production chain.
func (e ExchangeConfig) Mainnet() bool {
	return e.Network != NetworkTestnet
}

type VaultConfig struct {
	// ServerKey unlocks secrets the gateway must sign with unattended.
	ServerKey        string `mapstructure:"server_key"`
	RequireServerKey bool   `mapstructure:"require_server_key"`
}

type TradingConfig struct {
	MarketSlippage    float64       `mapstructure:"market_slippage"`
	WithdrawFeeBuffer float64       `mapstructure:"withdraw_fee_buffer"`
	SettlementDelay   time.Duration `mapstructure:"settlement_delay"`
}

type AuthConfig struct {
	RequireAPIKey  bool   `mapstructure:"require_api_key"`
	AdminKey       string `mapstructure:"admin_key"`
	AdminSecretKey string `mapstructure:"admin_secret_key"`
}

type DatabaseConfig struct {
	DSN                string `mapstructure:"dsn"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	AuditListKey string `mapstructure:"audit_list_key"`
	AuditListMax int    `mapstructure:"audit_list_max"`
}

type SecretsConfig struct {
	// Path of the local badger store used when no database is configured.
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type RiskConfig struct {
	MaxOrderValue  float64  `mapstructure:"max_order_value"`  // e.g. 1000 USDC
	MaxDailyValue  float64  `mapstructure:"max_daily_value"`  // e.g. 10000 USDC
	MaxDailyOrders int      `mapstructure:"max_daily_orders"` // e.g. 1000 orders
	MaxLeverage    int      `mapstructure:"max_leverage"`
	BlockedAssets  []string `mapstructure:"blocked_assets"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// e.g. HLGATE_VAULT_SERVER_KEY
	viper.SetEnvPrefix("hlgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyNetwork()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("exchange.network", NetworkMainnet)
	viper.SetDefault("exchange.timeout", 10*time.Second)
	viper.SetDefault("exchange.stream_mids", false)
	viper.SetDefault("vault.server_key", "")
	viper.SetDefault("vault.require_server_key", true)
	viper.SetDefault("trading.market_slippage", 0.01)
	viper.SetDefault("trading.withdraw_fee_buffer", 1.0)
	viper.SetDefault("trading.settlement_delay", 2*time.Second)
	viper.SetDefault("auth.require_api_key", true)
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("auth.admin_secret_key", "")
	viper.SetDefault("database.audit_retention_days", 30)
	viper.SetDefault("redis.audit_list_key", "hlgate:audit_logs")
	viper.SetDefault("redis.audit_list_max", 10000)
	viper.SetDefault("secrets.path", "./data/secrets")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("risk.max_leverage", 20)
}

// applyNetwork fills network-derived fields the operator left empty.
func (c *Config) applyNetwork() {
	c.Exchange.Network = strings.ToLower(strings.TrimSpace(c.Exchange.Network))
	if c.Exchange.BaseURL == "" {
		if c.Exchange.Mainnet() {
			c.Exchange.BaseURL = MainnetURL
		} else {
			c.Exchange.BaseURL = TestnetURL
		}
	}
	if c.Exchange.SignatureChainID == "" {
		if c.Exchange.Mainnet() {
			c.Exchange.SignatureChainID = MainnetSignatureChainID
		} else {
			c.Exchange.SignatureChainID = TestnetSignatureChainID
		}
	}
	if c.Exchange.WSURL == "" {
		c.Exchange.WSURL = "wss://" + strings.TrimPrefix(c.Exchange.BaseURL, "https://") + "/ws"
	}
}

// Validate reports configuration errors. They are fatal at startup.
func (c *Config) Validate() error {
	switch c.Exchange.Network {
	case NetworkMainnet, NetworkTestnet:
	default:
		return apperrors.NewConfiguration("exchange.network must be mainnet or testnet")
	}
	if !strings.HasPrefix(c.Exchange.SignatureChainID, "0x") {
		return apperrors.NewConfiguration("exchange.signature_chain_id must be a 0x-prefixed hex chain id")
	}
	if c.Vault.RequireServerKey && strings.TrimSpace(c.Vault.ServerKey) == "" {
		return apperrors.NewConfiguration("vault.server_key is not configured")
	}
	if c.Trading.MarketSlippage <= 0 || c.Trading.MarketSlippage >= 1 {
		return apperrors.NewConfiguration("trading.market_slippage must be in (0, 1)")
	}
	if c.Trading.WithdrawFeeBuffer < 0 {
		return apperrors.NewConfiguration("trading.withdraw_fee_buffer must not be negative")
	}
	if c.Trading.SettlementDelay < 0 {
		return apperrors.NewConfiguration("trading.settlement_delay must not be negative")
	}
	return nil
}
