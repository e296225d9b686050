package model

import "time"

const (
	// KeyModePassword accounts are unlocked per request with the owner's password.
	KeyModePassword = "password"
	// KeyModeServer accounts are unlocked with the server-held vault key.
	KeyModeServer = "server"
)

// RiskConfig holds per-account trading limits. Zero values disable a rule.
type RiskConfig struct {
	MaxOrderValue  float64  `json:"max_order_value"`
	MaxDailyValue  float64  `json:"max_daily_value"`
	MaxDailyOrders int      `json:"max_daily_orders"`
	MaxLeverage    int      `json:"max_leverage"`
	BlockedAssets  []string `json:"blocked_assets"`
}

type RateLimitConfig struct {
	QPS   float64 `json:"qps"`
	Burst int     `json:"burst"`
}

// Account is a gateway client bound to one exchange wallet.
type Account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	APIKey  string `json:"api_key"`
	Address string `json:"address"`
	// Secret is the EncryptedSecret JSON string.
	Secret    string          `json:"secret"`
	KeyMode   string          `json:"key_mode"`
	Risk      RiskConfig      `json:"risk"`
	Rate      RateLimitConfig `json:"rate_limit"`
	CreatedAt time.Time       `json:"created_at"`
}
