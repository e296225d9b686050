package model

// Bridge API request bodies. Order placement reuses OrderParams and
// TradeParams directly.

type MarketOrderRequest struct {
	Asset string  `json:"asset" binding:"required"`
	IsBuy bool    `json:"is_buy"`
	Size  float64 `json:"size" binding:"required,gt=0"`
}

type TriggerOrderRequest struct {
	Asset        string  `json:"asset" binding:"required"`
	IsLong       bool    `json:"is_long"`
	Size         float64 `json:"size" binding:"required,gt=0"`
	TriggerPrice float64 `json:"trigger_price" binding:"required,gt=0"`
}

type LeverageRequest struct {
	Asset    string `json:"asset" binding:"required"`
	Leverage int    `json:"leverage" binding:"required,gte=1"`
}

type WithdrawRequest struct {
	Destination string   `json:"destination" binding:"required"`
	Amount      *float64 `json:"amount,omitempty"`
}

type SizingRequest struct {
	RiskAmount float64 `json:"risk_amount" binding:"required,gt=0"`
	EntryPrice float64 `json:"entry_price" binding:"required,gt=0"`
	StopLoss   float64 `json:"stop_loss" binding:"required,gt=0"`
}
