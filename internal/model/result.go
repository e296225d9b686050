package model

// OrderResult is the outcome of every trading verb. Either the success fields
// or Error is meaningful, never both.
type OrderResult struct {
	Success    bool   `json:"success"`
	OrderID    *int64 `json:"orderId,omitempty"`
	FilledSize string `json:"filledSize,omitempty"`
	AvgPrice   string `json:"avgPrice,omitempty"`
	Error      string `json:"error,omitempty"`
}

func Succeeded() *OrderResult {
	return &OrderResult{Success: true}
}

func Failed(msg string) *OrderResult {
	return &OrderResult{Success: false, Error: msg}
}

// OrderParams is the caller input for a limit order.
type OrderParams struct {
	Asset      string  `json:"asset" binding:"required"`
	IsBuy      bool    `json:"is_buy"`
	Price      float64 `json:"price" binding:"required,gt=0"`
	Size       float64 `json:"size" binding:"required,gt=0"`
	ReduceOnly bool    `json:"reduce_only,omitempty"`
	PostOnly   bool    `json:"post_only,omitempty"`
}

// AssetMetadata maps a symbol to the exchange's numeric asset id.
type AssetMetadata struct {
	Symbol      string `json:"symbol"`
	ID          int    `json:"id"`
	SzDecimals  int    `json:"sz_decimals"`
	MaxLeverage int    `json:"max_leverage"`
}

// TradeResult reports each leg of a bracket trade.
type TradeResult struct {
	Sizing     *PositionSize `json:"sizing"`
	Leverage   *OrderResult  `json:"leverage,omitempty"`
	Entry      *OrderResult  `json:"entry"`
	StopLoss   *OrderResult  `json:"stop_loss,omitempty"`
	TakeProfit *OrderResult  `json:"take_profit,omitempty"`
}

type PositionSize struct {
	PositionValue float64 `json:"position_value"`
	Quantity      float64 `json:"quantity"`
	StopPercent   float64 `json:"stop_percent"`
}

// TradeParams describes a bracket trade sized from a fixed risk amount.
// EntryPrice is the reference price used for sizing; the entry itself is
// a market order.
type TradeParams struct {
	Asset      string  `json:"asset" binding:"required"`
	IsBuy      bool    `json:"is_buy"`
	RiskAmount float64 `json:"risk_amount" binding:"required,gt=0"`
	EntryPrice float64 `json:"entry_price" binding:"required,gt=0"`
	StopLoss   float64 `json:"stop_loss" binding:"required,gt=0"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	Leverage   int     `json:"leverage,omitempty"`
}
