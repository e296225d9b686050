package model

// Actions are hashed with msgpack in struct field order, so field order here
// is part of the signature and must match the exchange's.

const (
	TifAlo = "Alo"
	TifGtc = "Gtc"
	TifIoc = "Ioc"

	TpslStopLoss   = "sl"
	TpslTakeProfit = "tp"

	GroupingNA = "na"
)

type LimitOrderType struct {
	Tif string `json:"tif" msgpack:"tif"`
}

type TriggerOrderType struct {
	IsMarket  bool   `json:"isMarket" msgpack:"isMarket"`
	TriggerPx string `json:"triggerPx" msgpack:"triggerPx"`
	Tpsl      string `json:"tpsl" msgpack:"tpsl"`
}

// OrderTypeWire carries exactly one of Limit or Trigger.
type OrderTypeWire struct {
	Limit   *LimitOrderType   `json:"limit,omitempty" msgpack:"limit,omitempty"`
	Trigger *TriggerOrderType `json:"trigger,omitempty" msgpack:"trigger,omitempty"`
}

type OrderWire struct {
	Asset      int           `json:"a" msgpack:"a"`
	IsBuy      bool          `json:"b" msgpack:"b"`
	LimitPx    string        `json:"p" msgpack:"p"`
	Size       string        `json:"s" msgpack:"s"`
	ReduceOnly bool          `json:"r" msgpack:"r"`
	OrderType  OrderTypeWire `json:"t" msgpack:"t"`
}

type OrderAction struct {
	Type     string      `json:"type" msgpack:"type"`
	Orders   []OrderWire `json:"orders" msgpack:"orders"`
	Grouping string      `json:"grouping" msgpack:"grouping"`
}

func NewOrderAction(orders ...OrderWire) *OrderAction {
	return &OrderAction{Type: "order", Orders: orders, Grouping: GroupingNA}
}

type CancelWire struct {
	Asset int   `json:"a" msgpack:"a"`
	OID   int64 `json:"o" msgpack:"o"`
}

type CancelAction struct {
	Type    string       `json:"type" msgpack:"type"`
	Cancels []CancelWire `json:"cancels" msgpack:"cancels"`
}

func NewCancelAction(cancels ...CancelWire) *CancelAction {
	return &CancelAction{Type: "cancel", Cancels: cancels}
}

type UpdateLeverageAction struct {
	Type     string `json:"type" msgpack:"type"`
	Asset    int    `json:"asset" msgpack:"asset"`
	IsCross  bool   `json:"isCross" msgpack:"isCross"`
	Leverage int    `json:"leverage" msgpack:"leverage"`
}

func NewUpdateLeverageAction(asset, leverage int) *UpdateLeverageAction {
	return &UpdateLeverageAction{Type: "updateLeverage", Asset: asset, IsCross: true, Leverage: leverage}
}

// WithdrawAction is a user-signed action. It is signed as EIP-712 typed data
// directly rather than through the msgpack commitment.
type WithdrawAction struct {
	Type             string `json:"type"`
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	Destination      string `json:"destination"`
	Amount           string `json:"amount"`
	Time             uint64 `json:"time"`
}

func NewWithdrawAction(chain, signatureChainID, destination, amount string, time uint64) *WithdrawAction {
	return &WithdrawAction{
		Type:             "withdraw3",
		HyperliquidChain: chain,
		SignatureChainID: signatureChainID,
		Destination:      destination,
		Amount:           amount,
		Time:             time,
	}
}

type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// ExchangeRequest is the body of POST /exchange.
type ExchangeRequest struct {
	Action       any       `json:"action"`
	Nonce        uint64    `json:"nonce"`
	Signature    Signature `json:"signature"`
	VaultAddress string    `json:"vaultAddress,omitempty"`
}

// InfoRequest is the body of POST /info.
type InfoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}
