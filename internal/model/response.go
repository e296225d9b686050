package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hlgate/hlgate/internal/pkg/apperrors"
)

const (
	StatusOK  = "ok"
	StatusErr = "err"
)

// ExchangeResponse is the envelope returned by POST /exchange. When Status is
// "err", Response holds a plain string.
type ExchangeResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

type responseBody struct {
	Type string `json:"type"`
	Data *struct {
		Statuses []ActionStatus `json:"statuses"`
	} `json:"data,omitempty"`
}

// Err returns an exchange rejection when the envelope reports failure.
func (r *ExchangeResponse) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	msg := string(r.Response)
	var s string
	if err := json.Unmarshal(r.Response, &s); err == nil {
		msg = s
	}
	if msg == "" {
		msg = "exchange returned status " + r.Status
	}
	return apperrors.New(apperrors.ErrExchangeRejected, msg, nil)
}

// Statuses returns the per-item statuses of an ok response.
func (r *ExchangeResponse) Statuses() ([]ActionStatus, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	if len(r.Response) == 0 {
		return nil, nil
	}
	var body responseBody
	if err := json.Unmarshal(r.Response, &body); err != nil {
		return nil, fmt.Errorf("decode exchange response: %w", err)
	}
	if body.Data == nil {
		return nil, nil
	}
	return body.Data.Statuses, nil
}

type RestingStatus struct {
	OID int64 `json:"oid"`
}

type FilledStatus struct {
	TotalSz string `json:"totalSz"`
	AvgPx   string `json:"avgPx"`
	OID     int64  `json:"oid"`
}

// ActionStatus is one entry of response.data.statuses. It is either an
// object ({resting}, {filled}, {error}) or a bare string such as "success"
// or "waitingForTrigger".
type ActionStatus struct {
	Resting *RestingStatus `json:"resting,omitempty"`
	Filled  *FilledStatus  `json:"filled,omitempty"`
	Error   string         `json:"error,omitempty"`
	Plain   string         `json:"-"`
}

func (s *ActionStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Plain)
	}
	type alias ActionStatus
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = ActionStatus(a)
	return nil
}

// Failed reports whether the exchange rejected this item.
func (s ActionStatus) Failed() bool {
	return s.Error != ""
}

// AssetInfo is one entry of the meta universe. Its index is the asset id.
type AssetInfo struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	MaxLeverage int    `json:"maxLeverage"`
	IsDelisted  bool   `json:"isDelisted,omitempty"`
}

type Meta struct {
	Universe []AssetInfo `json:"universe"`
}

type Leverage struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type Position struct {
	Coin           string   `json:"coin"`
	Szi            string   `json:"szi"`
	EntryPx        *string  `json:"entryPx"`
	PositionValue  string   `json:"positionValue"`
	UnrealizedPnl  string   `json:"unrealizedPnl"`
	ReturnOnEquity string   `json:"returnOnEquity"`
	LiquidationPx  *string  `json:"liquidationPx"`
	MarginUsed     string   `json:"marginUsed"`
	Leverage       Leverage `json:"leverage"`
}

type AssetPosition struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

type MarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}

// ClearinghouseState is the account state returned by the clearinghouseState query.
type ClearinghouseState struct {
	AssetPositions     []AssetPosition `json:"assetPositions"`
	MarginSummary      MarginSummary   `json:"marginSummary"`
	CrossMarginSummary MarginSummary   `json:"crossMarginSummary"`
	Withdrawable       string          `json:"withdrawable"`
	Time               int64           `json:"time"`
}

type OpenOrder struct {
	Coin      string `json:"coin"`
	LimitPx   string `json:"limitPx"`
	OID       int64  `json:"oid"`
	Side      string `json:"side"` // "B" bid, "A" ask
	Sz        string `json:"sz"`
	Timestamp int64  `json:"timestamp"`
}
