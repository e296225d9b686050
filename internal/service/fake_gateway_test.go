package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hlgate/hlgate/internal/model"
)

const (
	testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testMeta   = `{"universe":[{"name":"BTC","szDecimals":3,"maxLeverage":50},{"name":"ETH","szDecimals":4,"maxLeverage":25}]}`
)

// fakeGateway answers /info from canned JSON and /exchange from a handler,
// recording every call in order.
type fakeGateway struct {
	mu        sync.Mutex
	info      map[string]string
	infoErr   map[string]error
	infoCalls map[string]int
	exchange  func(req model.ExchangeRequest) string
	requests  []model.ExchangeRequest
	events    []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		info:      map[string]string{"meta": testMeta},
		infoErr:   map[string]error{},
		infoCalls: map[string]int{},
	}
}

func (f *fakeGateway) PostInfo(_ context.Context, req any, out any) error {
	r, ok := req.(model.InfoRequest)
	if !ok {
		return fmt.Errorf("unexpected info request %T", req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls[r.Type]++
	f.events = append(f.events, "info:"+r.Type)
	if err := f.infoErr[r.Type]; err != nil {
		delete(f.infoErr, r.Type)
		return err
	}
	body, ok := f.info[r.Type]
	if !ok {
		return errors.New("no canned reply for " + r.Type)
	}
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeGateway) PostExchange(_ context.Context, req model.ExchangeRequest) (*model.ExchangeResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.events = append(f.events, "exchange:"+actionType(req.Action))
	handler := f.exchange
	f.mu.Unlock()

	body := `{"status":"ok","response":{"type":"default"}}`
	if handler != nil {
		body = handler(req)
	}
	var resp model.ExchangeResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *fakeGateway) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeGateway) exchangeCalls() []model.ExchangeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ExchangeRequest(nil), f.requests...)
}

func actionType(action any) string {
	switch a := action.(type) {
	case *model.OrderAction:
		return a.Type
	case *model.CancelAction:
		return a.Type
	case *model.UpdateLeverageAction:
		return a.Type
	case *model.WithdrawAction:
		return a.Type
	default:
		return fmt.Sprintf("%T", action)
	}
}

func newTestClient(gw *fakeGateway) *TradingClient {
	return NewTradingClient(gw, TradingOptions{
		Sleep: func(ctx context.Context, d time.Duration) error {
			gw.record("sleep")
			return nil
		},
	})
}

func testKey() StaticKey {
	return StaticKey{Raw: []byte(testKeyHex)}
}
