package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hlgate/hlgate/internal/exchange"
	"github.com/hlgate/hlgate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectPrintsUniverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type string `json:"type"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Type {
		case "meta":
			_, _ = w.Write([]byte(`{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":50},{"name":"ETH","szDecimals":4,"maxLeverage":25}]}`))
		case "allMids":
			_, _ = w.Write([]byte(`{"BTC":"64000.5"}`))
		}
	}))
	defer srv.Close()

	client := service.NewTradingClient(exchange.NewHTTPGateway(srv.URL, time.Second), service.TradingOptions{})
	var out bytes.Buffer
	require.NoError(t, inspect(context.Background(), client, "", &out))

	text := out.String()
	assert.Contains(t, text, "BTC")
	assert.Contains(t, text, "64000.5")
	assert.Regexp(t, `1\s+ETH\s+4\s+25\s+-`, text)

	out.Reset()
	require.NoError(t, inspect(context.Background(), client, "ETH", &out))
	assert.NotContains(t, out.String(), "BTC")
}
