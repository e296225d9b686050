// Package exchange is the HTTP transport to the exchange API. It carries no
// business logic: it posts JSON and decodes JSON.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/pkg/metrics"
)

const (
	InfoPath     = "/info"
	ExchangePath = "/exchange"

	maxErrorBody = 512
)

// Gateway is the wire protocol seen by the trading client.
type Gateway interface {
	// PostInfo sends an unauthenticated query and decodes the reply into out.
	PostInfo(ctx context.Context, req any, out any) error
	// PostExchange submits a signed action.
	PostExchange(ctx context.Context, req model.ExchangeRequest) (*model.ExchangeResponse, error)
}

// TransportError is a network failure or a non-2xx reply. It is distinct
// from an exchange-level "status":"err" rejection.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type HTTPGateway struct {
	client *resty.Client
}

// NewHTTPGateway builds a gateway on a pooled http.Client. No retries are
// configured.
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: timeout,
	}
	client := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	return &HTTPGateway{client: client}
}

func (g *HTTPGateway) PostInfo(ctx context.Context, req any, out any) error {
	body, err := g.post(ctx, InfoPath, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return transportErr(InfoPath, http.StatusOK, body, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (g *HTTPGateway) PostExchange(ctx context.Context, req model.ExchangeRequest) (*model.ExchangeResponse, error) {
	body, err := g.post(ctx, ExchangePath, req)
	if err != nil {
		return nil, err
	}
	var resp model.ExchangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, transportErr(ExchangePath, http.StatusOK, body, fmt.Errorf("decode response: %w", err))
	}
	return &resp, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload any) ([]byte, error) {
	start := time.Now()
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(path)
	if err != nil {
		metrics.ExchangeLatency.WithLabelValues(path, "network_error").Observe(time.Since(start).Seconds())
		return nil, transportErr(path, 0, nil, err)
	}
	if !resp.IsSuccess() {
		metrics.ExchangeLatency.WithLabelValues(path, "http_error").Observe(time.Since(start).Seconds())
		return nil, transportErr(path, resp.StatusCode(), resp.Body(), nil)
	}
	metrics.ExchangeLatency.WithLabelValues(path, "ok").Observe(time.Since(start).Seconds())
	return resp.Body(), nil
}

func transportErr(path string, status int, body []byte, cause error) error {
	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	te := &TransportError{Endpoint: path, StatusCode: status, Body: text, Err: cause}
	return apperrors.New(apperrors.ErrTransport, "exchange transport failure", te)
}
