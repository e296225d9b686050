package model

import (
	"time"
)

// AuditLog is one request through the bridge API.
type AuditLog struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	// Request body is redacted before it is stored.
	RequestBody   string `json:"request_body"`
	RequestHeader string `json:"request_header"`

	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
