package model

import "time"

// IdempotencyRecord is the stored outcome of a request carrying an
// idempotency key.
type IdempotencyRecord struct {
	Status    int       `json:"status"`
	Body      []byte    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	// Processing marks a key whose first request has not finished yet.
	Processing bool `json:"processing"`
}
