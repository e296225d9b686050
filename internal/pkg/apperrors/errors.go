package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrConfiguration    ErrorType = "CONFIGURATION_ERROR"
	ErrDecryption       ErrorType = "DECRYPTION_ERROR"
	ErrTransport        ErrorType = "TRANSPORT_ERROR"
	ErrExchangeRejected ErrorType = "EXCHANGE_REJECTED"
	ErrAggregate        ErrorType = "AGGREGATE_FAILURE"
	ErrRiskReject       ErrorType = "RISK_REJECT"
	ErrAuthFailed       ErrorType = "AUTH_FAILED"
	ErrRateLimited      ErrorType = "RATE_LIMITED"
	ErrInvalidRequest   ErrorType = "INVALID_REQUEST"
	ErrInternal         ErrorType = "INTERNAL_ERROR"
	ErrNotFound         ErrorType = "NOT_FOUND"
	ErrReadOnly         ErrorType = "READ_ONLY"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewRiskReject(msg string) *AppError {
	return New(ErrRiskReject, msg, nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewConfiguration(msg string) *AppError {
	return New(ErrConfiguration, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether any error in err's chain is an AppError of type t.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// Fatal reports whether err should stop the caller instead of being folded
// into a result value.
func Fatal(err error) bool {
	return Is(err, ErrConfiguration) || Is(err, ErrDecryption)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrRiskReject, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed, ErrDecryption:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrReadOnly:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrExchangeRejected:
		return http.StatusUnprocessableEntity
	case ErrTransport, ErrAggregate:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrRiskReject:
		return "Check order parameters against risk limits."
	case ErrAuthFailed:
		return "Check API keys."
	case ErrDecryption:
		return "Check the vault password."
	case ErrConfiguration:
		return "Check server configuration."
	case ErrTransport:
		return "Exchange unreachable, retry later."
	case ErrRateLimited:
		return "Slow down."
	default:
		return ""
	}
}
