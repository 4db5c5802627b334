package payment

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotConfigured = errors.New("payment gateway is not configured")

type CreatePaymentInput struct {
	SourceID       string
	IdempotencyKey string
	AmountMinor    int64
	Note           string
}

type Payment struct {
	ID         string
	Status     string
	Amount     int64
	ReceiptURL string
}

// ErrorDetail is one entry of the gateway's structured error list.
type ErrorDetail struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
	Field    string `json:"field,omitempty"`
}

// APIError is returned when the gateway answered with a structured error list.
type APIError struct {
	StatusCode int
	Errors     []ErrorDetail
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("payment gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("payment gateway returned status %d: %s", e.StatusCode, e.Errors[0].Code)
}

// First returns the client-facing description of the first error entry.
func (e *APIError) First() string {
	if len(e.Errors) == 0 {
		return ""
	}
	if e.Errors[0].Detail != "" {
		return e.Errors[0].Detail
	}
	return e.Errors[0].Code
}

type Gateway interface {
	// CreatePayment submits one charge. The idempotency key is forwarded verbatim;
	// deduplication is the gateway's job.
	CreatePayment(ctx context.Context, in CreatePaymentInput) (Payment, error)
}
