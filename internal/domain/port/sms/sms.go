package sms

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("sms gateway is not configured")
	// ErrInvalidNumber: the gateway rejected the destination as not a valid phone number.
	ErrInvalidNumber = errors.New("invalid phone number")
	// ErrUnverifiedNumber: trial accounts may only text verified destinations.
	ErrUnverifiedNumber = errors.New("unverified destination number")
)

// GatewayError keeps the gateway's code and message while classifying it
// against the sentinel errors above.
type GatewayError struct {
	Code    int
	Message string
	Kind    error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Kind
}

type Gateway interface {
	// Send delivers body to the canonical number and returns the gateway message id.
	Send(ctx context.Context, to, body string) (string, error)
}
