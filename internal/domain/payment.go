package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/medeiros-dev/notification-gateway/internal/domain/apperr"
)

// Amount is a major-unit decimal that callers may send as a JSON string or number.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// MinorUnits converts to cents: round(amount * 100), which must be a positive integer.
func (a Amount) MinorUnits() (int64, error) {
	raw := strings.TrimSpace(string(a))
	if raw == "" {
		return 0, apperr.New(apperr.InvalidArgument, "Amount is required")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, apperr.Invalid("Invalid amount: %s", raw)
	}
	minor := math.Round(value * 100)
	if minor <= 0 {
		return 0, apperr.Invalid("Amount must be greater than zero: %s", raw)
	}
	if minor > math.MaxInt64/2 {
		return 0, apperr.Invalid("Amount is too large: %s", raw)
	}
	return int64(minor), nil
}

type PaymentRequest struct {
	SourceID       string `json:"sourceId"`
	Amount         Amount `json:"amount"`
	IdempotencyKey string `json:"idempotencyKey"`
	TeamID         string `json:"teamId,omitempty"`
	EventID        string `json:"eventId,omitempty"`
}

// Validate checks the required fields and returns the amount in minor units.
func (r PaymentRequest) Validate() (int64, error) {
	if r.SourceID == "" || r.Amount == "" || r.IdempotencyKey == "" {
		return 0, apperr.New(apperr.InvalidArgument, "sourceId, amount, and idempotencyKey are required")
	}
	return r.Amount.MinorUnits()
}

// Note is the free-text annotation sent with the charge.
func (r PaymentRequest) Note() string {
	return fmt.Sprintf("Team: %s, Event: %s", orNA(r.TeamID), orNA(r.EventID))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

type PaymentResult struct {
	Success    bool   `json:"success"`
	PaymentID  string `json:"paymentId"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	ReceiptURL string `json:"receiptUrl"`
}
