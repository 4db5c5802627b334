package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	square "github.com/square/square-go-sdk"
	squareclient "github.com/square/square-go-sdk/client"
	"github.com/square/square-go-sdk/core"
	"github.com/square/square-go-sdk/option"
	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/payment"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

type paymentCreator interface {
	Create(ctx context.Context, request *square.CreatePaymentRequest, opts ...option.RequestOption) (*square.CreatePaymentResponse, error)
}

// SquareGateway creates card payments through the Square Payments API.
type SquareGateway struct {
	baseURL    string
	locationID string
	payments   func() paymentCreator
}

var _ payment.Gateway = (*SquareGateway)(nil)

// NewGateway returns the Square gateway, or an unconfigured stand-in when the
// access token or location id is missing.
func NewGateway(conf configs.PaymentConf) payment.Gateway {
	if !conf.Configured() {
		logger.L().Warn("Square credentials missing; payments are disabled")
		return Unconfigured{}
	}
	return newSquareGateway(baseURLFor(conf.Environment), conf)
}

func newSquareGateway(baseURL string, conf configs.PaymentConf) *SquareGateway {
	return &SquareGateway{
		baseURL:    baseURL,
		locationID: conf.LocationID,
		payments: sync.OnceValue(func() paymentCreator {
			return squareclient.NewClient(
				option.WithToken(conf.AccessToken),
				option.WithBaseURL(baseURL),
				option.WithMaxAttempts(1),
			).Payments
		}),
	}
}

func baseURLFor(environment string) string {
	if environment == "production" {
		return square.Environments.Production
	}
	return square.Environments.Sandbox
}

func (g *SquareGateway) CreatePayment(ctx context.Context, in payment.CreatePaymentInput) (payment.Payment, error) {
	req := &square.CreatePaymentRequest{
		SourceID:       in.SourceID,
		IdempotencyKey: in.IdempotencyKey,
		AmountMoney: &square.Money{
			Amount:   square.Int64(in.AmountMinor),
			Currency: square.CurrencyUsd.Ptr(),
		},
		LocationID: square.String(g.locationID),
	}
	if in.Note != "" {
		req.Note = square.String(in.Note)
	}

	resp, err := g.payments().Create(ctx, req)
	if err != nil {
		return payment.Payment{}, classify(err)
	}
	if len(resp.Errors) > 0 {
		return payment.Payment{}, &payment.APIError{StatusCode: 200, Errors: toErrorDetails(resp.Errors)}
	}
	if resp.Payment == nil {
		return payment.Payment{}, errors.New("payments API returned no payment")
	}

	p := resp.Payment
	amount := in.AmountMinor
	if p.AmountMoney != nil && p.AmountMoney.Amount != nil && *p.AmountMoney.Amount > 0 {
		amount = *p.AmountMoney.Amount
	}
	result := payment.Payment{
		ID:         deref(p.ID),
		Status:     deref(p.Status),
		Amount:     amount,
		ReceiptURL: deref(p.ReceiptURL),
	}

	logger.L().Debug("Square payment created",
		zap.String("paymentID", result.ID),
		zap.String("status", result.Status),
		logger.TraceField(ctx),
	)
	return result, nil
}

// classify turns an SDK failure carrying Square's error list into *payment.APIError.
func classify(err error) error {
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("calling payments API: %w", err)
	}

	var body struct {
		Errors []*square.Error `json:"errors"`
	}
	if !decodeErrorBody(apiErr, &body) || len(body.Errors) == 0 {
		return fmt.Errorf("payments API returned status %d: %w", apiErr.StatusCode, err)
	}
	return &payment.APIError{StatusCode: apiErr.StatusCode, Errors: toErrorDetails(body.Errors)}
}

// decodeErrorBody reads the JSON body the SDK keeps inside its API error.
func decodeErrorBody(apiErr *core.APIError, dst any) bool {
	text := apiErr.Error()
	if cause := errors.Unwrap(apiErr); cause != nil {
		text = cause.Error()
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return false
	}
	return json.Unmarshal([]byte(text[start:]), dst) == nil
}

func toErrorDetails(errs []*square.Error) []payment.ErrorDetail {
	details := make([]payment.ErrorDetail, 0, len(errs))
	for _, e := range errs {
		if e == nil {
			continue
		}
		details = append(details, payment.ErrorDetail{
			Category: string(e.Category),
			Code:     string(e.Code),
			Detail:   deref(e.Detail),
			Field:    deref(e.Field),
		})
	}
	return details
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Unconfigured is the gateway used when credentials are absent.
type Unconfigured struct{}

func (Unconfigured) CreatePayment(ctx context.Context, in payment.CreatePaymentInput) (payment.Payment, error) {
	return payment.Payment{}, payment.ErrNotConfigured
}
