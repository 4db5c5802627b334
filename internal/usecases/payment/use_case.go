package payment

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/apperr"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/payment"
	"github.com/medeiros-dev/notification-gateway/internal/observability/tracing"
)

type ProcessPaymentUseCase interface {
	Execute(ctx context.Context, input domain.PaymentRequest) (domain.PaymentResult, error)
}

type processPaymentUseCase struct {
	gateway payment.Gateway
}

func NewProcessPaymentUseCase(gateway payment.Gateway) ProcessPaymentUseCase {
	return &processPaymentUseCase{gateway: gateway}
}

// Execute submits one charge. The idempotency key goes to the gateway untouched,
// so a retried request returns whatever the gateway returned the first time.
func (u *processPaymentUseCase) Execute(ctx context.Context, input domain.PaymentRequest) (domain.PaymentResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProcessPaymentUseCase.Execute")
	defer span.End()

	amountMinor, err := input.Validate()
	if err != nil {
		return domain.PaymentResult{}, err
	}
	span.SetAttributes(
		attribute.String("payment.idempotency_key", input.IdempotencyKey),
		attribute.Int64("payment.amount_minor", amountMinor),
	)

	p, err := u.gateway.CreatePayment(ctx, payment.CreatePaymentInput{
		SourceID:       input.SourceID,
		IdempotencyKey: input.IdempotencyKey,
		AmountMinor:    amountMinor,
		Note:           input.Note(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create payment failed")
		return domain.PaymentResult{}, mapGatewayError(err)
	}

	return domain.PaymentResult{
		Success:    true,
		PaymentID:  p.ID,
		Status:     p.Status,
		Amount:     p.Amount,
		ReceiptURL: p.ReceiptURL,
	}, nil
}

func mapGatewayError(err error) error {
	if errors.Is(err, payment.ErrNotConfigured) {
		return apperr.Wrap(apperr.FailedPrecondition, "Payment service is not configured", err)
	}
	var apiErr *payment.APIError
	if errors.As(err, &apiErr) && len(apiErr.Errors) > 0 {
		return apperr.Wrap(apperr.FailedPrecondition, apiErr.First(), err)
	}
	return apperr.Wrap(apperr.Internal, "Payment processing failed: "+err.Error(), err)
}
