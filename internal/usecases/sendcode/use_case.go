package sendcode

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/apperr"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/sms"
	"github.com/medeiros-dev/notification-gateway/internal/observability/tracing"
	"github.com/medeiros-dev/notification-gateway/pkg/phone"
)

const codeMessageFormat = "Your verification code is: %s. This code expires in 10 minutes."

type SendCodeUseCase interface {
	Execute(ctx context.Context, input domain.VerificationRequest) (domain.SmsResult, error)
}

type sendCodeUseCase struct {
	gateway sms.Gateway
}

func NewSendCodeUseCase(gateway sms.Gateway) SendCodeUseCase {
	return &sendCodeUseCase{gateway: gateway}
}

// Execute validates and normalizes the destination, then sends one SMS carrying the code.
func (u *sendCodeUseCase) Execute(ctx context.Context, input domain.VerificationRequest) (domain.SmsResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SendCodeUseCase.Execute")
	defer span.End()

	if err := input.Validate(); err != nil {
		return domain.SmsResult{}, err
	}

	canonical := phone.Normalize(input.Phone)
	if !phone.IsE164(canonical) {
		return domain.SmsResult{}, apperr.New(apperr.InvalidArgument, "Invalid phone number format")
	}
	span.SetAttributes(attribute.Int("phone.digits", len(canonical)-1))

	sid, err := u.gateway.Send(ctx, canonical, fmt.Sprintf(codeMessageFormat, input.Code))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sms send failed")
		return domain.SmsResult{}, mapGatewayError(err)
	}

	return domain.SmsResult{Success: true, MessageSid: sid, Phone: canonical}, nil
}

func mapGatewayError(err error) error {
	switch {
	case errors.Is(err, sms.ErrNotConfigured):
		return apperr.Wrap(apperr.FailedPrecondition, "SMS service is not configured", err)
	case errors.Is(err, sms.ErrInvalidNumber):
		return apperr.Wrap(apperr.InvalidArgument, "Invalid phone number", err)
	case errors.Is(err, sms.ErrUnverifiedNumber):
		return apperr.Wrap(apperr.PermissionDenied, "Phone number is not verified. Trial accounts can only send to verified numbers.", err)
	}

	var gwErr *sms.GatewayError
	if errors.As(err, &gwErr) {
		return apperr.Wrap(apperr.Internal, "Failed to send SMS: "+gwErr.Message, err)
	}
	return apperr.Wrap(apperr.Internal, "Failed to send SMS: "+err.Error(), err)
}
