package payment

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/apperr"
	"github.com/medeiros-dev/notification-gateway/internal/interfaces/callable"
	"github.com/medeiros-dev/notification-gateway/internal/observability/metrics"
	"github.com/medeiros-dev/notification-gateway/internal/observability/tracing"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

const handlerName = "processPayment"

type ProcessPaymentHandler struct {
	useCase ProcessPaymentUseCase
}

func NewProcessPaymentHandler(useCase ProcessPaymentUseCase) *ProcessPaymentHandler {
	return &ProcessPaymentHandler{useCase: useCase}
}

func (h *ProcessPaymentHandler) Handle(c *gin.Context) {
	start := time.Now()
	ctx, span := tracing.Tracer.Start(c.Request.Context(), "ProcessPaymentHandler.Handle")
	defer span.End()

	var input domain.PaymentRequest
	err := callable.Bind(c, &input)
	var output domain.PaymentResult
	if err == nil {
		output, err = h.useCase.Execute(ctx, input)
	}

	metrics.CallRequests.WithLabelValues(handlerName, callable.Outcome(err)).Inc()
	metrics.ObserveDuration(handlerName, err == nil, start)

	if err != nil {
		log := logger.L().Warn
		if apperr.KindOf(err) == apperr.Internal {
			log = logger.L().Error
		}
		log("Payment not processed",
			zap.String("idempotencyKey", input.IdempotencyKey),
			zap.String("kind", string(apperr.KindOf(err))),
			logger.TraceField(ctx),
			zap.Error(err),
		)
		callable.Fail(c, err)
		return
	}

	logger.L().Info("Payment processed",
		zap.String("idempotencyKey", input.IdempotencyKey),
		zap.String("paymentID", output.PaymentID),
		zap.String("status", output.Status),
		zap.Int64("amount", output.Amount),
		logger.TraceField(ctx),
	)
	callable.Respond(c, output)
}
