package sendcode

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

const handlerName = "sendVerificationCode"

type SendCodeHandler struct {
	useCase SendCodeUseCase
}

func NewSendCodeHandler(useCase SendCodeUseCase) *SendCodeHandler {
	return &SendCodeHandler{useCase: useCase}
}

func (h *SendCodeHandler) Handle(c *gin.Context) {
	start := time.Now()
	ctx, span := tracing.Tracer.Start(c.Request.Context(), "SendCodeHandler.Handle")
	defer span.End()

	var input domain.VerificationRequest
	err := callable.Bind(c, &input)
	var output domain.SmsResult
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
		log("Verification code not sent",
			zap.String("kind", string(apperr.KindOf(err))),
			logger.TraceField(ctx),
			zap.Error(err),
		)
		callable.Fail(c, err)
		return
	}

	logger.L().Info("Verification code sent",
		zap.String("messageSid", output.MessageSid),
		logger.TraceField(ctx),
	)
	callable.Respond(c, output)
}
