package fanout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/observability/metrics"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

const handlerName = "sendEventNotification"

type FanoutHandler struct {
	useCase FanoutUseCase
}

func NewFanoutHandler(useCase FanoutUseCase) *FanoutHandler {
	return &FanoutHandler{useCase: useCase}
}

func (h *FanoutHandler) Handle(ctx context.Context, record domain.NotificationRecord) domain.DeliveryOutcome {
	start := time.Now()
	logger.L().Debug("Handling record-created activation",
		zap.String("notificationID", record.ID),
		zap.String("eventID", record.EventID),
		logger.TraceField(ctx),
	)

	outcome := h.useCase.Execute(ctx, record)
	metrics.ObserveDuration(handlerName, outcome.Status != domain.OutcomeFailed, start)

	logger.L().Info("Record-created activation finished",
		zap.String("notificationID", record.ID),
		zap.String("outcome", string(outcome.Status)),
		zap.Duration("elapsed", time.Since(start)),
		logger.TraceField(ctx),
	)
	return outcome
}
