package fanout

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/claim"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/push"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
	"github.com/medeiros-dev/notification-gateway/internal/observability/metrics"
	"github.com/medeiros-dev/notification-gateway/internal/observability/tracing"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

// FanoutUseCase delivers one newly created notification record to every
// registered device. It never fails: every problem is recorded on the record.
type FanoutUseCase interface {
	Execute(ctx context.Context, record domain.NotificationRecord) domain.DeliveryOutcome
}

type fanoutUseCase struct {
	records  store.NotificationStore
	tokens   store.TokenRegistry
	gateway  push.Gateway
	claimer  claim.Claimer
	claimTTL time.Duration
}

type Option func(*fanoutUseCase)

// WithClaim guards delivery with an exclusive claim so concurrent activations
// for the same record deliver at most once.
func WithClaim(claimer claim.Claimer, ttl time.Duration) Option {
	return func(u *fanoutUseCase) {
		u.claimer = claimer
		u.claimTTL = ttl
	}
}

func NewFanoutUseCase(records store.NotificationStore, tokens store.TokenRegistry, gateway push.Gateway, opts ...Option) FanoutUseCase {
	u := &fanoutUseCase{records: records, tokens: tokens, gateway: gateway}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *fanoutUseCase) Execute(ctx context.Context, record domain.NotificationRecord) domain.DeliveryOutcome {
	ctx, span := tracing.Tracer.Start(ctx, "FanoutUseCase.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("notification.id", record.ID),
		attribute.String("event.id", record.EventID),
	)

	log := logger.L().With(
		zap.String("notificationID", record.ID),
		zap.String("eventID", record.EventID),
		logger.TraceField(ctx),
	)

	outcome := u.deliver(ctx, log, record)

	metrics.FanoutActivations.WithLabelValues(string(outcome.Status)).Inc()
	span.SetAttributes(attribute.String("fanout.outcome", string(outcome.Status)))
	if outcome.Status == domain.OutcomeFailed {
		span.SetStatus(codes.Error, outcome.Error)
	}
	return outcome
}

func (u *fanoutUseCase) deliver(ctx context.Context, log *zap.Logger, record domain.NotificationRecord) (outcome domain.DeliveryOutcome) {
	outcome.NotificationID = record.ID

	if record.Sent {
		log.Info("Notification already sent, skipping")
		outcome.Status = domain.OutcomeSkippedSent
		return outcome
	}

	if u.claimer != nil {
		acquired, err := u.claimer.Acquire(ctx, record.ID, u.claimTTL)
		switch {
		case err != nil:
			log.Warn("Delivery claim unavailable, continuing without it", zap.Error(err))
		case !acquired:
			log.Info("Notification claimed by another activation, skipping")
			outcome.Status = domain.OutcomeSkippedClaimed
			return outcome
		default:
			defer func() {
				if outcome.Status != domain.OutcomeSent {
					u.release(ctx, log, record.ID)
				}
			}()
		}
	}

	// Trigger payloads are insert-time snapshots, so the stored flag decides.
	stored, err := u.records.Get(ctx, record.ID)
	if err != nil {
		return u.fail(ctx, log, outcome, fmt.Errorf("re-reading notification: %w", err))
	}
	if stored.Sent {
		log.Info("Notification already marked sent in store, skipping")
		outcome.Status = domain.OutcomeSkippedSent
		return outcome
	}
	record = stored

	registered, err := u.tokens.ListTokens(ctx)
	if err != nil {
		return u.fail(ctx, log, outcome, fmt.Errorf("reading device tokens: %w", err))
	}
	if len(registered) == 0 {
		log.Info("No FCM tokens found")
		outcome.Status = domain.OutcomeSkippedNoTokens
		return outcome
	}

	tokens := domain.ValidTokens(registered)
	if len(tokens) == 0 {
		log.Info("No valid FCM tokens found", zap.Int("registered", len(registered)))
		outcome.Status = domain.OutcomeSkippedNoTokens
		return outcome
	}

	result, err := u.gateway.SendMulticast(ctx, BuildMessage(record, tokens))
	metrics.PushTokens.WithLabelValues("success").Add(float64(result.SuccessCount))
	metrics.PushTokens.WithLabelValues("failure").Add(float64(result.FailureCount))
	outcome.SuccessCount = result.SuccessCount
	outcome.FailureCount = result.FailureCount
	if err != nil {
		return u.fail(ctx, log, outcome, err)
	}

	log.Info("Notification sent",
		zap.Int("tokens", len(tokens)),
		zap.Int("successCount", result.SuccessCount),
		zap.Int("failureCount", result.FailureCount),
	)

	if err := u.records.MarkSent(ctx, record.ID, result.SuccessCount, result.FailureCount); err != nil {
		return u.fail(ctx, log, outcome, fmt.Errorf("marking notification sent: %w", err))
	}

	outcome.Status = domain.OutcomeSent
	return outcome
}

// fail records err on the notification and reports the activation as failed.
func (u *fanoutUseCase) fail(ctx context.Context, log *zap.Logger, outcome domain.DeliveryOutcome, err error) domain.DeliveryOutcome {
	log.Error("Error sending notification", zap.Error(err))

	outcome.Status = domain.OutcomeFailed
	outcome.Error = err.Error()
	if markErr := u.records.MarkFailed(ctx, outcome.NotificationID, err.Error()); markErr != nil {
		log.Error("Failed to record notification failure", zap.Error(markErr))
	}
	return outcome
}

func (u *fanoutUseCase) release(ctx context.Context, log *zap.Logger, id string) {
	if err := u.claimer.Release(context.WithoutCancel(ctx), id); err != nil {
		log.Warn("Failed to release delivery claim", zap.Error(err))
	}
}
