package trigger

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/internal/domain/port/broker"
	"github.com/medeiros-dev/notification-gateway/internal/interfaces"
	"github.com/medeiros-dev/notification-gateway/internal/observability/tracing"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

const DefaultWorkerPoolSize = 10

// ConsumerUseCase feeds record-created activations from a broker to the record
// handler on a bounded pool of goroutines.
type ConsumerUseCase struct {
	messageBroker broker.MessageBroker
	handler       interfaces.RecordHandlerInterface
	semaphore     chan struct{}
	inFlight      sync.WaitGroup
}

func NewConsumerUseCase(messageBroker broker.MessageBroker, handler interfaces.RecordHandlerInterface, workerPoolSize int) *ConsumerUseCase {
	if workerPoolSize <= 0 {
		logger.L().Warn("Invalid worker pool size, defaulting",
			zap.Int("providedWorkerPoolSize", workerPoolSize),
			zap.Int("defaultWorkerPoolSize", DefaultWorkerPoolSize),
		)
		workerPoolSize = DefaultWorkerPoolSize
	}
	return &ConsumerUseCase{
		messageBroker: messageBroker,
		handler:       handler,
		semaphore:     make(chan struct{}, workerPoolSize),
	}
}

// Execute consumes until ctx is cancelled, then waits for in-flight activations.
func (u *ConsumerUseCase) Execute(ctx context.Context) error {
	consumeFunc := func(ctx context.Context, msg broker.Message) error {
		select {
		case u.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		consumerCtx, span := tracing.Tracer.Start(ctx, "RecordConsumer.processMessage", trace.WithSpanKind(trace.SpanKindConsumer))

		u.inFlight.Add(1)
		go func(processingCtx context.Context, message broker.Message) {
			defer u.inFlight.Done()
			defer span.End()
			defer func() { <-u.semaphore }()

			u.processMessage(processingCtx, message)
		}(context.WithoutCancel(consumerCtx), msg)

		return nil
	}

	logger.L().Info("Record consumer starting consumption...", zap.Int("workerPoolSize", cap(u.semaphore)))
	err := u.messageBroker.Consume(ctx, consumeFunc)
	u.inFlight.Wait()
	logger.L().Info("Record consumer stopped")
	return err
}

// processMessage runs the handler and acknowledges the activation whatever the
// outcome. Only a panic sends the message to the dead letter destination.
func (u *ConsumerUseCase) processMessage(ctx context.Context, msg broker.Message) {
	record := msg.Data()

	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("CRITICAL: Panic recovered in processMessage",
				zap.Any("panicValue", r),
				zap.String("stacktrace", string(debug.Stack())),
				zap.String("notificationID", record.ID),
				logger.TraceField(ctx),
			)
			if dlqErr := msg.MoveToDLQ(ctx, fmt.Errorf("panic recovered: %v", r)); dlqErr != nil {
				logger.L().Error("Failed to move message to DLQ after panic",
					zap.String("notificationID", record.ID),
					logger.TraceField(ctx),
					zap.Error(dlqErr),
				)
			}
		}
	}()

	outcome := u.handler.Handle(ctx, record)

	if err := msg.Ack(ctx); err != nil {
		logger.L().Error("Error acknowledging activation",
			zap.String("notificationID", record.ID),
			zap.String("outcome", string(outcome.Status)),
			logger.TraceField(ctx),
			zap.Error(err),
		)
	}
}
