package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/observability/metrics"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// KafkaMessage wraps a fetched kafka-go message and implements broker.Message.
type KafkaMessage struct {
	broker   *KafkaBroker
	kafkaMsg kafka.Message
	record   domain.NotificationRecord
}

func (m *KafkaMessage) Data() domain.NotificationRecord {
	return m.record
}

func (m *KafkaMessage) Headers() []kafka.Header {
	return m.kafkaMsg.Headers
}

// Ack commits the message offset.
func (m *KafkaMessage) Ack(ctx context.Context) error {
	err := m.broker.reader.CommitMessages(ctx, m.kafkaMsg)
	if err != nil {
		logger.L().Error("Failed to commit Kafka message offset",
			zap.Int64("offset", m.kafkaMsg.Offset),
			zap.String("topic", m.kafkaMsg.Topic),
			zap.String("notificationID", m.record.ID),
			logger.TraceField(ctx),
			zap.Error(err),
		)
		return err
	}
	logger.L().Debug("Kafka message acknowledged",
		zap.Int64("offset", m.kafkaMsg.Offset),
		zap.String("notificationID", m.record.ID),
		logger.TraceField(ctx),
	)
	return nil
}

// MoveToDLQ republishes the raw message to the DLQ topic and commits the original.
// Without a DLQ topic the message is dropped and committed.
func (m *KafkaMessage) MoveToDLQ(ctx context.Context, processingError error) error {
	metrics.TriggerMessagesDLQ.WithLabelValues(sourceLabel).Inc()

	if m.broker.dlqTopic == "" {
		logger.L().Warn("DLQ topic not configured. Discarding message.",
			zap.Int64("offset", m.kafkaMsg.Offset),
			zap.String("notificationID", m.record.ID),
			logger.TraceField(ctx),
			zap.Error(processingError),
		)
		return m.Ack(ctx)
	}

	headers := setHeader(m.kafkaMsg.Headers, dlqReasonHeader, processingError.Error())
	headers = setHeader(headers, dlqSourceHeader, m.kafkaMsg.Topic)
	propagation.TraceContext{}.Inject(ctx, otelHeaderCarrier{headers: &headers})

	dlqMsg := kafka.Message{
		Topic:   m.broker.dlqTopic,
		Key:     m.kafkaMsg.Key,
		Value:   m.kafkaMsg.Value,
		Headers: headers,
		Time:    time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.broker.writer.WriteMessages(writeCtx, dlqMsg); err != nil {
		logger.L().Error("Failed to publish message to DLQ",
			zap.String("notificationID", m.record.ID),
			zap.String("dlqTopic", m.broker.dlqTopic),
			logger.TraceField(ctx),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish message to DLQ: %w", err)
	}

	if err := m.Ack(ctx); err != nil {
		return fmt.Errorf("failed to ack original message after DLQ: %w", err)
	}

	logger.L().Warn("Message published to DLQ and original message acknowledged",
		zap.String("notificationID", m.record.ID),
		zap.String("dlqTopic", m.broker.dlqTopic),
		logger.TraceField(ctx),
		zap.Error(processingError),
	)
	return nil
}
