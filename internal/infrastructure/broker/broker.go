package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/broker"
	"github.com/medeiros-dev/notification-gateway/internal/observability/metrics"
	"github.com/medeiros-dev/notification-gateway/pkg/backoff"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const sourceLabel = "kafka"

// fetcher is the subset of *kafka.Reader the consume loop needs.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// publisher is the subset of *kafka.Writer used for the DLQ.
type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBroker consumes record-created events from a Kafka topic.
type KafkaBroker struct {
	reader       fetcher
	writer       publisher
	topic        string
	groupID      string
	dlqTopic     string
	backoffDelay time.Duration
	mu           sync.Mutex
}

type Config struct {
	Brokers      []string
	Topic        string
	GroupID      string
	DLQTopic     string
	BackoffDelay time.Duration
}

// NewKafkaBroker creates a consumer-group reader on cfg.Topic and a writer for the DLQ.
func NewKafkaBroker(cfg Config) (*KafkaBroker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers cannot be empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("KAFKA_TOPIC must be set")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("KAFKA_GROUP_ID must be set")
	}
	if cfg.DLQTopic == "" {
		logger.L().Warn("KAFKA_DLQ_TOPIC is not set. Undeliverable activations will be discarded.")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})

	logger.L().Info("Kafka Broker initialized",
		zap.String("topic", cfg.Topic),
		zap.String("groupID", cfg.GroupID),
		zap.String("dlqTopic", cfg.DLQTopic),
		zap.Strings("brokers", cfg.Brokers),
	)

	return newKafkaBroker(r, w, cfg), nil
}

func newKafkaBroker(r fetcher, w publisher, cfg Config) *KafkaBroker {
	return &KafkaBroker{
		reader:       r,
		writer:       w,
		topic:        cfg.Topic,
		groupID:      cfg.GroupID,
		dlqTopic:     cfg.DLQTopic,
		backoffDelay: cfg.BackoffDelay,
	}
}

// Consume fetches messages and hands each decoded record to consumeFunc.
// It returns nil once ctx is cancelled.
func (kb *KafkaBroker) Consume(
	ctx context.Context,
	consumeFunc func(ctx context.Context, msg broker.Message) error,
) error {
	logger.L().Info("Starting Kafka consumer loop",
		zap.String("topic", kb.topic),
		zap.String("groupID", kb.groupID),
	)

	failures := 0
	for {
		message, err := kb.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.L().Info("Context cancelled, stopping consumer loop",
					zap.String("topic", kb.topic),
					zap.Error(err),
				)
				return nil
			}
			failures++
			logger.L().Error("Error fetching message from Kafka, continuing loop",
				zap.String("topic", kb.topic),
				zap.Int("consecutiveFailures", failures),
				zap.Error(err),
			)
			if backoff.Wait(ctx, failures+1, kb.backoffDelay) != nil {
				return nil
			}
			continue
		}
		failures = 0

		metrics.TriggerMessagesReceived.WithLabelValues(sourceLabel).Inc()

		processingCtx := propagation.TraceContext{}.Extract(ctx, otelHeaderCarrier{headers: &message.Headers})

		var record domain.NotificationRecord
		if err := json.Unmarshal(message.Value, &record); err != nil || record.ID == "" {
			if err == nil {
				err = errors.New("record id is missing")
			}
			logger.L().Error("Undecodable record-created message, moving to DLQ",
				zap.String("topic", message.Topic),
				zap.Int64("offset", message.Offset),
				zap.Error(err),
			)
			poison := &KafkaMessage{broker: kb, kafkaMsg: message}
			if dlqErr := poison.MoveToDLQ(processingCtx, fmt.Errorf("unmarshalling error: %w", err)); dlqErr != nil {
				logger.L().Error("Failed to move undecodable message to DLQ. It may be redelivered.",
					zap.Int64("offset", message.Offset),
					zap.Error(dlqErr),
				)
			}
			continue
		}

		appMsg := &KafkaMessage{broker: kb, kafkaMsg: message, record: record}
		if err := consumeFunc(processingCtx, appMsg); err != nil {
			logger.L().Error("Error returned by consumeFunc; offset may not be committed",
				zap.Int64("offset", message.Offset),
				zap.String("notificationID", record.ID),
				zap.Error(err),
			)
		}

		if ctx.Err() != nil {
			logger.L().Info("Context cancelled during processing, stopping consumer loop",
				zap.String("topic", kb.topic),
			)
			return nil
		}
	}
}

// Close closes the reader and the DLQ writer.
func (kb *KafkaBroker) Close() error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	var errs []error
	if kb.reader != nil {
		if err := kb.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing reader: %w", err))
		}
	}
	if kb.writer != nil {
		if err := kb.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing writer: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.L().Error("Errors occurred during Kafka resource closing", zap.Error(err))
		return err
	}
	logger.L().Info("Kafka resources closed successfully.")
	return nil
}
