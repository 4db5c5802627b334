package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/app/registry"
	"github.com/medeiros-dev/notification-gateway/internal/app/server"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/broker"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
	kafkabroker "github.com/medeiros-dev/notification-gateway/internal/infrastructure/broker"
	"github.com/medeiros-dev/notification-gateway/internal/infrastructure/claim"
	"github.com/medeiros-dev/notification-gateway/internal/infrastructure/payment"
	"github.com/medeiros-dev/notification-gateway/internal/infrastructure/push"
	"github.com/medeiros-dev/notification-gateway/internal/infrastructure/sms"
	mongostore "github.com/medeiros-dev/notification-gateway/internal/infrastructure/store/mongo"
	"github.com/medeiros-dev/notification-gateway/internal/observability/metrics"
	"github.com/medeiros-dev/notification-gateway/internal/observability/tracing"
	"github.com/medeiros-dev/notification-gateway/internal/usecases/fanout"
	processpayment "github.com/medeiros-dev/notification-gateway/internal/usecases/payment"
	"github.com/medeiros-dev/notification-gateway/internal/usecases/sendcode"
	"github.com/medeiros-dev/notification-gateway/internal/usecases/trigger"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"

	// Store drivers register themselves with the registry
	_ "github.com/medeiros-dev/notification-gateway/internal/infrastructure/store/postgres"
)

func main() {
	if err := logger.InitializeLogger(os.Getenv("APP_ENV") == "development"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	logger.L().Info("Starting notification gateway...")

	// --- Configuration ---
	cfg, err := configs.NewConfig(".")
	if err != nil {
		logger.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.L().Info("Configuration loaded",
		zap.String("httpServerAddress", cfg.HTTPServerAddress),
		zap.String("metricsServerAddress", cfg.MetricsServerAddress),
		zap.String("triggerSource", cfg.TriggerSource),
		zap.String("storeDriver", cfg.StoreDriver),
		zap.Bool("smsConfigured", configs.GetSMSConf().Configured()),
		zap.Bool("paymentConfigured", configs.GetPaymentConf().Configured()),
	)

	// --- Tracing ---
	tracerShutdown, err := tracing.InitTracer(cfg)
	if err != nil {
		logger.L().Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.L().Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Call-style handlers ---
	sendCodeHandler := sendcode.NewSendCode(sms.NewGateway(configs.GetSMSConf()))
	paymentHandler := processpayment.NewProcessPayment(payment.NewGateway(configs.GetPaymentConf()))

	// --- Fan-out trigger ---
	var (
		records       store.Store
		consumerDone  = make(chan struct{})
		messageBroker broker.MessageBroker
	)
	if cfg.TriggerSource != configs.TriggerSourceNone {
		records, err = registry.OpenStore(ctx, cfg)
		if err != nil {
			logger.L().Fatal("Failed to open notification store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if err := records.Close(closeCtx); err != nil {
				logger.L().Error("Error closing notification store", zap.Error(err))
			}
		}()

		messageBroker, err = newTriggerBroker(cfg, records)
		if err != nil {
			logger.L().Fatal("Failed to initialize trigger source", zap.String("source", cfg.TriggerSource), zap.Error(err))
		}
		defer func() {
			if err := messageBroker.Close(); err != nil {
				logger.L().Error("Error closing trigger source", zap.Error(err))
			}
		}()

		var opts []fanout.Option
		if cfg.ClaimRedisURL != "" {
			claimer, err := claim.NewRedisClaimer(ctx, cfg.ClaimRedisURL)
			if err != nil {
				logger.L().Fatal("Failed to connect delivery claim store", zap.Error(err))
			}
			defer claimer.Close()
			opts = append(opts, fanout.WithClaim(claimer, time.Duration(cfg.ClaimTTLSeconds)*time.Second))
		}

		fanoutHandler := fanout.NewFanout(records, push.NewFCMGateway(configs.GetPushConf()), opts...)
		consumer := trigger.NewConsumer(messageBroker, fanoutHandler, configs.GetTriggerConf())

		go func() {
			defer close(consumerDone)
			if err := consumer.Handle(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("Record consumer exited with error", zap.Error(err))
			} else {
				logger.L().Info("Record consumer exited cleanly.")
			}
		}()
	} else {
		logger.L().Info("TRIGGER_SOURCE=none, fan-out disabled")
		close(consumerDone)
	}

	// --- HTTP ---
	opts := server.Options{
		ServiceName:    cfg.OtelServiceName,
		HandlerTimeout: cfg.HandlerTimeout(),
		SendCode:       sendCodeHandler.Handle,
		ProcessPayment: paymentHandler.Handle,
	}
	if records != nil {
		opts.Health = records
	}
	httpServer := &http.Server{
		Addr:    cfg.HTTPServerAddress,
		Handler: server.NewRouter(opts),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.MetricsHandler())
	metricsServer := &http.Server{
		Addr:    cfg.MetricsServerAddress,
		Handler: metricsMux,
	}

	go func() {
		logger.L().Info("Starting metrics server", zap.String("address", cfg.MetricsServerAddress))
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("Metrics server ListenAndServe failed", zap.Error(err))
		}
	}()
	go func() {
		logger.L().Info("HTTP server starting", zap.String("address", cfg.HTTPServerAddress))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("HTTP server ListenAndServe failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.L().Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HandlerTimeout())
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.L().Info("Waiting for record consumer to stop...")
	<-consumerDone

	logger.L().Info("Notification gateway shut down complete.")
}

// newTriggerBroker builds the record-created transport named by TRIGGER_SOURCE.
func newTriggerBroker(cfg *configs.Config, records store.Store) (broker.MessageBroker, error) {
	triggerConf := configs.GetTriggerConf()
	switch cfg.TriggerSource {
	case configs.TriggerSourceKafka:
		return kafkabroker.NewKafkaBroker(kafkabroker.Config{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			GroupID:      cfg.KafkaGroupID,
			DLQTopic:     cfg.KafkaDLQTopic,
			BackoffDelay: triggerConf.BackoffBaseDelay,
		})
	case configs.TriggerSourceChangeStream:
		mongoStore, ok := records.(*mongostore.Store)
		if !ok {
			return nil, errors.New("change stream trigger requires the mongo store driver")
		}
		return mongoStore.NewWatcher(triggerConf.BackoffBaseDelay), nil
	default:
		return nil, errors.New("unknown trigger source: " + cfg.TriggerSource)
	}
}
