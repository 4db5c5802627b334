package main

import (
	"context"
	"time"

	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/app/registry"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
	"github.com/medeiros-dev/notification-gateway/internal/infrastructure/claim"
	"github.com/medeiros-dev/notification-gateway/internal/infrastructure/payment"
	"github.com/medeiros-dev/notification-gateway/internal/infrastructure/push"
	"github.com/medeiros-dev/notification-gateway/internal/infrastructure/sms"
	"github.com/medeiros-dev/notification-gateway/internal/usecases/fanout"
	processpayment "github.com/medeiros-dev/notification-gateway/internal/usecases/payment"
	"github.com/medeiros-dev/notification-gateway/internal/usecases/sendcode"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"

	_ "github.com/medeiros-dev/notification-gateway/internal/infrastructure/store/mongo"
	_ "github.com/medeiros-dev/notification-gateway/internal/infrastructure/store/postgres"
)

// deps builds the use cases each command runs. Tests swap in fakes.
type deps struct {
	loadConfig func(envDir string) error
	sendCode   func() sendcode.SendCodeUseCase
	payment    func() processpayment.ProcessPaymentUseCase
	// fanout returns the use case, the store records are read from, and a cleanup.
	fanout func(ctx context.Context) (fanout.FanoutUseCase, store.NotificationStore, func(), error)
}

func defaultDeps() *deps {
	return &deps{
		loadConfig: func(envDir string) error {
			if err := logger.InitializeLogger(true); err != nil {
				return err
			}
			_, err := configs.NewConfig(envDir)
			return err
		},
		sendCode: func() sendcode.SendCodeUseCase {
			return sendcode.NewSendCodeUseCase(sms.NewGateway(configs.GetSMSConf()))
		},
		payment: func() processpayment.ProcessPaymentUseCase {
			return processpayment.NewProcessPaymentUseCase(payment.NewGateway(configs.GetPaymentConf()))
		},
		fanout: openFanout,
	}
}

func openFanout(ctx context.Context) (fanout.FanoutUseCase, store.NotificationStore, func(), error) {
	cfg := configs.GetConfig()
	s, err := registry.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanups := []func(){func() { _ = s.Close(context.Background()) }}

	var opts []fanout.Option
	if cfg.ClaimRedisURL != "" {
		claimer, err := claim.NewRedisClaimer(ctx, cfg.ClaimRedisURL)
		if err != nil {
			_ = s.Close(ctx)
			return nil, nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = claimer.Close() })
		opts = append(opts, fanout.WithClaim(claimer, time.Duration(cfg.ClaimTTLSeconds)*time.Second))
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return fanout.NewFanoutUseCase(s, s, push.NewFCMGateway(configs.GetPushConf()), opts...), s, cleanup, nil
}
