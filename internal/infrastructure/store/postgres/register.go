package postgres

import (
	"context"

	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/app/registry"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
)

func init() {
	if err := registry.RegisterStoreFactory(configs.StoreDriverPostgres, func(ctx context.Context, cfg *configs.Config) (store.Store, error) {
		return NewStore(Config{
			DSN:                cfg.PostgresDSN,
			NotificationsTable: cfg.NotificationsCollection,
			TokensTable:        cfg.TokensCollection,
		})
	}); err != nil {
		panic(err)
	}
}
