package mongo

import (
	"context"

	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/app/registry"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
)

func init() {
	if err := registry.RegisterStoreFactory(configs.StoreDriverMongo, func(ctx context.Context, cfg *configs.Config) (store.Store, error) {
		return NewStore(ctx, Config{
			URI:                     cfg.MongoURI,
			Database:                cfg.MongoDatabase,
			NotificationsCollection: cfg.NotificationsCollection,
			TokensCollection:        cfg.TokensCollection,
			CheckpointsCollection:   cfg.CheckpointsCollection,
		})
	}); err != nil {
		panic(err)
	}
}
