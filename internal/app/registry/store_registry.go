package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
)

// StoreFactory builds a storage driver from the application configuration.
type StoreFactory func(ctx context.Context, cfg *configs.Config) (store.Store, error)

var (
	storeRegistry = make(map[string]StoreFactory)
	registryMutex sync.RWMutex
)

// RegisterStoreFactory registers a driver under name. Drivers call it from init().
func RegisterStoreFactory(name string, factory StoreFactory) error {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := storeRegistry[name]; exists {
		return fmt.Errorf("store factory already registered: %s", name)
	}
	storeRegistry[name] = factory
	return nil
}

func GetStoreFactory(name string) (StoreFactory, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	factory, exists := storeRegistry[name]
	if !exists {
		return nil, fmt.Errorf("no store factory registered for driver %q (known: %v)", name, driversLocked())
	}
	return factory, nil
}

// OpenStore builds the driver selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *configs.Config) (store.Store, error) {
	factory, err := GetStoreFactory(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}
	return factory(ctx, cfg)
}

func driversLocked() []string {
	names := make([]string, 0, len(storeRegistry))
	for name := range storeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
