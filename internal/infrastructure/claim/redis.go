package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "notification-gateway:fanout:"

// RedisClaimer implements claim.Claimer with SET NX plus a TTL.
type RedisClaimer struct {
	client *redis.Client
}

// NewRedisClaimer connects to the redis instance at url (redis://host:port/db).
func NewRedisClaimer(ctx context.Context, url string) (*RedisClaimer, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing CLAIM_REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging claim redis: %w", err)
	}
	return &RedisClaimer{client: client}, nil
}

func (c *RedisClaimer) Acquire(ctx context.Context, notificationID string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, keyPrefix+notificationID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming notification %s: %w", notificationID, err)
	}
	return ok, nil
}

func (c *RedisClaimer) Release(ctx context.Context, notificationID string) error {
	if err := c.client.Del(ctx, keyPrefix+notificationID).Err(); err != nil {
		return fmt.Errorf("releasing notification %s: %w", notificationID, err)
	}
	return nil
}

func (c *RedisClaimer) Close() error {
	return c.client.Close()
}
