package store

import (
	"context"
	"errors"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
)

var ErrNotFound = errors.New("notification record not found")

// NotificationStore owns the write-back side of a notification record.
type NotificationStore interface {
	Get(ctx context.Context, id string) (domain.NotificationRecord, error)
	// MarkSent sets sent=true, sentAt=<store server time> and the delivery counts.
	MarkSent(ctx context.Context, id string, successCount, failureCount int) error
	// MarkFailed sets sent=false and error=message.
	MarkFailed(ctx context.Context, id string, message string) error
}

// TokenRegistry is read-only access to the device token collection.
type TokenRegistry interface {
	ListTokens(ctx context.Context) ([]domain.DeviceToken, error)
}

// Store is what a storage driver provides.
type Store interface {
	NotificationStore
	TokenRegistry
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
