package interfaces

import (
	"context"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
)

// RecordHandlerInterface handles one record-created activation. It reports an
// outcome instead of an error because activations are never redelivered on
// handler failure.
type RecordHandlerInterface interface {
	Handle(ctx context.Context, record domain.NotificationRecord) domain.DeliveryOutcome
}
