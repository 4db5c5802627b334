package claim

import (
	"context"
	"time"
)

// Claimer hands out exclusive, expiring claims on a notification record so two
// concurrent activations cannot both deliver it.
type Claimer interface {
	// Acquire returns false when someone else already holds the claim.
	Acquire(ctx context.Context, notificationID string, ttl time.Duration) (bool, error)
	// Release drops the claim so a later activation may retry the record.
	Release(ctx context.Context, notificationID string) error
}
