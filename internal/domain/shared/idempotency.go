package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so redelivered events
// are not handled twice.
type IdempotencyStore interface {
	// MarkProcessed records the event ID with a TTL. It returns true if
	// the ID was newly recorded, false if it was already present.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the event ID is currently recorded
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources
	Close() error
}

// IdempotencyConfig controls duplicate-event suppression
type IdempotencyConfig struct {
	// TTL is how long a processed event ID stays recorded. After it
	// expires the same ID would be handled again.
	TTL time.Duration

	// Enabled turns the check off entirely when false
	Enabled bool
}

// DefaultIdempotencyConfig keeps event IDs for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
