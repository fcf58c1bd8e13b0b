package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one outbound customer notification. Delivery transports
// (mail, SMS, webhooks) consume these; composing them is this package's
// whole job.
type Message struct {
	TenantID       uuid.UUID
	CustomerID     uuid.UUID
	CustomerName   string
	CustomerEmail  string
	ContractNumber string
	Subject        string
	Body           string
	CreatedAt      time.Time
}

// Notifier delivers composed notification messages
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
