package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meterbill/backend/internal/application/notification"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// WebhookNotifier posts composed notification messages to the delivery
// gateway. Rendering and channel selection (mail vs WhatsApp) happen on
// the gateway side; this side only hands over the payload.
type WebhookNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWebhookNotifier(cfg config.NotifyConfig, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

type notifyPayload struct {
	TenantID       string    `json:"tenant_id"`
	CustomerID     string    `json:"customer_id"`
	CustomerName   string    `json:"customer_name"`
	CustomerEmail  string    `json:"customer_email,omitempty"`
	ContractNumber string    `json:"contract_number"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, msg notification.Message) error {
	payload, err := json.Marshal(notifyPayload{
		TenantID:       msg.TenantID.String(),
		CustomerID:     msg.CustomerID.String(),
		CustomerName:   msg.CustomerName,
		CustomerEmail:  msg.CustomerEmail,
		ContractNumber: msg.ContractNumber,
		Subject:        msg.Subject,
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Notification gateway unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("Notification gateway returned HTTP %d", resp.StatusCode))
	}

	n.logger.Debug("notification delivered",
		zap.String("contract_number", msg.ContractNumber),
		zap.String("subject", msg.Subject),
	)
	return nil
}

var _ notification.Notifier = (*WebhookNotifier)(nil)
