package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/meterbill/backend/internal/domain/contract/acl"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/meterbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceCreatedHandler composes a customer notification whenever a
// period invoice or the final consolidated invoice becomes payable.
type InvoiceCreatedHandler struct {
	customers acl.CustomerQueryService
	notifier  Notifier
	logger    *zap.Logger
}

// NewInvoiceCreatedHandler creates a new handler for invoice events
func NewInvoiceCreatedHandler(customers acl.CustomerQueryService, notifier Notifier, logger *zap.Logger) *InvoiceCreatedHandler {
	return &InvoiceCreatedHandler{
		customers: customers,
		notifier:  notifier,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceCreatedHandler) EventTypes() []string {
	return []string{metering.EventTypeInvoiceCreated}
}

// Handle composes and dispatches the invoice notification. The customer
// directory lookup is best-effort: when the peer is down the message
// falls back to the identifiers already on the event, because a billing
// mutation must never depend on the directory being up.
func (h *InvoiceCreatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	invoiceEvent, ok := event.(*metering.InvoiceCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			metering.EventTypeInvoiceCreated, event.EventType())
	}

	customerName := invoiceEvent.CustomerID.String()
	customerEmail := ""
	if ref, err := h.customers.GetCustomer(ctx, invoiceEvent.CustomerID); err == nil {
		customerName = ref.Name
		customerEmail = ref.Email
	} else {
		h.logger.Warn("customer directory lookup failed, using fallback identity",
			zap.String("customer_id", invoiceEvent.CustomerID.String()),
			zap.Error(err),
		)
	}

	subject := fmt.Sprintf("Invoice %s for period %s to %s",
		invoiceEvent.ContractNumber,
		invoiceEvent.PeriodStart.Format("2006-01-02"),
		invoiceEvent.PeriodEnd.Format("2006-01-02"))
	if invoiceEvent.Final {
		subject = fmt.Sprintf("Final settlement invoice %s", invoiceEvent.ContractNumber)
	}

	msg := Message{
		TenantID:       invoiceEvent.TenantID(),
		CustomerID:     invoiceEvent.CustomerID,
		CustomerName:   customerName,
		CustomerEmail:  customerEmail,
		ContractNumber: invoiceEvent.ContractNumber,
		Subject:        subject,
		Body: fmt.Sprintf("Dear %s, your invoice for contract %s amounts to %s.",
			customerName, invoiceEvent.ContractNumber, invoiceEvent.Amount.StringFixed(2)),
		CreatedAt: time.Now(),
	}

	if err := h.notifier.Notify(ctx, msg); err != nil {
		h.logger.Error("invoice notification delivery failed",
			zap.String("contract_number", invoiceEvent.ContractNumber),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("invoice notification dispatched",
		zap.String("contract_number", invoiceEvent.ContractNumber),
		zap.Bool("final", invoiceEvent.Final),
	)
	return nil
}
