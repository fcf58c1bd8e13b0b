package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/contract/acl"
	"github.com/meterbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ContractApprovedHandler notifies the customer when finance approves
// their contract.
type ContractApprovedHandler struct {
	customers acl.CustomerQueryService
	notifier  Notifier
	logger    *zap.Logger
}

// NewContractApprovedHandler creates a new handler for finance approvals
func NewContractApprovedHandler(customers acl.CustomerQueryService, notifier Notifier, logger *zap.Logger) *ContractApprovedHandler {
	return &ContractApprovedHandler{
		customers: customers,
		notifier:  notifier,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ContractApprovedHandler) EventTypes() []string {
	return []string{contract.EventTypeContractFinanceApproved}
}

// Handle composes and dispatches the approval notification
func (h *ContractApprovedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	approvedEvent, ok := event.(*contract.ContractFinanceApprovedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			contract.EventTypeContractFinanceApproved, event.EventType())
	}

	customerName := approvedEvent.CustomerID.String()
	customerEmail := ""
	if ref, err := h.customers.GetCustomer(ctx, approvedEvent.CustomerID); err == nil {
		customerName = ref.Name
		customerEmail = ref.Email
	} else {
		h.logger.Warn("customer directory lookup failed, using fallback identity",
			zap.String("customer_id", approvedEvent.CustomerID.String()),
			zap.Error(err),
		)
	}

	var body string
	switch approvedEvent.SaleType {
	case contract.SaleTypeSale:
		body = fmt.Sprintf("Dear %s, your purchase invoice %s has been issued.",
			customerName, approvedEvent.ContractNumber)
	default:
		body = fmt.Sprintf("Dear %s, your contract %s is now active.",
			customerName, approvedEvent.ContractNumber)
	}

	msg := Message{
		TenantID:       approvedEvent.TenantID(),
		CustomerID:     approvedEvent.CustomerID,
		CustomerName:   customerName,
		CustomerEmail:  customerEmail,
		ContractNumber: approvedEvent.ContractNumber,
		Subject:        fmt.Sprintf("Contract %s approved", approvedEvent.ContractNumber),
		Body:           body,
		CreatedAt:      time.Now(),
	}

	if err := h.notifier.Notify(ctx, msg); err != nil {
		h.logger.Error("approval notification delivery failed",
			zap.String("contract_number", approvedEvent.ContractNumber),
			zap.Error(err),
		)
		return err
	}
	return nil
}
