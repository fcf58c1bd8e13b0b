package contract

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeContract = "Contract"

// Event type constants
const (
	EventTypeContractCreated         = "ContractCreated"
	EventTypeContractSubmitted       = "ContractSubmitted"
	EventTypeContractFinanceApproved = "ContractFinanceApproved"
	EventTypeContractRejected        = "ContractRejected"
	EventTypeContractCompleted       = "ContractCompleted"
)

// ContractCreatedEvent is raised when a new quotation is created
type ContractCreatedEvent struct {
	shared.BaseDomainEvent
	ContractID     uuid.UUID `json:"contract_id"`
	ContractNumber string    `json:"contract_number"`
	CustomerID     uuid.UUID `json:"customer_id"`
	SaleType       SaleType  `json:"sale_type"`
}

// NewContractCreatedEvent creates a new ContractCreatedEvent
func NewContractCreatedEvent(c *Contract) *ContractCreatedEvent {
	return &ContractCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContractCreated, AggregateTypeContract, c.ID, c.TenantID),
		ContractID:      c.ID,
		ContractNumber:  c.ContractNumber,
		CustomerID:      c.CustomerID,
		SaleType:        c.SaleType,
	}
}

// EventType returns the event type name
func (e *ContractCreatedEvent) EventType() string {
	return EventTypeContractCreated
}

// ContractSubmittedEvent is raised when an employee approves a quotation,
// queueing it for finance approval
type ContractSubmittedEvent struct {
	shared.BaseDomainEvent
	ContractID     uuid.UUID  `json:"contract_id"`
	ContractNumber string     `json:"contract_number"`
	ApprovedBy     *uuid.UUID `json:"approved_by,omitempty"`
}

// NewContractSubmittedEvent creates a new ContractSubmittedEvent
func NewContractSubmittedEvent(c *Contract) *ContractSubmittedEvent {
	return &ContractSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContractSubmitted, AggregateTypeContract, c.ID, c.TenantID),
		ContractID:      c.ID,
		ContractNumber:  c.ContractNumber,
		ApprovedBy:      c.EmployeeApprovedBy,
	}
}

// EventType returns the event type name
func (e *ContractSubmittedEvent) EventType() string {
	return EventTypeContractSubmitted
}

// ContractFinanceApprovedEvent is raised when finance approves a contract.
// For SALE contracts this doubles as the invoice-issued signal.
type ContractFinanceApprovedEvent struct {
	shared.BaseDomainEvent
	ContractID     uuid.UUID  `json:"contract_id"`
	ContractNumber string     `json:"contract_number"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	SaleType       SaleType   `json:"sale_type"`
	Status         Status     `json:"status"`
	ApprovedBy     *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	EffectiveFrom  *time.Time `json:"effective_from,omitempty"`
	EffectiveTo    *time.Time `json:"effective_to,omitempty"`
}

// NewContractFinanceApprovedEvent creates a new ContractFinanceApprovedEvent
func NewContractFinanceApprovedEvent(c *Contract) *ContractFinanceApprovedEvent {
	return &ContractFinanceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContractFinanceApproved, AggregateTypeContract, c.ID, c.TenantID),
		ContractID:      c.ID,
		ContractNumber:  c.ContractNumber,
		CustomerID:      c.CustomerID,
		SaleType:        c.SaleType,
		Status:          c.Status,
		ApprovedBy:      c.FinanceApprovedBy,
		ApprovedAt:      c.FinanceApprovedAt,
		EffectiveFrom:   c.EffectiveFrom,
		EffectiveTo:     c.EffectiveTo,
	}
}

// EventType returns the event type name
func (e *ContractFinanceApprovedEvent) EventType() string {
	return EventTypeContractFinanceApproved
}

// ContractRejectedEvent is raised when finance rejects a contract
type ContractRejectedEvent struct {
	shared.BaseDomainEvent
	ContractID     uuid.UUID `json:"contract_id"`
	ContractNumber string    `json:"contract_number"`
	RejectedBy     uuid.UUID `json:"rejected_by"`
	Reason         string    `json:"reason"`
}

// NewContractRejectedEvent creates a new ContractRejectedEvent
func NewContractRejectedEvent(c *Contract, rejectedBy uuid.UUID) *ContractRejectedEvent {
	return &ContractRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContractRejected, AggregateTypeContract, c.ID, c.TenantID),
		ContractID:      c.ID,
		ContractNumber:  c.ContractNumber,
		RejectedBy:      rejectedBy,
		Reason:          c.RejectedReason,
	}
}

// EventType returns the event type name
func (e *ContractRejectedEvent) EventType() string {
	return EventTypeContractRejected
}

// ContractCompletedEvent is raised when a contract's final settlement
// closes it out
type ContractCompletedEvent struct {
	shared.BaseDomainEvent
	ContractID     uuid.UUID       `json:"contract_id"`
	ContractNumber string          `json:"contract_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	GrossTotal     decimal.Decimal `json:"gross_total"`
	NetTotal       decimal.Decimal `json:"net_total"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// NewContractCompletedEvent creates a new ContractCompletedEvent
func NewContractCompletedEvent(c *Contract) *ContractCompletedEvent {
	return &ContractCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContractCompleted, AggregateTypeContract, c.ID, c.TenantID),
		ContractID:      c.ID,
		ContractNumber:  c.ContractNumber,
		CustomerID:      c.CustomerID,
		GrossTotal:      c.GrossTotal,
		NetTotal:        c.NetTotal,
		CompletedAt:     c.CompletedAt,
	}
}

// EventType returns the event type name
func (e *ContractCompletedEvent) EventType() string {
	return EventTypeContractCompleted
}
