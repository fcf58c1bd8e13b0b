package metering

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeMeterUsage = "MeterUsage"

// Event type constants
const (
	EventTypeInvoiceCreated = "InvoiceCreated"
	EventTypeUsageRecorded  = "UsageRecorded"
)

// UsageRecordedEvent is raised when a billing period's meter reading is
// recorded against a contract
type UsageRecordedEvent struct {
	shared.BaseDomainEvent
	UsageID      uuid.UUID       `json:"usage_id"`
	ContractID   uuid.UUID       `json:"contract_id"`
	PeriodStart  time.Time       `json:"period_start"`
	PeriodEnd    time.Time       `json:"period_end"`
	ExcessUsage  int64           `json:"excess_usage"`
	ExcessCharge decimal.Decimal `json:"excess_charge"`
	PayableTotal decimal.Decimal `json:"payable_total"`
	Final        bool            `json:"final"`
}

// NewUsageRecordedEvent creates a new UsageRecordedEvent
func NewUsageRecordedEvent(u *MeterUsage) *UsageRecordedEvent {
	return &UsageRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUsageRecorded, AggregateTypeMeterUsage, u.ID, u.TenantID),
		UsageID:         u.ID,
		ContractID:      u.ContractID,
		PeriodStart:     u.PeriodStart,
		PeriodEnd:       u.PeriodEnd,
		ExcessUsage:     u.ExcessUsage,
		ExcessCharge:    u.ExcessCharge,
		PayableTotal:    u.PayableTotal,
		Final:           u.Final,
	}
}

// EventType returns the event type name
func (e *UsageRecordedEvent) EventType() string {
	return EventTypeUsageRecorded
}

// InvoiceCreatedEvent is raised when a period invoice (or the final
// consolidated invoice) becomes payable
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	ContractID     uuid.UUID       `json:"contract_id"`
	ContractNumber string          `json:"contract_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	Amount         decimal.Decimal `json:"amount"`
	Final          bool            `json:"final"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(u *MeterUsage, contractNumber string, customerID uuid.UUID) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeMeterUsage, u.ID, u.TenantID),
		ContractID:      u.ContractID,
		ContractNumber:  contractNumber,
		CustomerID:      customerID,
		PeriodStart:     u.PeriodStart,
		PeriodEnd:       u.PeriodEnd,
		Amount:          u.PayableTotal,
		Final:           u.Final,
	}
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}
