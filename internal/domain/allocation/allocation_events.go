package allocation

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
)

// AggregateTypeAllocation is the aggregate type name used in events
const AggregateTypeAllocation = "Allocation"

// Event type constants
const (
	EventTypeUnitAllocated = "UnitAllocated"
	EventTypeUnitReturned  = "UnitReturned"
)

// UnitAllocatedEvent notifies the inventory service that a unit left
// stock under a finance-approved contract.
type UnitAllocatedEvent struct {
	shared.BaseDomainEvent
	UnitID     uuid.UUID `json:"unit_id"`
	BillType   string    `json:"bill_type"`
	ContractID uuid.UUID `json:"contract_id"`
	ApprovedBy uuid.UUID `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

// NewUnitAllocatedEvent creates a new UnitAllocatedEvent
func NewUnitAllocatedEvent(a *Allocation, billType string, approvedBy uuid.UUID, approvedAt time.Time) *UnitAllocatedEvent {
	return &UnitAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUnitAllocated, AggregateTypeAllocation, a.ID, a.TenantID),
		UnitID:          a.UnitID,
		BillType:        billType,
		ContractID:      a.ContractID,
		ApprovedBy:      approvedBy,
		ApprovedAt:      approvedAt,
	}
}

// EventType returns the event type name
func (e *UnitAllocatedEvent) EventType() string {
	return EventTypeUnitAllocated
}

// UnitReturnedEvent notifies the inventory service that a unit came back
// into stock after contract completion.
type UnitReturnedEvent struct {
	shared.BaseDomainEvent
	UnitID     uuid.UUID `json:"unit_id"`
	ContractID uuid.UUID `json:"contract_id"`
	ReturnedAt time.Time `json:"returned_at"`
}

// NewUnitReturnedEvent creates a new UnitReturnedEvent
func NewUnitReturnedEvent(a *Allocation) *UnitReturnedEvent {
	var returnedAt time.Time
	if a.ReturnedAt != nil {
		returnedAt = *a.ReturnedAt
	}
	return &UnitReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUnitReturned, AggregateTypeAllocation, a.ID, a.TenantID),
		UnitID:          a.UnitID,
		ContractID:      a.ContractID,
		ReturnedAt:      returnedAt,
	}
}

// EventType returns the event type name
func (e *UnitReturnedEvent) EventType() string {
	return EventTypeUnitReturned
}
