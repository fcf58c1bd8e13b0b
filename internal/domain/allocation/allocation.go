package allocation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
)

// Status is the lifecycle state of an allocation
type Status string

const (
	StatusAllocated Status = "ALLOCATED"
	StatusReturned  Status = "RETURNED"
)

// Allocation binds a specific physical unit to a contract line item. It
// is created at finance-approval time and carries the baseline meter
// readings every later usage delta is anchored on.
type Allocation struct {
	shared.TenantAggregateRoot
	ContractID     uuid.UUID
	ContractItemID uuid.UUID
	UnitID         uuid.UUID
	SerialNumber   string

	// InitialReadings is the meter baseline at allocation time. A3
	// baselines default to zero when the unit reports A4 counters only.
	InitialReadings valueobject.MeterReading

	// CurrentReadings mirrors the latest usage record; informational only.
	CurrentReadings valueobject.MeterReading

	Status     Status
	ReturnedAt *time.Time
}

// NewAllocation creates an allocation in the ALLOCATED state
func NewAllocation(tenantID, contractID, contractItemID, unitID uuid.UUID, serialNumber string, initial valueobject.MeterReading) (*Allocation, error) {
	if contractID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTRACT", "Contract ID cannot be empty")
	}
	if unitID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit ID cannot be empty")
	}
	if initial.HasNegative() {
		return nil, shared.NewDomainError("INVALID_READING", "Baseline meter readings cannot be negative")
	}

	a := &Allocation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ContractID:          contractID,
		ContractItemID:      contractItemID,
		UnitID:              unitID,
		SerialNumber:        serialNumber,
		InitialReadings:     initial,
		CurrentReadings:     initial,
		Status:              StatusAllocated,
	}

	return a, nil
}

// UpdateCurrentReadings mirrors the latest recorded meter counters
func (a *Allocation) UpdateCurrentReadings(current valueobject.MeterReading) {
	a.CurrentReadings = current
	a.UpdatedAt = time.Now()
}

// MarkReturned transitions the allocation to RETURNED when the contract
// completes. Returning an already-returned unit is a state conflict.
func (a *Allocation) MarkReturned() error {
	if a.Status == StatusReturned {
		return shared.NewDomainError("STATE_CONFLICT", fmt.Sprintf("Unit %s is already returned", a.UnitID))
	}

	now := time.Now()
	a.Status = StatusReturned
	a.ReturnedAt = &now
	a.UpdatedAt = now

	a.AddDomainEvent(NewUnitReturnedEvent(a))

	return nil
}

// IsAllocated reports whether the unit is still out with the customer
func (a *Allocation) IsAllocated() bool {
	return a.Status == StatusAllocated
}
