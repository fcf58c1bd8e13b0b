package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
)

// AllocationModel is the persistence model for the Allocation aggregate root.
type AllocationModel struct {
	TenantAggregateModel
	ContractID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ContractItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	UnitID         uuid.UUID `gorm:"type:uuid;not null;index"`
	SerialNumber   string    `gorm:"type:varchar(100)"`

	InitialBWA4    int64 `gorm:"not null;default:0"`
	InitialBWA3    int64 `gorm:"not null;default:0"`
	InitialColorA4 int64 `gorm:"not null;default:0"`
	InitialColorA3 int64 `gorm:"not null;default:0"`

	CurrentBWA4    int64 `gorm:"not null;default:0"`
	CurrentBWA3    int64 `gorm:"not null;default:0"`
	CurrentColorA4 int64 `gorm:"not null;default:0"`
	CurrentColorA3 int64 `gorm:"not null;default:0"`

	Status     allocation.Status `gorm:"type:varchar(20);not null;default:'ALLOCATED';index"`
	ReturnedAt *time.Time
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// ToDomain converts the persistence model to a domain Allocation entity.
func (m *AllocationModel) ToDomain() *allocation.Allocation {
	return &allocation.Allocation{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ContractID:          m.ContractID,
		ContractItemID:      m.ContractItemID,
		UnitID:              m.UnitID,
		SerialNumber:        m.SerialNumber,
		InitialReadings: valueobject.NewMeterReading(
			m.InitialBWA4, m.InitialBWA3, m.InitialColorA4, m.InitialColorA3),
		CurrentReadings: valueobject.NewMeterReading(
			m.CurrentBWA4, m.CurrentBWA3, m.CurrentColorA4, m.CurrentColorA3),
		Status:     m.Status,
		ReturnedAt: m.ReturnedAt,
	}
}

// FromDomain populates the persistence model from a domain Allocation entity.
func (m *AllocationModel) FromDomain(a *allocation.Allocation) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.ContractID = a.ContractID
	m.ContractItemID = a.ContractItemID
	m.UnitID = a.UnitID
	m.SerialNumber = a.SerialNumber
	m.InitialBWA4 = a.InitialReadings.BWA4
	m.InitialBWA3 = a.InitialReadings.BWA3
	m.InitialColorA4 = a.InitialReadings.ColorA4
	m.InitialColorA3 = a.InitialReadings.ColorA3
	m.CurrentBWA4 = a.CurrentReadings.BWA4
	m.CurrentBWA3 = a.CurrentReadings.BWA3
	m.CurrentColorA4 = a.CurrentReadings.ColorA4
	m.CurrentColorA3 = a.CurrentReadings.ColorA3
	m.Status = a.Status
	m.ReturnedAt = a.ReturnedAt
}

// AllocationModelFromDomain creates a new persistence model from a domain Allocation entity.
func AllocationModelFromDomain(a *allocation.Allocation) *AllocationModel {
	m := &AllocationModel{}
	m.FromDomain(a)
	return m
}
