package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MeterUsageModel is the persistence model for the MeterUsage entity.
// Absolute counters and per-period deltas are flattened into plain
// integer columns so period reports never need to parse documents.
type MeterUsageModel struct {
	BaseModel
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ContractID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_meter_usage_contract_period,priority:1"`

	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_meter_usage_contract_period,priority:2"`
	PeriodEnd   time.Time `gorm:"not null;uniqueIndex:idx_meter_usage_contract_period,priority:3"`

	ReadingBWA4    int64 `gorm:"not null;default:0"`
	ReadingBWA3    int64 `gorm:"not null;default:0"`
	ReadingColorA4 int64 `gorm:"not null;default:0"`
	ReadingColorA3 int64 `gorm:"not null;default:0"`

	DeltaBWA4    int64 `gorm:"not null;default:0"`
	DeltaBWA3    int64 `gorm:"not null;default:0"`
	DeltaColorA4 int64 `gorm:"not null;default:0"`
	DeltaColorA3 int64 `gorm:"not null;default:0"`

	ExcessUsage     int64           `gorm:"not null;default:0"`
	ExcessCharge    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PeriodRent      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AdvanceAdjusted decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PayableTotal    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	PhotoURL   string     `gorm:"type:varchar(500)"`
	Final      bool       `gorm:"not null;default:false"`
	RecordedBy *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (MeterUsageModel) TableName() string {
	return "meter_usages"
}

// ToDomain converts the persistence model to a domain MeterUsage entity.
func (m *MeterUsageModel) ToDomain() *metering.MeterUsage {
	return &metering.MeterUsage{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:    m.TenantID,
		ContractID:  m.ContractID,
		PeriodStart: m.PeriodStart,
		PeriodEnd:   m.PeriodEnd,
		Readings: valueobject.NewMeterReading(
			m.ReadingBWA4, m.ReadingBWA3, m.ReadingColorA4, m.ReadingColorA3),
		Deltas: valueobject.NewMeterReading(
			m.DeltaBWA4, m.DeltaBWA3, m.DeltaColorA4, m.DeltaColorA3),
		ExcessUsage:     m.ExcessUsage,
		ExcessCharge:    m.ExcessCharge,
		PeriodRent:      m.PeriodRent,
		AdvanceAdjusted: m.AdvanceAdjusted,
		PayableTotal:    m.PayableTotal,
		PhotoURL:        m.PhotoURL,
		Final:           m.Final,
		RecordedBy:      m.RecordedBy,
	}
}

// FromDomain populates the persistence model from a domain MeterUsage entity.
func (m *MeterUsageModel) FromDomain(u *metering.MeterUsage) {
	m.FromDomainBaseEntity(u.BaseEntity)
	m.TenantID = u.TenantID
	m.ContractID = u.ContractID
	m.PeriodStart = u.PeriodStart
	m.PeriodEnd = u.PeriodEnd
	m.ReadingBWA4 = u.Readings.BWA4
	m.ReadingBWA3 = u.Readings.BWA3
	m.ReadingColorA4 = u.Readings.ColorA4
	m.ReadingColorA3 = u.Readings.ColorA3
	m.DeltaBWA4 = u.Deltas.BWA4
	m.DeltaBWA3 = u.Deltas.BWA3
	m.DeltaColorA4 = u.Deltas.ColorA4
	m.DeltaColorA3 = u.Deltas.ColorA3
	m.ExcessUsage = u.ExcessUsage
	m.ExcessCharge = u.ExcessCharge
	m.PeriodRent = u.PeriodRent
	m.AdvanceAdjusted = u.AdvanceAdjusted
	m.PayableTotal = u.PayableTotal
	m.PhotoURL = u.PhotoURL
	m.Final = u.Final
	m.RecordedBy = u.RecordedBy
}

// MeterUsageModelFromDomain creates a new persistence model from a domain MeterUsage entity.
func MeterUsageModelFromDomain(u *metering.MeterUsage) *MeterUsageModel {
	m := &MeterUsageModel{}
	m.FromDomain(u)
	return m
}
