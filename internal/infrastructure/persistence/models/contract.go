package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ContractModel is the persistence model for the Contract aggregate root.
type ContractModel struct {
	AggregateModel
	TenantID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_contract_tenant_number,priority:1"`
	CreatedBy      *uuid.UUID `gorm:"type:uuid;index"`
	ContractNumber string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_contract_tenant_number,priority:2"`
	BranchID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerName   string     `gorm:"type:varchar(200);not null"`

	SaleType      contract.SaleType      `gorm:"type:varchar(20);not null"`
	LifecycleType contract.LifecycleType `gorm:"type:varchar(20);not null"`
	Status        contract.Status        `gorm:"type:varchar(30);not null;default:'DRAFT';index"`
	PricingModel  contract.PricingModel  `gorm:"type:varchar(20);not null"`
	LeaseKind     contract.LeaseKind     `gorm:"type:varchar(20)"`

	MonthlyRent     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountPercent decimal.Decimal      `gorm:"type:decimal(7,4);not null;default:0"`
	AdvanceAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	AdvanceMode     contract.AdvanceMode `gorm:"type:varchar(20)"`
	AdvanceBalance  decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`

	EffectiveFrom    *time.Time            `gorm:"index"`
	EffectiveTo      *time.Time            `gorm:"index"`
	BillingCycle     contract.BillingCycle `gorm:"type:varchar(20)"`
	BillingCycleDays int                   `gorm:"not null;default:0"`
	LeaseTenure      int                   `gorm:"not null;default:0"`

	GrossTotal decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	NetTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	Items []ContractItemModel `gorm:"foreignKey:ContractID;references:ID"`

	EmployeeApprovedBy *uuid.UUID `gorm:"type:uuid"`
	EmployeeApprovedAt *time.Time
	FinanceApprovedBy  *uuid.UUID `gorm:"type:uuid"`
	FinanceApprovedAt  *time.Time
	RejectedReason     string `gorm:"type:varchar(500)"`
	RejectedAt         *time.Time
	CancelReason       string `gorm:"type:varchar(500)"`
	CancelledAt        *time.Time
	CompletedAt        *time.Time
}

// TableName returns the table name for GORM
func (ContractModel) TableName() string {
	return "contracts"
}

// ToDomain converts the persistence model to a domain Contract entity.
func (m *ContractModel) ToDomain() (*contract.Contract, error) {
	c := &contract.Contract{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		ContractNumber:     m.ContractNumber,
		BranchID:           m.BranchID,
		CustomerID:         m.CustomerID,
		CustomerName:       m.CustomerName,
		SaleType:           m.SaleType,
		LifecycleType:      m.LifecycleType,
		Status:             m.Status,
		PricingModel:       m.PricingModel,
		LeaseKind:          m.LeaseKind,
		MonthlyRent:        m.MonthlyRent,
		DiscountPercent:    m.DiscountPercent,
		AdvanceAmount:      m.AdvanceAmount,
		AdvanceMode:        m.AdvanceMode,
		AdvanceBalance:     m.AdvanceBalance,
		EffectiveFrom:      m.EffectiveFrom,
		EffectiveTo:        m.EffectiveTo,
		BillingCycle:       m.BillingCycle,
		BillingCycleDays:   m.BillingCycleDays,
		LeaseTenure:        m.LeaseTenure,
		GrossTotal:         m.GrossTotal,
		NetTotal:           m.NetTotal,
		EmployeeApprovedBy: m.EmployeeApprovedBy,
		EmployeeApprovedAt: m.EmployeeApprovedAt,
		FinanceApprovedBy:  m.FinanceApprovedBy,
		FinanceApprovedAt:  m.FinanceApprovedAt,
		RejectedReason:     m.RejectedReason,
		RejectedAt:         m.RejectedAt,
		CancelReason:       m.CancelReason,
		CancelledAt:        m.CancelledAt,
		CompletedAt:        m.CompletedAt,
		Items:              make([]contract.Item, len(m.Items)),
	}
	for i := range m.Items {
		item, err := m.Items[i].ToDomain()
		if err != nil {
			return nil, err
		}
		c.Items[i] = *item
	}
	return c, nil
}

// FromDomain populates the persistence model from a domain Contract entity.
func (m *ContractModel) FromDomain(c *contract.Contract) error {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.TenantID = c.TenantID
	m.CreatedBy = c.CreatedBy
	m.ContractNumber = c.ContractNumber
	m.BranchID = c.BranchID
	m.CustomerID = c.CustomerID
	m.CustomerName = c.CustomerName
	m.SaleType = c.SaleType
	m.LifecycleType = c.LifecycleType
	m.Status = c.Status
	m.PricingModel = c.PricingModel
	m.LeaseKind = c.LeaseKind
	m.MonthlyRent = c.MonthlyRent
	m.DiscountPercent = c.DiscountPercent
	m.AdvanceAmount = c.AdvanceAmount
	m.AdvanceMode = c.AdvanceMode
	m.AdvanceBalance = c.AdvanceBalance
	m.EffectiveFrom = c.EffectiveFrom
	m.EffectiveTo = c.EffectiveTo
	m.BillingCycle = c.BillingCycle
	m.BillingCycleDays = c.BillingCycleDays
	m.LeaseTenure = c.LeaseTenure
	m.GrossTotal = c.GrossTotal
	m.NetTotal = c.NetTotal
	m.EmployeeApprovedBy = c.EmployeeApprovedBy
	m.EmployeeApprovedAt = c.EmployeeApprovedAt
	m.FinanceApprovedBy = c.FinanceApprovedBy
	m.FinanceApprovedAt = c.FinanceApprovedAt
	m.RejectedReason = c.RejectedReason
	m.RejectedAt = c.RejectedAt
	m.CancelReason = c.CancelReason
	m.CancelledAt = c.CancelledAt
	m.CompletedAt = c.CompletedAt
	m.Items = make([]ContractItemModel, len(c.Items))
	for i := range c.Items {
		item, err := ContractItemModelFromDomain(&c.Items[i])
		if err != nil {
			return err
		}
		m.Items[i] = *item
	}
	return nil
}

// ContractModelFromDomain creates a new persistence model from a domain Contract entity.
func ContractModelFromDomain(c *contract.Contract) (*ContractModel, error) {
	m := &ContractModel{}
	if err := m.FromDomain(c); err != nil {
		return nil, err
	}
	return m, nil
}

// ContractItemModel is the persistence model for the contract Item entity.
// The pricing rule is stored as a jsonb document because its shape varies
// by pricing model.
type ContractItemModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key"`
	ContractID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	Role        contract.ItemRole `gorm:"type:varchar(20);not null"`
	Description string            `gorm:"type:varchar(500)"`

	UnitID         *uuid.UUID `gorm:"type:uuid;index"`
	SerialNumber   string     `gorm:"type:varchar(100)"`
	InitialBWA4    int64      `gorm:"not null;default:0"`
	InitialBWA3    int64      `gorm:"not null;default:0"`
	InitialColorA4 int64      `gorm:"not null;default:0"`
	InitialColorA3 int64      `gorm:"not null;default:0"`

	RuleJSON string `gorm:"column:rule;type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ContractItemModel) TableName() string {
	return "contract_items"
}

// ToDomain converts the persistence model to a domain Item entity.
func (m *ContractItemModel) ToDomain() (*contract.Item, error) {
	item := &contract.Item{
		ID:           m.ID,
		ContractID:   m.ContractID,
		Role:         m.Role,
		Description:  m.Description,
		UnitID:       m.UnitID,
		SerialNumber: m.SerialNumber,
		InitialReadings: valueobject.NewMeterReading(
			m.InitialBWA4, m.InitialBWA3, m.InitialColorA4, m.InitialColorA3),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.RuleJSON != "" {
		var rule contract.PricingRule
		if err := json.Unmarshal([]byte(m.RuleJSON), &rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pricing rule for item %s: %w", m.ID, err)
		}
		item.Rule = &rule
	}
	return item, nil
}

// FromDomain populates the persistence model from a domain Item entity.
func (m *ContractItemModel) FromDomain(item *contract.Item) error {
	m.ID = item.ID
	m.ContractID = item.ContractID
	m.Role = item.Role
	m.Description = item.Description
	m.UnitID = item.UnitID
	m.SerialNumber = item.SerialNumber
	m.InitialBWA4 = item.InitialReadings.BWA4
	m.InitialBWA3 = item.InitialReadings.BWA3
	m.InitialColorA4 = item.InitialReadings.ColorA4
	m.InitialColorA3 = item.InitialReadings.ColorA3
	m.CreatedAt = item.CreatedAt
	m.UpdatedAt = item.UpdatedAt
	if item.Rule != nil {
		data, err := json.Marshal(item.Rule)
		if err != nil {
			return fmt.Errorf("failed to marshal pricing rule for item %s: %w", item.ID, err)
		}
		m.RuleJSON = string(data)
	} else {
		m.RuleJSON = ""
	}
	return nil
}

// ContractItemModelFromDomain creates a new persistence model from a domain Item entity.
func ContractItemModelFromDomain(item *contract.Item) (*ContractItemModel, error) {
	m := &ContractItemModel{}
	if err := m.FromDomain(item); err != nil {
		return nil, err
	}
	return m, nil
}
