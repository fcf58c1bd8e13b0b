package metering

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockContractRepository is a mock implementation of contract.Repository
type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*contract.Contract, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contract.Contract), args.Error(1)
}

func (m *MockContractRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, contractNumber string) (*contract.Contract, error) {
	args := m.Called(ctx, tenantID, contractNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contract.Contract), args.Error(1)
}

func (m *MockContractRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]contract.Contract, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contract.Contract), args.Error(1)
}

func (m *MockContractRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContractRepository) Save(ctx context.Context, c *contract.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContractRepository) SaveWithLock(ctx context.Context, c *contract.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContractRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockContractRepository) GenerateContractNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockUsageRepository is a mock implementation of metering.Repository
type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*metering.MeterUsage, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.MeterUsage), args.Error(1)
}

func (m *MockUsageRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]metering.MeterUsage, error) {
	args := m.Called(ctx, tenantID, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metering.MeterUsage), args.Error(1)
}

func (m *MockUsageRepository) FindLatestForContract(ctx context.Context, tenantID, contractID uuid.UUID) (*metering.MeterUsage, error) {
	args := m.Called(ctx, tenantID, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.MeterUsage), args.Error(1)
}

func (m *MockUsageRepository) CountForContract(ctx context.Context, tenantID, contractID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, contractID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRepository) ExistsForPeriod(ctx context.Context, tenantID, contractID uuid.UUID, periodStart, periodEnd time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, contractID, periodStart, periodEnd)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsageRepository) Save(ctx context.Context, u *metering.MeterUsage) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

// MockAllocationRepository is a mock implementation of allocation.Repository
type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*allocation.Allocation, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*allocation.Allocation, error) {
	args := m.Called(ctx, tenantID, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindByContractItem(ctx context.Context, tenantID, contractItemID uuid.UUID) (*allocation.Allocation, error) {
	args := m.Called(ctx, tenantID, contractItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindActiveByUnit(ctx context.Context, tenantID, unitID uuid.UUID) (*allocation.Allocation, error) {
	args := m.Called(ctx, tenantID, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) Save(ctx context.Context, a *allocation.Allocation) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// CapturingPublisher records every published event
type CapturingPublisher struct {
	Events []shared.DomainEvent
}

func (p *CapturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.Events = append(p.Events, events...)
	return nil
}

func (p *CapturingPublisher) TypesSeen() []string {
	types := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		types = append(types, e.EventType())
	}
	return types
}
