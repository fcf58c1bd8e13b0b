package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAllocationRepository implements allocation.Repository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByIDForTenant finds an allocation by ID within a tenant
func (r *GormAllocationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*allocation.Allocation, error) {
	var model models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByContract returns every allocation made under a contract
func (r *GormAllocationRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*allocation.Allocation, error) {
	var rows []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND contract_id = ?", tenantID, contractID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	allocations := make([]*allocation.Allocation, len(rows))
	for i := range rows {
		allocations[i] = rows[i].ToDomain()
	}
	return allocations, nil
}

// FindByContractItem finds the allocation for a specific contract line
func (r *GormAllocationRepository) FindByContractItem(ctx context.Context, tenantID, contractItemID uuid.UUID) (*allocation.Allocation, error) {
	var model models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND contract_item_id = ?", tenantID, contractItemID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByUnit finds the live allocation holding a physical unit
func (r *GormAllocationRepository) FindActiveByUnit(ctx context.Context, tenantID, unitID uuid.UUID) (*allocation.Allocation, error) {
	var model models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND unit_id = ? AND status = ?", tenantID, unitID, allocation.StatusAllocated).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists an allocation
func (r *GormAllocationRepository) Save(ctx context.Context, a *allocation.Allocation) error {
	model := models.AllocationModelFromDomain(a)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormAllocationRepository implements allocation.Repository
var _ allocation.Repository = (*GormAllocationRepository)(nil)
