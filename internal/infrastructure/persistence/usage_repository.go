package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUsageRepository implements metering.Repository using GORM
type GormUsageRepository struct {
	db *gorm.DB
}

// NewGormUsageRepository creates a new GormUsageRepository
func NewGormUsageRepository(db *gorm.DB) *GormUsageRepository {
	return &GormUsageRepository{db: db}
}

// FindByIDForTenant finds a usage record by ID within a tenant
func (r *GormUsageRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*metering.MeterUsage, error) {
	var model models.MeterUsageModel
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

// FindByContract returns a contract's full usage history ordered by
// period start ascending
func (r *GormUsageRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]metering.MeterUsage, error) {
	var rows []models.MeterUsageModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND contract_id = ?", tenantID, contractID).
		Order("period_start ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]metering.MeterUsage, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, nil
}

// FindLatestForContract returns the most recent usage record for a contract
func (r *GormUsageRepository) FindLatestForContract(ctx context.Context, tenantID, contractID uuid.UUID) (*metering.MeterUsage, error) {
	var model models.MeterUsageModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND contract_id = ?", tenantID, contractID).
		Order("period_start DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountForContract counts the recorded billing periods of a contract
func (r *GormUsageRepository) CountForContract(ctx context.Context, tenantID, contractID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.MeterUsageModel{}).
		Where("tenant_id = ? AND contract_id = ?", tenantID, contractID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsForPeriod reports whether a record already covers the period
func (r *GormUsageRepository) ExistsForPeriod(ctx context.Context, tenantID, contractID uuid.UUID, periodStart, periodEnd time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.MeterUsageModel{}).
		Where("tenant_id = ? AND contract_id = ? AND period_start = ? AND period_end = ?",
			tenantID, contractID, periodStart, periodEnd).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save persists a usage record
func (r *GormUsageRepository) Save(ctx context.Context, u *metering.MeterUsage) error {
	model := models.MeterUsageModelFromDomain(u)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateDuplicate(err)
	}
	return nil
}

// Ensure GormUsageRepository implements metering.Repository
var _ metering.Repository = (*GormUsageRepository)(nil)
