package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormContractRepository implements contract.Repository using GORM
type GormContractRepository struct {
	db *gorm.DB
}

// NewGormContractRepository creates a new GormContractRepository
func NewGormContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db}
}

// FindByIDForTenant finds a contract by ID within a tenant
func (r *GormContractRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*contract.Contract, error) {
	var model models.ContractModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByNumber finds a contract by its human-readable number
func (r *GormContractRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, contractNumber string) (*contract.Contract, error) {
	var model models.ContractModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND contract_number = ?", tenantID, contractNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAllForTenant finds contracts for a tenant with filtering
func (r *GormContractRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]contract.Contract, error) {
	var rows []models.ContractModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.ContractModel{}).
			Preload("Items").
			Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	contracts := make([]contract.Contract, len(rows))
	for i := range rows {
		c, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		contracts[i] = *c
	}
	return contracts, nil
}

// CountForTenant counts contracts for a tenant with optional filters
func (r *GormContractRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.ContractModel{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a contract and its items
func (r *GormContractRepository) Save(ctx context.Context, c *contract.Contract) error {
	model, err := models.ContractModelFromDomain(c)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(model).Error; err != nil {
			return translateDuplicate(err)
		}
		return saveContractItems(tx, model)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormContractRepository) SaveWithLock(ctx context.Context, c *contract.Contract) error {
	model, err := models.ContractModelFromDomain(c)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.ContractModel{}).
			Where("id = ?", model.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if currentVersion != model.Version {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The contract has been modified by another user")
		}

		model.Version++
		model.UpdatedAt = time.Now()

		result := tx.Model(&models.ContractModel{}).
			Where("id = ? AND version = ?", model.ID, currentVersion).
			Updates(map[string]interface{}{
				"status":               model.Status,
				"monthly_rent":         model.MonthlyRent,
				"discount_percent":     model.DiscountPercent,
				"advance_amount":       model.AdvanceAmount,
				"advance_mode":         model.AdvanceMode,
				"advance_balance":      model.AdvanceBalance,
				"effective_from":       model.EffectiveFrom,
				"effective_to":         model.EffectiveTo,
				"billing_cycle":        model.BillingCycle,
				"billing_cycle_days":   model.BillingCycleDays,
				"lease_tenure":         model.LeaseTenure,
				"gross_total":          model.GrossTotal,
				"net_total":            model.NetTotal,
				"employee_approved_by": model.EmployeeApprovedBy,
				"employee_approved_at": model.EmployeeApprovedAt,
				"finance_approved_by":  model.FinanceApprovedBy,
				"finance_approved_at":  model.FinanceApprovedAt,
				"rejected_reason":      model.RejectedReason,
				"rejected_at":          model.RejectedAt,
				"cancel_reason":        model.CancelReason,
				"cancelled_at":         model.CancelledAt,
				"completed_at":         model.CompletedAt,
				"version":              model.Version,
				"updated_at":           model.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The contract has been modified by another user")
		}

		// Mirror the new version back onto the aggregate
		c.Version = model.Version

		return saveContractItems(tx, model)
	})
}

// saveContractItems replaces the contract's item rows with the current set
func saveContractItems(tx *gorm.DB, model *models.ContractModel) error {
	currentItemIDs := make([]uuid.UUID, len(model.Items))
	for i, item := range model.Items {
		currentItemIDs[i] = item.ID
	}

	if len(currentItemIDs) > 0 {
		if err := tx.Where("contract_id = ? AND id NOT IN ?", model.ID, currentItemIDs).
			Delete(&models.ContractItemModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("contract_id = ?", model.ID).
			Delete(&models.ContractItemModel{}).Error; err != nil {
			return err
		}
	}

	for i := range model.Items {
		model.Items[i].ContractID = model.ID
		if err := tx.Save(&model.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteForTenant deletes a contract and its items
func (r *GormContractRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.ContractModel
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if err := tx.Where("contract_id = ?", id).Delete(&models.ContractItemModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.ContractModel{}, "tenant_id = ? AND id = ?", tenantID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// GenerateContractNumber generates the next year-scoped contract number
// for a tenant. Format: INV-YYYY-NNNNN (e.g., INV-2026-00001)
func (r *GormContractRepository) GenerateContractNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("INV-%d-", year)

	var last models.ContractModel
	err := r.db.WithContext(ctx).
		Model(&models.ContractModel{}).
		Where("tenant_id = ? AND contract_number LIKE ?", tenantID, prefix+"%").
		Order("contract_number DESC").
		First(&last).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && last.ContractNumber != "" {
		parts := strings.Split(last.ContractNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// applyFilter applies filter options to the query
func (r *GormContractRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormContractRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("contract_number ILIKE ? OR customer_name ILIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "sale_type":
			query = query.Where("sale_type = ?", value)
		case "lifecycle_type":
			query = query.Where("lifecycle_type = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "branch_id":
			query = query.Where("branch_id = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}

	return query
}

// translateDuplicate maps database unique violations onto the domain's
// ALREADY_EXISTS error so callers can retry with a fresh number.
func translateDuplicate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return shared.ErrAlreadyExists
	}
	// SQLite reports unique violations as plain strings
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return shared.ErrAlreadyExists
	}
	return err
}

// Ensure GormContractRepository implements contract.Repository
var _ contract.Repository = (*GormContractRepository)(nil)
