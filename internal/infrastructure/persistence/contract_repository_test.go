package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ContractModel{},
		&models.ContractItemModel{},
		&models.MeterUsageModel{},
		&models.AllocationModel{},
	)
	require.NoError(t, err)

	return db
}

func createQuotation(t *testing.T, tenantID uuid.UUID, number string) *contract.Contract {
	t.Helper()
	c, err := contract.NewQuotation(tenantID, number, uuid.New(), uuid.New(),
		"Vertex Imaging", contract.SaleTypeRent, contract.PricingFixedCombo)
	require.NoError(t, err)

	err = c.SetMonetaryTerms(
		decimal.NewFromInt(500), decimal.NewFromInt(10),
		decimal.NewFromInt(2000), contract.AdvanceModeTransfer)
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err = c.SetSchedule(&from, nil, contract.BillingCycleMonthly, 0, 0)
	require.NoError(t, err)

	unitID := uuid.New()
	_, err = c.AddProductItem("Production copier", &unitID, "SN-9001",
		valueobject.NewMeterReading(5000, 0, 1000, 0))
	require.NoError(t, err)

	_, err = c.AddPricingItem("Pricing policy", contract.PricingRule{
		Kind:          contract.PricingFixedCombo,
		CombinedLimit: 1000,
		CombinedRate:  decimal.RequireFromString("0.40"),
	})
	require.NoError(t, err)

	return c
}

func TestGormContractRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormContractRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("round-trips a quotation with items and pricing rule", func(t *testing.T) {
		c := createQuotation(t, tenantID, "INV-2026-00001")
		require.NoError(t, repo.Save(ctx, c))

		found, err := repo.FindByIDForTenant(ctx, tenantID, c.ID)
		require.NoError(t, err)

		assert.Equal(t, c.ContractNumber, found.ContractNumber)
		assert.Equal(t, contract.StatusDraft, found.Status)
		assert.Equal(t, contract.SaleTypeRent, found.SaleType)
		assert.True(t, found.MonthlyRent.Equal(decimal.NewFromInt(500)))
		require.Len(t, found.Items, 2)

		var product, pricing *contract.Item
		for i := range found.Items {
			switch found.Items[i].Role {
			case contract.ItemRoleProduct:
				product = &found.Items[i]
			case contract.ItemRolePricing:
				pricing = &found.Items[i]
			}
		}
		require.NotNil(t, product)
		require.NotNil(t, pricing)
		assert.Equal(t, "SN-9001", product.SerialNumber)
		assert.Equal(t, int64(5000), product.InitialReadings.BWA4)
		require.NotNil(t, pricing.Rule)
		assert.Equal(t, int64(1000), pricing.Rule.CombinedLimit)
		assert.True(t, pricing.Rule.CombinedRate.Equal(decimal.RequireFromString("0.40")))
	})

	t.Run("returns not found for foreign tenant", func(t *testing.T) {
		c := createQuotation(t, tenantID, "INV-2026-00002")
		require.NoError(t, repo.Save(ctx, c))

		_, err := repo.FindByIDForTenant(ctx, uuid.New(), c.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds by contract number", func(t *testing.T) {
		c := createQuotation(t, tenantID, "INV-2026-00003")
		require.NoError(t, repo.Save(ctx, c))

		found, err := repo.FindByNumber(ctx, tenantID, "INV-2026-00003")
		require.NoError(t, err)
		assert.Equal(t, c.ID, found.ID)
	})

	t.Run("rejects duplicate contract number within tenant", func(t *testing.T) {
		first := createQuotation(t, tenantID, "INV-2026-00010")
		require.NoError(t, repo.Save(ctx, first))

		dup := createQuotation(t, tenantID, "INV-2026-00010")
		err := repo.Save(ctx, dup)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("allows the same number under another tenant", func(t *testing.T) {
		otherTenant := uuid.New()
		c := createQuotation(t, otherTenant, "INV-2026-00010")
		assert.NoError(t, repo.Save(ctx, c))
	})
}

func TestGormContractRepository_SaveWithLock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormContractRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("persists lifecycle transition and bumps version", func(t *testing.T) {
		c := createQuotation(t, tenantID, "INV-2026-00020")
		require.NoError(t, repo.Save(ctx, c))

		require.NoError(t, c.SubmitForApproval(uuid.New()))
		require.NoError(t, repo.SaveWithLock(ctx, c))

		found, err := repo.FindByIDForTenant(ctx, tenantID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, contract.StatusEmployeeApproved, found.Status)
		assert.Equal(t, 2, found.Version)
	})

	t.Run("rejects stale version", func(t *testing.T) {
		c := createQuotation(t, tenantID, "INV-2026-00021")
		require.NoError(t, repo.Save(ctx, c))

		stale, err := repo.FindByIDForTenant(ctx, tenantID, c.ID)
		require.NoError(t, err)

		require.NoError(t, c.SubmitForApproval(uuid.New()))
		require.NoError(t, repo.SaveWithLock(ctx, c))

		require.NoError(t, stale.SubmitForApproval(uuid.New()))
		err = repo.SaveWithLock(ctx, stale)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
	})
}

func TestGormContractRepository_FindAllForTenant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormContractRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	for i, number := range []string{"INV-2026-00030", "INV-2026-00031", "INV-2026-00032"} {
		c := createQuotation(t, tenantID, number)
		if i == 2 {
			require.NoError(t, c.SubmitForApproval(uuid.New()))
		}
		require.NoError(t, repo.Save(ctx, c))
	}

	t.Run("lists all for tenant", func(t *testing.T) {
		filter := shared.DefaultFilter()
		found, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Len(t, found, 3)

		count, err := repo.CountForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("filters by status", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters = map[string]interface{}{"status": string(contract.StatusEmployeeApproved)}

		found, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "INV-2026-00032", found[0].ContractNumber)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 2
		filter.OrderBy = "contract_number"
		filter.OrderDir = "asc"

		page1, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, page1, 2)

		filter.Page = 2
		page2, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, "INV-2026-00032", page2[0].ContractNumber)
	})

	t.Run("ignores other tenants", func(t *testing.T) {
		found, err := repo.FindAllForTenant(ctx, uuid.New(), shared.DefaultFilter())
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestGormContractRepository_GenerateContractNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormContractRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	year := time.Now().Year()

	t.Run("starts the yearly sequence at one", func(t *testing.T) {
		number, err := repo.GenerateContractNumber(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, contractNumberFor(year, 1), number)
	})

	t.Run("continues from the highest stored number", func(t *testing.T) {
		c := createQuotation(t, tenantID, contractNumberFor(year, 41))
		require.NoError(t, repo.Save(ctx, c))

		number, err := repo.GenerateContractNumber(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, contractNumberFor(year, 42), number)
	})

	t.Run("sequences are tenant scoped", func(t *testing.T) {
		number, err := repo.GenerateContractNumber(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, contractNumberFor(year, 1), number)
	})
}

func contractNumberFor(year, seq int) string {
	return fmt.Sprintf("INV-%d-%05d", year, seq)
}

func TestGormContractRepository_DeleteForTenant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormContractRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("removes the contract and its items", func(t *testing.T) {
		c := createQuotation(t, tenantID, "INV-2026-00050")
		require.NoError(t, repo.Save(ctx, c))

		require.NoError(t, repo.DeleteForTenant(ctx, tenantID, c.ID))

		_, err := repo.FindByIDForTenant(ctx, tenantID, c.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var itemCount int64
		require.NoError(t, db.Model(&models.ContractItemModel{}).
			Where("contract_id = ?", c.ID).Count(&itemCount).Error)
		assert.Zero(t, itemCount)
	})

	t.Run("returns not found for unknown contract", func(t *testing.T) {
		err := repo.DeleteForTenant(ctx, tenantID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
