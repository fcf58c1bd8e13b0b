package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createActiveContract builds a finance-approved rent contract effective
// from January 2026
func createActiveContract(t *testing.T, tenantID uuid.UUID, number string) *contract.Contract {
	t.Helper()
	c := createQuotation(t, tenantID, number)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.SetSchedule(&from, &to, contract.BillingCycleMonthly, 0, 0))
	require.NoError(t, c.SubmitForApproval(uuid.New()))
	require.NoError(t, c.FinanceApprove(uuid.New()))
	return c
}

func recordUsage(t *testing.T, c *contract.Contract, baseline, current valueobject.MeterReading, start, end time.Time) *metering.MeterUsage {
	t.Helper()
	usage, err := metering.NewMeterUsage(c, baseline, current, start, end, nil)
	require.NoError(t, err)
	return usage
}

func TestGormUsageRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	c := createActiveContract(t, tenantID, "INV-2026-00100")

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("round-trips a usage record", func(t *testing.T) {
		usage := recordUsage(t, c,
			valueobject.NewMeterReading(5000, 0, 1000, 0),
			valueobject.NewMeterReading(6000, 0, 1300, 0),
			start, end)
		usage.WithPhotoURL("https://storage.example/meters/jan.jpg")

		require.NoError(t, repo.Save(ctx, usage))

		found, err := repo.FindByIDForTenant(ctx, tenantID, usage.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, found.ContractID)
		assert.Equal(t, int64(6000), found.Readings.BWA4)
		assert.Equal(t, int64(1000), found.Deltas.BWA4)
		assert.Equal(t, int64(300), found.Deltas.ColorA4)
		assert.True(t, found.PayableTotal.Equal(usage.PayableTotal))
		assert.Equal(t, "https://storage.example/meters/jan.jpg", found.PhotoURL)
		assert.False(t, found.Final)
	})

	t.Run("scopes lookups to the tenant", func(t *testing.T) {
		usage := recordUsage(t, c,
			valueobject.NewMeterReading(6000, 0, 1300, 0),
			valueobject.NewMeterReading(6500, 0, 1400, 0),
			start.AddDate(0, 1, 0), end.AddDate(0, 1, 0))
		require.NoError(t, repo.Save(ctx, usage))

		_, err := repo.FindByIDForTenant(ctx, uuid.New(), usage.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormUsageRepository_History(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	c := createActiveContract(t, tenantID, "INV-2026-00110")

	baseline := valueobject.NewMeterReading(5000, 0, 1000, 0)
	// Insert out of order to prove ordering comes from the query
	months := []int{2, 0, 1}
	for _, m := range months {
		start := time.Date(2026, time.Month(1+m), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		current := valueobject.NewMeterReading(baseline.BWA4+int64(m+1)*500, 0, 1000, 0)
		usage := recordUsage(t, c, baseline, current, start, end)
		require.NoError(t, repo.Save(ctx, usage))
	}

	t.Run("returns history ordered by period start", func(t *testing.T) {
		history, err := repo.FindByContract(ctx, tenantID, c.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.True(t, history[0].PeriodStart.Before(history[1].PeriodStart))
		assert.True(t, history[1].PeriodStart.Before(history[2].PeriodStart))
	})

	t.Run("returns the latest record", func(t *testing.T) {
		latest, err := repo.FindLatestForContract(ctx, tenantID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), latest.PeriodStart)
	})

	t.Run("counts recorded periods", func(t *testing.T) {
		count, err := repo.CountForContract(ctx, tenantID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("not found when no history exists", func(t *testing.T) {
		_, err := repo.FindLatestForContract(ctx, tenantID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormUsageRepository_ExistsForPeriod(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	c := createActiveContract(t, tenantID, "INV-2026-00120")

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	usage := recordUsage(t, c,
		valueobject.NewMeterReading(5000, 0, 1000, 0),
		valueobject.NewMeterReading(6000, 0, 1300, 0),
		start, end)
	require.NoError(t, repo.Save(ctx, usage))

	t.Run("reports existing period", func(t *testing.T) {
		exists, err := repo.ExistsForPeriod(ctx, tenantID, c.ID, start, end)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("reports missing period", func(t *testing.T) {
		exists, err := repo.ExistsForPeriod(ctx, tenantID, c.ID,
			start.AddDate(0, 1, 0), end.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unique index rejects a second record for the same period", func(t *testing.T) {
		dup := recordUsage(t, c,
			valueobject.NewMeterReading(5000, 0, 1000, 0),
			valueobject.NewMeterReading(6100, 0, 1350, 0),
			start, end)

		err := repo.Save(ctx, dup)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})
}
