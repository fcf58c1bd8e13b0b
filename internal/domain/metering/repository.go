package metering

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence port for usage records
type Repository interface {
	// FindByIDForTenant finds a usage record by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*MeterUsage, error)

	// FindByContract returns a contract's full usage history ordered by
	// period start ascending
	FindByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]MeterUsage, error)

	// FindLatestForContract returns the most recent usage record for a
	// contract, or shared.ErrNotFound when none exists yet
	FindLatestForContract(ctx context.Context, tenantID, contractID uuid.UUID) (*MeterUsage, error)

	// CountForContract counts the recorded billing periods of a contract
	CountForContract(ctx context.Context, tenantID, contractID uuid.UUID) (int64, error)

	// ExistsForPeriod reports whether a record already covers the period
	ExistsForPeriod(ctx context.Context, tenantID, contractID uuid.UUID, periodStart, periodEnd time.Time) (bool, error)

	// Save persists a usage record
	Save(ctx context.Context, u *MeterUsage) error
}
