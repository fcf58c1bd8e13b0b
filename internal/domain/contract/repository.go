package contract

import (
	"context"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
)

// Repository defines the persistence port for contracts
type Repository interface {
	// FindByIDForTenant finds a contract by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Contract, error)

	// FindByNumber finds a contract by its human-readable number
	FindByNumber(ctx context.Context, tenantID uuid.UUID, contractNumber string) (*Contract, error)

	// FindAllForTenant finds contracts for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Contract, error)

	// CountForTenant counts contracts for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// Save creates or updates a contract and its items
	Save(ctx context.Context, c *Contract) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, c *Contract) error

	// DeleteForTenant deletes a contract and its items
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// GenerateContractNumber produces the next year-scoped sequence
	// number for a tenant (INV-YYYY-NNNNN)
	GenerateContractNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
