package allocation

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for allocations
type Repository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Allocation, error)
	FindByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*Allocation, error)
	FindByContractItem(ctx context.Context, tenantID, contractItemID uuid.UUID) (*Allocation, error)
	FindActiveByUnit(ctx context.Context, tenantID, unitID uuid.UUID) (*Allocation, error)
	Save(ctx context.Context, a *Allocation) error
}
