package metering

import (
	"context"

	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/metering"
)

// TransactionScope provides transactional access to the repositories the
// settlement flow mutates together: the final usage record, the contract
// close-out and the unit returns commit or roll back as one unit.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories scoped to the
// current transaction.
type TransactionalRepositories interface {
	ContractRepo() contract.Repository
	UsageRepo() metering.Repository
	AllocationRepo() allocation.Repository
}

// NoOpTransactionScope runs the function against the supplied
// repositories without a real transaction. Used in tests.
type NoOpTransactionScope struct {
	contractRepo   contract.Repository
	usageRepo      metering.Repository
	allocationRepo allocation.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(contractRepo contract.Repository, usageRepo metering.Repository, allocationRepo allocation.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		contractRepo:   contractRepo,
		usageRepo:      usageRepo,
		allocationRepo: allocationRepo,
	}
}

// Execute runs the function without transactional guarantees
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ContractRepo returns the contract repository
func (s *NoOpTransactionScope) ContractRepo() contract.Repository {
	return s.contractRepo
}

// UsageRepo returns the usage record repository
func (s *NoOpTransactionScope) UsageRepo() metering.Repository {
	return s.usageRepo
}

// AllocationRepo returns the allocation repository
func (s *NoOpTransactionScope) AllocationRepo() allocation.Repository {
	return s.allocationRepo
}
