package contract

import (
	"context"

	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/contract"
)

// TransactionScope provides transactional access to the repositories the
// finance-approval flow mutates together. The contract status change and
// its unit allocations commit or roll back as one unit.
type TransactionScope interface {
	// Execute runs fn inside a single database transaction. Any error
	// returned by fn rolls the whole transaction back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories scoped to the
// current transaction.
type TransactionalRepositories interface {
	ContractRepo() contract.Repository
	AllocationRepo() allocation.Repository
}

// NoOpTransactionScope runs the function against the supplied
// repositories without a real transaction. Used in tests.
type NoOpTransactionScope struct {
	contractRepo   contract.Repository
	allocationRepo allocation.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(contractRepo contract.Repository, allocationRepo allocation.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		contractRepo:   contractRepo,
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

// AllocationRepo returns the allocation repository
func (s *NoOpTransactionScope) AllocationRepo() allocation.Repository {
	return s.allocationRepo
}
