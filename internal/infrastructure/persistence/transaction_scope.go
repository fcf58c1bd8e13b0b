package persistence

import (
	"context"

	appcontract "github.com/meterbill/backend/internal/application/contract"
	appmetering "github.com/meterbill/backend/internal/application/metering"
	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/metering"
	"gorm.io/gorm"
)

// GormContractTransactionScope implements the contract context's
// TransactionScope using GORM transactions.
type GormContractTransactionScope struct {
	db *gorm.DB
}

// NewGormContractTransactionScope creates a new GormContractTransactionScope
func NewGormContractTransactionScope(db *gorm.DB) *GormContractTransactionScope {
	return &GormContractTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormContractTransactionScope) Execute(ctx context.Context, fn func(repos appcontract.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormMeteringTransactionScope implements the metering context's
// TransactionScope using GORM transactions.
type GormMeteringTransactionScope struct {
	db *gorm.DB
}

// NewGormMeteringTransactionScope creates a new GormMeteringTransactionScope
func NewGormMeteringTransactionScope(db *gorm.DB) *GormMeteringTransactionScope {
	return &GormMeteringTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormMeteringTransactionScope) Execute(ctx context.Context, fn func(repos appmetering.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories
// scoped to the current transaction. Its method set is a superset of
// both contexts' TransactionalRepositories interfaces.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ContractRepo returns the contract repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ContractRepo() contract.Repository {
	return NewGormContractRepository(r.tx)
}

// UsageRepo returns the usage record repository scoped to the current transaction.
func (r *gormTransactionalRepositories) UsageRepo() metering.Repository {
	return NewGormUsageRepository(r.tx)
}

// AllocationRepo returns the allocation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AllocationRepo() allocation.Repository {
	return NewGormAllocationRepository(r.tx)
}

// Ensure the scopes implement their application ports
var (
	_ appcontract.TransactionScope          = (*GormContractTransactionScope)(nil)
	_ appmetering.TransactionScope          = (*GormMeteringTransactionScope)(nil)
	_ appcontract.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appmetering.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
