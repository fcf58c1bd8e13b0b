package metering

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// UsageService records billing-period meter readings and settles
// contracts whose tenure completes.
type UsageService struct {
	contractRepo   contract.Repository
	usageRepo      metering.Repository
	allocationRepo allocation.Repository
	settlement     *metering.SettlementService
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewUsageService creates a new UsageService
func NewUsageService(
	contractRepo contract.Repository,
	usageRepo metering.Repository,
	allocationRepo allocation.Repository,
	txScope TransactionScope,
	logger *zap.Logger,
) *UsageService {
	return &UsageService{
		contractRepo:   contractRepo,
		usageRepo:      usageRepo,
		allocationRepo: allocationRepo,
		settlement:     metering.NewSettlementService(),
		txScope:        txScope,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *UsageService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// RecordReading records one billing period's meter reading against an
// active contract. The baseline is the previous record's counters, or
// the allocation's initial readings for the first period. When the
// period end lands on the contract's effective-to date, the contract is
// settled in the same transaction.
func (s *UsageService) RecordReading(ctx context.Context, tenantID, contractID uuid.UUID, recordedBy *uuid.UUID, req RecordReadingRequest) (*RecordReadingResponse, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	exists, err := s.usageRepo.ExistsForPeriod(ctx, tenantID, contractID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A usage record already covers this billing period")
	}

	// Periods must stay non-overlapping: each new period starts at or
	// after the end of the latest recorded one.
	var baseline valueobject.MeterReading
	latest, err := s.usageRepo.FindLatestForContract(ctx, tenantID, contractID)
	switch {
	case err == nil:
		if req.PeriodStart.Before(latest.PeriodEnd) {
			return nil, shared.NewDomainError("INVALID_PERIOD",
				"Billing period overlaps a previously recorded period")
		}
		baseline = latest.Readings
	case isNotFound(err):
		baseline, err = s.initialBaseline(ctx, tenantID, contractID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	usage, err := metering.NewMeterUsage(c, baseline, req.Readings(), req.PeriodStart, req.PeriodEnd, recordedBy)
	if err != nil {
		return nil, err
	}
	if req.PhotoURL != "" {
		usage.WithPhotoURL(req.PhotoURL)
	}

	if s.settlement.IsFinalPeriod(c, req.PeriodEnd) {
		return s.settleWithFinalReading(ctx, tenantID, c, usage)
	}

	if err := s.usageRepo.Save(ctx, usage); err != nil {
		return nil, err
	}
	s.syncAllocationReadings(ctx, tenantID, contractID, usage.Readings)
	s.publishUsageRecorded(ctx, usage)

	return &RecordReadingResponse{Usage: ToUsageResponse(usage)}, nil
}

// settleWithFinalReading persists the final usage record and closes the
// contract atomically: the record is marked final, the period rent is
// booked against the deposit and the consolidated totals close the
// contract. Unit returns happen after the commit; a failed return never
// unwinds a settled contract.
func (s *UsageService) settleWithFinalReading(ctx context.Context, tenantID uuid.UUID, c *contract.Contract, usage *metering.MeterUsage) (*RecordReadingResponse, error) {
	usage.MarkFinal()

	var settled metering.Settlement

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.UsageRepo().Save(ctx, usage); err != nil {
			return err
		}

		history, err := repos.UsageRepo().FindByContract(ctx, tenantID, c.ID)
		if err != nil {
			return err
		}

		settled = s.settlement.Consolidate(c, history)

		c.ConsumeAdvance(usage.AdvanceAdjusted)
		if err := c.CompleteSettlement(settled.GrossTotal, settled.NetTotal); err != nil {
			return err
		}
		return repos.ContractRepo().SaveWithLock(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	returned := s.returnAllocations(ctx, tenantID, c.ID, &usage.Readings)

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, metering.NewInvoiceCreatedEvent(usage, c.ContractNumber, c.CustomerID))
		for _, alloc := range returned {
			for _, event := range alloc.GetDomainEvents() {
				_ = s.eventPublisher.Publish(ctx, event)
			}
			alloc.ClearDomainEvents()
		}
		for _, event := range c.GetDomainEvents() {
			_ = s.eventPublisher.Publish(ctx, event)
		}
		c.ClearDomainEvents()
	}
	s.publishUsageRecorded(ctx, usage)

	return &RecordReadingResponse{
		Usage:      ToUsageResponse(usage),
		Settled:    true,
		Settlement: &settled,
	}, nil
}

// Consolidate manually settles a contract whose recorded periods reached
// the expected tenure without any period ending exactly on effective-to.
// Consolidating an already-settled contract returns the stored totals,
// making the operation idempotent.
func (s *UsageService) Consolidate(ctx context.Context, tenantID, contractID uuid.UUID) (*metering.Settlement, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	history, err := s.usageRepo.FindByContract(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	if c.Status == contract.StatusCompleted {
		settled := s.settlement.Consolidate(c, history)
		return &settled, nil
	}

	if err := s.settlement.ValidateManualConsolidation(c, len(history)); err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, shared.NewDomainError("NO_USAGE_DETECTED", "Cannot consolidate a contract without usage records")
	}

	var settled metering.Settlement

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		// The newest record becomes the settling one.
		last := &history[len(history)-1]
		last.MarkFinal()
		if err := repos.UsageRepo().Save(ctx, last); err != nil {
			return err
		}

		settled = s.settlement.Consolidate(c, history)

		c.ConsumeAdvance(last.AdvanceAdjusted)
		if err := c.CompleteSettlement(settled.GrossTotal, settled.NetTotal); err != nil {
			return err
		}
		return repos.ContractRepo().SaveWithLock(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	returned := s.returnAllocations(ctx, tenantID, contractID, nil)

	if s.eventPublisher != nil {
		last := &history[len(history)-1]
		_ = s.eventPublisher.Publish(ctx, metering.NewInvoiceCreatedEvent(last, c.ContractNumber, c.CustomerID))
		for _, alloc := range returned {
			for _, event := range alloc.GetDomainEvents() {
				_ = s.eventPublisher.Publish(ctx, event)
			}
			alloc.ClearDomainEvents()
		}
		for _, event := range c.GetDomainEvents() {
			_ = s.eventPublisher.Publish(ctx, event)
		}
		c.ClearDomainEvents()
	}

	return &settled, nil
}

// GetSettlement returns the consolidated settlement of a completed
// contract without touching any state
func (s *UsageService) GetSettlement(ctx context.Context, tenantID, contractID uuid.UUID) (*metering.Settlement, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != contract.StatusCompleted {
		return nil, shared.NewDomainError("STATE_CONFLICT", "Contract has not been settled")
	}
	history, err := s.usageRepo.FindByContract(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	settled := s.settlement.Consolidate(c, history)
	return &settled, nil
}

// ListUsage returns a contract's usage history ordered by period start
func (s *UsageService) ListUsage(ctx context.Context, tenantID, contractID uuid.UUID) ([]UsageResponse, error) {
	if _, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID); err != nil {
		return nil, err
	}
	history, err := s.usageRepo.FindByContract(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	return ToUsageResponses(history), nil
}

// GetUsage returns a single usage record
func (s *UsageService) GetUsage(ctx context.Context, tenantID, usageID uuid.UUID) (*UsageResponse, error) {
	usage, err := s.usageRepo.FindByIDForTenant(ctx, tenantID, usageID)
	if err != nil {
		return nil, err
	}
	response := ToUsageResponse(usage)
	return &response, nil
}

// initialBaseline resolves the delta baseline for a contract's first
// billing period: the allocation's initial readings, or zero when the
// contract has no allocated unit.
func (s *UsageService) initialBaseline(ctx context.Context, tenantID, contractID uuid.UUID) (valueobject.MeterReading, error) {
	allocations, err := s.allocationRepo.FindByContract(ctx, tenantID, contractID)
	if err != nil {
		return valueobject.MeterReading{}, err
	}
	for _, alloc := range allocations {
		if alloc.IsAllocated() {
			return alloc.InitialReadings, nil
		}
	}
	return valueobject.ZeroMeterReading(), nil
}

func isNotFound(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "NOT_FOUND"
}

// returnAllocations marks a settled contract's allocated units as
// returned. Runs outside the settlement transaction: the contract is
// already completed, so failures are logged and left for the allocation
// ledger to reconcile, never surfaced to the caller.
func (s *UsageService) returnAllocations(ctx context.Context, tenantID, contractID uuid.UUID, finalReadings *valueobject.MeterReading) []*allocation.Allocation {
	allocations, err := s.allocationRepo.FindByContract(ctx, tenantID, contractID)
	if err != nil {
		s.logger.Warn("Failed to load allocations for unit return",
			zap.String("contract_id", contractID.String()),
			zap.Error(err))
		return nil
	}

	var returned []*allocation.Allocation
	for _, alloc := range allocations {
		if !alloc.IsAllocated() {
			continue
		}
		if finalReadings != nil {
			alloc.UpdateCurrentReadings(*finalReadings)
		}
		if err := alloc.MarkReturned(); err != nil {
			s.logger.Warn("Unit return rejected",
				zap.String("allocation_id", alloc.ID.String()),
				zap.Error(err))
			continue
		}
		if err := s.allocationRepo.Save(ctx, alloc); err != nil {
			s.logger.Warn("Failed to persist unit return",
				zap.String("allocation_id", alloc.ID.String()),
				zap.Error(err))
			continue
		}
		returned = append(returned, alloc)
	}
	return returned
}

// syncAllocationReadings mirrors the latest counters onto the active
// allocation. Best-effort; the usage record is already committed.
func (s *UsageService) syncAllocationReadings(ctx context.Context, tenantID, contractID uuid.UUID, readings valueobject.MeterReading) {
	allocations, err := s.allocationRepo.FindByContract(ctx, tenantID, contractID)
	if err != nil {
		return
	}
	for _, alloc := range allocations {
		if !alloc.IsAllocated() {
			continue
		}
		alloc.UpdateCurrentReadings(readings)
		_ = s.allocationRepo.Save(ctx, alloc)
	}
}

// publishUsageRecorded emits the usage-recorded integration event
func (s *UsageService) publishUsageRecorded(ctx context.Context, usage *metering.MeterUsage) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, metering.NewUsageRecordedEvent(usage))
}
