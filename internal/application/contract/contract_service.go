package contract

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/contract/acl"
	"github.com/meterbill/backend/internal/domain/shared"
)

// ContractService handles contract lifecycle operations from quotation
// through finance approval.
type ContractService struct {
	contractRepo   contract.Repository
	allocationRepo allocation.Repository
	units          acl.UnitQueryService
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
}

// NewContractService creates a new ContractService
func NewContractService(
	contractRepo contract.Repository,
	allocationRepo allocation.Repository,
	units acl.UnitQueryService,
	txScope TransactionScope,
) *ContractService {
	return &ContractService{
		contractRepo:   contractRepo,
		allocationRepo: allocationRepo,
		units:          units,
		txScope:        txScope,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ContractService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateQuotation creates a new contract in the quotation stage
func (s *ContractService) CreateQuotation(ctx context.Context, tenantID uuid.UUID, req CreateQuotationRequest) (*ContractResponse, error) {
	number, err := s.contractRepo.GenerateContractNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	c, err := s.buildQuotation(tenantID, number, req)
	if err != nil {
		return nil, err
	}

	if err := s.contractRepo.Save(ctx, c); err != nil {
		// Two concurrent creates can draw the same sequence number; the
		// unique index catches the loser, which retries with a fresh one.
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "ALREADY_EXISTS" {
			number, err = s.contractRepo.GenerateContractNumber(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			c, err = s.buildQuotation(tenantID, number, req)
			if err != nil {
				return nil, err
			}
			if err := s.contractRepo.Save(ctx, c); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	s.publishEvents(ctx, c)

	response := ToContractResponse(c)
	return &response, nil
}

// buildQuotation assembles the aggregate from the request
func (s *ContractService) buildQuotation(tenantID uuid.UUID, number string, req CreateQuotationRequest) (*contract.Contract, error) {
	c, err := contract.NewQuotation(tenantID, number, req.BranchID, req.CustomerID, req.CustomerName, req.SaleType, req.PricingModel)
	if err != nil {
		return nil, err
	}

	if req.SaleType == contract.SaleTypeLease && req.LeaseKind != "" {
		if err := c.SetLeaseKind(req.LeaseKind); err != nil {
			return nil, err
		}
	}

	if err := c.SetMonetaryTerms(req.MonthlyRent, req.DiscountPercent, req.AdvanceAmount, req.AdvanceMode); err != nil {
		return nil, err
	}

	cycle := req.BillingCycle
	if cycle == "" {
		cycle = contract.BillingCycleMonthly
	}
	if err := c.SetSchedule(req.EffectiveFrom, req.EffectiveTo, cycle, req.BillingDays, req.TenureMonths); err != nil {
		return nil, err
	}

	for _, item := range req.ProductItems {
		if _, err := c.AddProductItem(item.Description, item.UnitID, item.SerialNumber, item.Readings); err != nil {
			return nil, err
		}
	}

	if req.PricingRule != nil {
		rule := toPricingRule(req.PricingModel, *req.PricingRule)
		description := req.PricingRule.Description
		if description == "" {
			description = "Pricing policy"
		}
		if _, err := c.AddPricingItem(description, rule); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// GetByID retrieves a contract by ID
func (s *ContractService) GetByID(ctx context.Context, tenantID, contractID uuid.UUID) (*ContractResponse, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	response := ToContractResponse(c)
	return &response, nil
}

// GetByNumber retrieves a contract by its human-readable number
func (s *ContractService) GetByNumber(ctx context.Context, tenantID uuid.UUID, contractNumber string) (*ContractResponse, error) {
	c, err := s.contractRepo.FindByNumber(ctx, tenantID, contractNumber)
	if err != nil {
		return nil, err
	}
	response := ToContractResponse(c)
	return &response, nil
}

// List retrieves contracts with filtering and pagination
func (s *ContractService) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]ListItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}

	if filter.Status != nil {
		domainFilter.Filters["status"] = string(*filter.Status)
	}
	if filter.SaleType != nil {
		domainFilter.Filters["sale_type"] = string(*filter.SaleType)
	}
	if filter.Lifecycle != nil {
		domainFilter.Filters["lifecycle_type"] = string(*filter.Lifecycle)
	}
	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}
	if filter.BranchID != nil {
		domainFilter.Filters["branch_id"] = *filter.BranchID
	}

	contracts, err := s.contractRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.contractRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToListItemResponses(contracts), total, nil
}

// MarkSent marks a quotation as sent to the customer
func (s *ContractService) MarkSent(ctx context.Context, tenantID, contractID uuid.UUID) (*ContractResponse, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	if err := c.MarkSent(); err != nil {
		return nil, err
	}

	if err := s.contractRepo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}

	response := ToContractResponse(c)
	return &response, nil
}

// SubmitForApproval records the employee approval on a quotation
func (s *ContractService) SubmitForApproval(ctx context.Context, tenantID, contractID, approvedBy uuid.UUID) (*ContractResponse, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	if err := c.SubmitForApproval(approvedBy); err != nil {
		return nil, err
	}

	if err := s.contractRepo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, c)

	response := ToContractResponse(c)
	return &response, nil
}

// Approve is the simple approval path without deposit tracking or unit
// allocation, used for contracts created before the finance pipeline.
func (s *ContractService) Approve(ctx context.Context, tenantID, contractID, approvedBy uuid.UUID) (*ContractResponse, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	if err := c.Approve(approvedBy); err != nil {
		return nil, err
	}

	if err := s.contractRepo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}

	response := ToContractResponse(c)
	return &response, nil
}

// FinanceApprove runs the all-or-nothing finance approval: every product
// line's unit is validated against the inventory peer, the contract
// transitions per its sale type, and one allocation per unit is created.
// The status change and the allocations commit in a single transaction;
// any failure rolls everything back.
func (s *ContractService) FinanceApprove(ctx context.Context, tenantID, contractID, approvedBy uuid.UUID) (*ContractResponse, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	// Peer validation happens before the transaction opens: a slow or
	// unreachable inventory service must not hold a database transaction.
	productItems := c.ProductItems()
	units := make(map[uuid.UUID]acl.UnitReference, len(productItems))
	for _, item := range productItems {
		if item.UnitID == nil {
			return nil, shared.NewDomainError("INVALID_ITEM", "Product line is missing its unit before approval")
		}
		// Metered pricing bills from deltas against this baseline; an
		// unrecorded one would silently bill from zero.
		if c.PricingModel.IsMetered() && item.InitialReadings.IsZero() {
			return nil, shared.NewDomainError("INVALID_READING",
				"Product line has no recorded baseline meter reading")
		}
		ref, err := s.units.GetUnit(ctx, *item.UnitID)
		if err != nil {
			return nil, err
		}
		if item.InitialReadings.UsesColor() && !ref.ColorCapable {
			return nil, shared.NewDomainError("INVALID_READING",
				"Baseline declares color usage but the unit is not color capable")
		}
		units[item.ID] = ref
	}

	if err := c.FinanceApprove(approvedBy); err != nil {
		return nil, err
	}

	allocations := make([]*allocation.Allocation, 0, len(productItems))
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.ContractRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}
		for _, item := range productItems {
			ref := units[item.ID]
			serial := item.SerialNumber
			if serial == "" {
				serial = ref.SerialNumber
			}
			alloc, err := allocation.NewAllocation(tenantID, c.ID, item.ID, ref.UnitID, serial, item.InitialReadings)
			if err != nil {
				return err
			}
			if err := repos.AllocationRepo().Save(ctx, alloc); err != nil {
				return err
			}
			allocations = append(allocations, alloc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Unit status notifications go out only after the commit; the peer
	// learns about allocations that definitely exist.
	if s.eventPublisher != nil {
		approvedAt := time.Now()
		if c.FinanceApprovedAt != nil {
			approvedAt = *c.FinanceApprovedAt
		}
		for _, alloc := range allocations {
			event := allocation.NewUnitAllocatedEvent(alloc, string(c.SaleType), approvedBy, approvedAt)
			_ = s.eventPublisher.Publish(ctx, event)
		}
	}
	s.publishEvents(ctx, c)

	response := ToContractResponse(c)
	return &response, nil
}

// FinanceReject rejects an employee-approved contract
func (s *ContractService) FinanceReject(ctx context.Context, tenantID, contractID, rejectedBy uuid.UUID, req RejectRequest) (*ContractResponse, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	if err := c.FinanceReject(rejectedBy, req.Reason); err != nil {
		return nil, err
	}

	if err := s.contractRepo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, c)

	response := ToContractResponse(c)
	return &response, nil
}

// Cancel cancels a quotation before it enters the approval pipeline
func (s *ContractService) Cancel(ctx context.Context, tenantID, contractID uuid.UUID, req CancelRequest) (*ContractResponse, error) {
	c, err := s.contractRepo.FindByIDForTenant(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}

	if err := c.Cancel(req.Reason); err != nil {
		return nil, err
	}

	if err := s.contractRepo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}

	response := ToContractResponse(c)
	return &response, nil
}

// ListAllocations returns the unit allocations of a contract
func (s *ContractService) ListAllocations(ctx context.Context, tenantID, contractID uuid.UUID) ([]AllocationResponse, error) {
	allocations, err := s.allocationRepo.FindByContract(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	return ToAllocationResponses(allocations), nil
}

// publishEvents drains the aggregate's pending domain events
func (s *ContractService) publishEvents(ctx context.Context, c *contract.Contract) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range c.GetDomainEvents() {
		// Event handling is best-effort; a failed publish never fails
		// the mutation that produced it.
		_ = s.eventPublisher.Publish(ctx, event)
	}
	c.ClearDomainEvents()
}
