package contract

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/contract/acl"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	contractRepo   *MockContractRepository
	allocationRepo *MockAllocationRepository
	units          *MockUnitQueryService
	publisher      *CapturingPublisher
	service        *ContractService
}

func newServiceFixture() *serviceFixture {
	contractRepo := new(MockContractRepository)
	allocationRepo := new(MockAllocationRepository)
	units := new(MockUnitQueryService)
	publisher := &CapturingPublisher{}

	svc := NewContractService(contractRepo, allocationRepo, units,
		NewNoOpTransactionScope(contractRepo, allocationRepo))
	svc.SetEventPublisher(publisher)

	return &serviceFixture{
		contractRepo:   contractRepo,
		allocationRepo: allocationRepo,
		units:          units,
		publisher:      publisher,
		service:        svc,
	}
}

func validCreateRequest(saleType contract.SaleType) CreateQuotationRequest {
	unitID := uuid.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return CreateQuotationRequest{
		BranchID:        uuid.New(),
		CustomerID:      uuid.New(),
		CustomerName:    "Acme Offices",
		SaleType:        saleType,
		PricingModel:    contract.PricingFixedCombo,
		MonthlyRent:     decimal.NewFromInt(500),
		DiscountPercent: decimal.NewFromInt(10),
		AdvanceAmount:   decimal.NewFromInt(2000),
		AdvanceMode:     contract.AdvanceModeTransfer,
		EffectiveFrom:   &from,
		BillingCycle:    contract.BillingCycleMonthly,
		ProductItems: []ProductItemInput{
			{
				Description:  "Canon iR2630",
				UnitID:       &unitID,
				SerialNumber: "SN-1001",
				Readings:     valueobject.NewMeterReading(5000, 0, 0, 0),
			},
		},
		PricingRule: &PricingRuleInput{
			CombinedLimit: 1000,
			CombinedRate:  decimal.NewFromFloat(0.40),
		},
	}
}

func employeeApprovedContract(t *testing.T, tenantID uuid.UUID, req CreateQuotationRequest) *contract.Contract {
	t.Helper()
	f := newServiceFixture()
	c, err := f.service.buildQuotation(tenantID, "INV-2026-00001", req)
	require.NoError(t, err)
	c.ClearDomainEvents()
	require.NoError(t, c.SubmitForApproval(uuid.New()))
	return c
}

// ============================================
// CreateQuotation Tests
// ============================================

func TestContractService_CreateQuotation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("creates a draft quotation", func(t *testing.T) {
		f := newServiceFixture()
		f.contractRepo.On("GenerateContractNumber", ctx, tenantID).Return("INV-2026-00001", nil)
		f.contractRepo.On("Save", ctx, mock.AnythingOfType("*contract.Contract")).Return(nil)

		resp, err := f.service.CreateQuotation(ctx, tenantID, validCreateRequest(contract.SaleTypeRent))
		require.NoError(t, err)

		assert.Equal(t, "INV-2026-00001", resp.ContractNumber)
		assert.Equal(t, contract.StatusDraft, resp.Status)
		assert.Equal(t, contract.LifecycleQuotation, resp.LifecycleType)
		assert.Len(t, resp.Items, 2)
		f.contractRepo.AssertExpectations(t)

		assert.Contains(t, f.publisher.TypesSeen(), contract.EventTypeContractCreated)
	})

	t.Run("retries once when the number collides", func(t *testing.T) {
		f := newServiceFixture()
		f.contractRepo.On("GenerateContractNumber", ctx, tenantID).Return("INV-2026-00007", nil).Once()
		f.contractRepo.On("Save", ctx, mock.AnythingOfType("*contract.Contract")).Return(shared.ErrAlreadyExists).Once()
		f.contractRepo.On("GenerateContractNumber", ctx, tenantID).Return("INV-2026-00008", nil).Once()
		f.contractRepo.On("Save", ctx, mock.AnythingOfType("*contract.Contract")).Return(nil).Once()

		resp, err := f.service.CreateQuotation(ctx, tenantID, validCreateRequest(contract.SaleTypeRent))
		require.NoError(t, err)

		assert.Equal(t, "INV-2026-00008", resp.ContractNumber)
		f.contractRepo.AssertExpectations(t)
	})

	t.Run("propagates domain validation failures", func(t *testing.T) {
		f := newServiceFixture()
		f.contractRepo.On("GenerateContractNumber", ctx, tenantID).Return("INV-2026-00002", nil)

		req := validCreateRequest(contract.SaleTypeRent)
		req.PricingModel = contract.PricingCPC // positive rent forbidden
		_, err := f.service.CreateQuotation(ctx, tenantID, req)
		assert.Error(t, err)
		f.contractRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

// ============================================
// Approval Pipeline Tests
// ============================================

func TestContractService_SubmitForApproval(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	f := newServiceFixture()
	c, err := f.service.buildQuotation(tenantID, "INV-2026-00001", validCreateRequest(contract.SaleTypeRent))
	require.NoError(t, err)

	f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
	f.contractRepo.On("SaveWithLock", ctx, c).Return(nil)

	resp, err := f.service.SubmitForApproval(ctx, tenantID, c.ID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, contract.StatusEmployeeApproved, resp.Status)
	assert.Contains(t, f.publisher.TypesSeen(), contract.EventTypeContractSubmitted)
}

func TestContractService_FinanceApprove(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("activates a rent contract and allocates its unit", func(t *testing.T) {
		f := newServiceFixture()
		req := validCreateRequest(contract.SaleTypeRent)
		c := employeeApprovedContract(t, tenantID, req)
		unitID := *req.ProductItems[0].UnitID

		f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		f.units.On("GetUnit", ctx, unitID).Return(acl.UnitReference{
			UnitID: unitID, Model: "Canon iR2630", SerialNumber: "SN-1001", ColorCapable: false,
		}, nil)
		f.contractRepo.On("SaveWithLock", ctx, c).Return(nil)
		f.allocationRepo.On("Save", ctx, mock.AnythingOfType("*allocation.Allocation")).Return(nil)

		resp, err := f.service.FinanceApprove(ctx, tenantID, c.ID, uuid.New())
		require.NoError(t, err)

		assert.Equal(t, contract.StatusActive, resp.Status)
		assert.Equal(t, contract.LifecycleProforma, resp.LifecycleType)
		assert.NotNil(t, resp.EffectiveTo)
		f.allocationRepo.AssertNumberOfCalls(t, "Save", 1)

		types := f.publisher.TypesSeen()
		assert.Contains(t, types, allocation.EventTypeUnitAllocated)
		assert.Contains(t, types, contract.EventTypeContractFinanceApproved)
	})

	t.Run("issues a sale contract as a final invoice", func(t *testing.T) {
		f := newServiceFixture()
		req := validCreateRequest(contract.SaleTypeSale)
		c := employeeApprovedContract(t, tenantID, req)
		unitID := *req.ProductItems[0].UnitID

		f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		f.units.On("GetUnit", ctx, unitID).Return(acl.UnitReference{UnitID: unitID}, nil)
		f.contractRepo.On("SaveWithLock", ctx, c).Return(nil)
		f.allocationRepo.On("Save", ctx, mock.AnythingOfType("*allocation.Allocation")).Return(nil)

		resp, err := f.service.FinanceApprove(ctx, tenantID, c.ID, uuid.New())
		require.NoError(t, err)

		assert.Equal(t, contract.StatusIssued, resp.Status)
		assert.Equal(t, contract.LifecycleFinal, resp.LifecycleType)
	})

	t.Run("aborts when the inventory peer fails", func(t *testing.T) {
		f := newServiceFixture()
		req := validCreateRequest(contract.SaleTypeRent)
		c := employeeApprovedContract(t, tenantID, req)
		unitID := *req.ProductItems[0].UnitID

		f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		f.units.On("GetUnit", ctx, unitID).Return(acl.UnitReference{}, shared.ErrDependencyFailed)

		_, err := f.service.FinanceApprove(ctx, tenantID, c.ID, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsRetryable(err))

		// Nothing was persisted and the contract did not move.
		f.contractRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		f.allocationRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Equal(t, contract.StatusEmployeeApproved, c.Status)
	})

	t.Run("rejects color baseline on a mono unit", func(t *testing.T) {
		f := newServiceFixture()
		req := validCreateRequest(contract.SaleTypeRent)
		req.ProductItems[0].Readings = valueobject.NewMeterReading(5000, 0, 300, 0)
		c := employeeApprovedContract(t, tenantID, req)
		unitID := *req.ProductItems[0].UnitID

		f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		f.units.On("GetUnit", ctx, unitID).Return(acl.UnitReference{
			UnitID: unitID, ColorCapable: false,
		}, nil)

		_, err := f.service.FinanceApprove(ctx, tenantID, c.ID, uuid.New())
		require.Error(t, err)
		f.contractRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("rejects a metered contract without a baseline", func(t *testing.T) {
		f := newServiceFixture()
		req := validCreateRequest(contract.SaleTypeRent)
		req.ProductItems[0].Readings = valueobject.ZeroMeterReading()
		c := employeeApprovedContract(t, tenantID, req)

		f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)

		_, err := f.service.FinanceApprove(ctx, tenantID, c.ID, uuid.New())
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_READING", domainErr.Code)
		f.units.AssertNotCalled(t, "GetUnit", mock.Anything, mock.Anything)
		f.contractRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("requires a deposit for rent contracts", func(t *testing.T) {
		f := newServiceFixture()
		req := validCreateRequest(contract.SaleTypeRent)
		req.AdvanceAmount = decimal.Zero
		c := employeeApprovedContract(t, tenantID, req)
		unitID := *req.ProductItems[0].UnitID

		f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		f.units.On("GetUnit", ctx, unitID).Return(acl.UnitReference{UnitID: unitID}, nil)

		_, err := f.service.FinanceApprove(ctx, tenantID, c.ID, uuid.New())
		require.Error(t, err)
	})
}

func TestContractService_FinanceReject(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	f := newServiceFixture()
	c := employeeApprovedContract(t, tenantID, validCreateRequest(contract.SaleTypeRent))

	f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
	f.contractRepo.On("SaveWithLock", ctx, c).Return(nil)

	resp, err := f.service.FinanceReject(ctx, tenantID, c.ID, uuid.New(), RejectRequest{Reason: "deposit cheque bounced"})
	require.NoError(t, err)

	assert.Equal(t, contract.StatusRejected, resp.Status)
	assert.Equal(t, "deposit cheque bounced", resp.RejectedReason)
	assert.Contains(t, f.publisher.TypesSeen(), contract.EventTypeContractRejected)
}

func TestContractService_Cancel(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	f := newServiceFixture()
	c, err := f.service.buildQuotation(tenantID, "INV-2026-00001", validCreateRequest(contract.SaleTypeRent))
	require.NoError(t, err)

	f.contractRepo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
	f.contractRepo.On("SaveWithLock", ctx, c).Return(nil)

	resp, err := f.service.Cancel(ctx, tenantID, c.ID, CancelRequest{Reason: "customer withdrew"})
	require.NoError(t, err)
	assert.Equal(t, contract.StatusCancelled, resp.Status)
}

// ============================================
// Query Tests
// ============================================

func TestContractService_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	f := newServiceFixture()
	c, err := f.service.buildQuotation(tenantID, "INV-2026-00001", validCreateRequest(contract.SaleTypeRent))
	require.NoError(t, err)

	f.contractRepo.On("FindAllForTenant", ctx, tenantID, mock.AnythingOfType("shared.Filter")).Return([]contract.Contract{*c}, nil)
	f.contractRepo.On("CountForTenant", ctx, tenantID, mock.AnythingOfType("shared.Filter")).Return(int64(1), nil)

	items, total, err := f.service.List(ctx, tenantID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, c.ContractNumber, items[0].ContractNumber)
}

func TestContractService_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	contractID := uuid.New()

	f := newServiceFixture()
	f.contractRepo.On("FindByIDForTenant", ctx, tenantID, contractID).Return(nil, shared.ErrNotFound)

	_, err := f.service.GetByID(ctx, tenantID, contractID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
