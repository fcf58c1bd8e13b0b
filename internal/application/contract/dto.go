package contract

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/allocation"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ==================== Request DTOs ====================

// CreateQuotationRequest represents a request to create a new quotation
type CreateQuotationRequest struct {
	BranchID        uuid.UUID             `json:"branch_id" binding:"required"`
	CustomerID      uuid.UUID             `json:"customer_id" binding:"required"`
	CustomerName    string                `json:"customer_name" binding:"required,min=1,max=200"`
	SaleType        contract.SaleType     `json:"sale_type" binding:"required"`
	PricingModel    contract.PricingModel `json:"pricing_model" binding:"required"`
	LeaseKind       contract.LeaseKind    `json:"lease_kind"`
	MonthlyRent     decimal.Decimal       `json:"monthly_rent"`
	DiscountPercent decimal.Decimal       `json:"discount_percent"`
	AdvanceAmount   decimal.Decimal       `json:"advance_amount"`
	AdvanceMode     contract.AdvanceMode  `json:"advance_mode"`
	EffectiveFrom   *time.Time            `json:"effective_from"`
	EffectiveTo     *time.Time            `json:"effective_to"`
	BillingCycle    contract.BillingCycle `json:"billing_cycle"`
	BillingDays     int                   `json:"billing_days"`
	TenureMonths    int                   `json:"tenure_months"`
	ProductItems    []ProductItemInput    `json:"product_items"`
	PricingRule     *PricingRuleInput     `json:"pricing_rule"`
}

// ProductItemInput is a sellable line in the create request
type ProductItemInput struct {
	Description  string                   `json:"description" binding:"required,min=1,max=200"`
	UnitID       *uuid.UUID               `json:"unit_id"`
	SerialNumber string                   `json:"serial_number"`
	Readings     valueobject.MeterReading `json:"initial_readings"`
}

// SlabInput is one pricing slab in the create request
type SlabInput struct {
	From int64           `json:"from"`
	To   int64           `json:"to" binding:"required"`
	Rate decimal.Decimal `json:"rate" binding:"required"`
}

// PricingRuleInput is the pricing-policy line in the create request
type PricingRuleInput struct {
	Description   string          `json:"description"`
	BWLimit       int64           `json:"bw_limit"`
	ColorLimit    int64           `json:"color_limit"`
	BWRate        decimal.Decimal `json:"bw_rate"`
	ColorRate     decimal.Decimal `json:"color_rate"`
	BWSlabs       []SlabInput     `json:"bw_slabs"`
	ColorSlabs    []SlabInput     `json:"color_slabs"`
	CombinedLimit int64           `json:"combined_limit"`
	CombinedRate  decimal.Decimal `json:"combined_rate"`
	CombinedSlabs []SlabInput     `json:"combined_slabs"`
}

// RejectRequest carries the mandatory rejection reason
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// CancelRequest carries the mandatory cancel reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ListFilter filters the contract list endpoint
type ListFilter struct {
	Page       int                     `form:"page"`
	PageSize   int                     `form:"page_size"`
	OrderBy    string                  `form:"order_by"`
	OrderDir   string                  `form:"order_dir"`
	Search     string                  `form:"search"`
	Status     *contract.Status        `form:"status"`
	SaleType   *contract.SaleType      `form:"sale_type"`
	Lifecycle  *contract.LifecycleType `form:"lifecycle"`
	CustomerID *uuid.UUID              `form:"customer_id"`
	BranchID   *uuid.UUID              `form:"branch_id"`
}

// ==================== Response DTOs ====================

// ItemResponse is one contract line item
type ItemResponse struct {
	ID              uuid.UUID                `json:"id"`
	Role            contract.ItemRole        `json:"role"`
	Description     string                   `json:"description"`
	UnitID          *uuid.UUID               `json:"unit_id,omitempty"`
	SerialNumber    string                   `json:"serial_number,omitempty"`
	InitialReadings valueobject.MeterReading `json:"initial_readings"`
	Rule            *contract.PricingRule    `json:"rule,omitempty"`
}

// ContractResponse is the full contract view
type ContractResponse struct {
	ID              uuid.UUID              `json:"id"`
	ContractNumber  string                 `json:"contract_number"`
	BranchID        uuid.UUID              `json:"branch_id"`
	CustomerID      uuid.UUID              `json:"customer_id"`
	CustomerName    string                 `json:"customer_name"`
	SaleType        contract.SaleType      `json:"sale_type"`
	LifecycleType   contract.LifecycleType `json:"lifecycle_type"`
	Status          contract.Status        `json:"status"`
	PricingModel    contract.PricingModel  `json:"pricing_model"`
	LeaseKind       contract.LeaseKind     `json:"lease_kind,omitempty"`
	MonthlyRent     decimal.Decimal        `json:"monthly_rent"`
	DiscountPercent decimal.Decimal        `json:"discount_percent"`
	AdvanceAmount   decimal.Decimal        `json:"advance_amount"`
	AdvanceMode     contract.AdvanceMode   `json:"advance_mode,omitempty"`
	AdvanceBalance  decimal.Decimal        `json:"advance_balance"`
	EffectiveFrom   *time.Time             `json:"effective_from,omitempty"`
	EffectiveTo     *time.Time             `json:"effective_to,omitempty"`
	BillingCycle    contract.BillingCycle  `json:"billing_cycle"`
	BillingDays     int                    `json:"billing_days,omitempty"`
	TenureMonths    int                    `json:"tenure_months,omitempty"`
	GrossTotal      decimal.Decimal        `json:"gross_total"`
	NetTotal        decimal.Decimal        `json:"net_total"`
	Items           []ItemResponse         `json:"items"`
	RejectedReason  string                 `json:"rejected_reason,omitempty"`
	CancelReason    string                 `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Version         int                    `json:"version"`
}

// ListItemResponse is the compact contract view for list endpoints
type ListItemResponse struct {
	ID             uuid.UUID              `json:"id"`
	ContractNumber string                 `json:"contract_number"`
	CustomerID     uuid.UUID              `json:"customer_id"`
	CustomerName   string                 `json:"customer_name"`
	SaleType       contract.SaleType      `json:"sale_type"`
	LifecycleType  contract.LifecycleType `json:"lifecycle_type"`
	Status         contract.Status        `json:"status"`
	MonthlyRent    decimal.Decimal        `json:"monthly_rent"`
	EffectiveFrom  *time.Time             `json:"effective_from,omitempty"`
	EffectiveTo    *time.Time             `json:"effective_to,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// AllocationResponse is one physical unit binding
type AllocationResponse struct {
	ID              uuid.UUID                `json:"id"`
	ContractID      uuid.UUID                `json:"contract_id"`
	ContractItemID  uuid.UUID                `json:"contract_item_id"`
	UnitID          uuid.UUID                `json:"unit_id"`
	SerialNumber    string                   `json:"serial_number"`
	InitialReadings valueobject.MeterReading `json:"initial_readings"`
	CurrentReadings valueobject.MeterReading `json:"current_readings"`
	Status          string                   `json:"status"`
	ReturnedAt      *time.Time               `json:"returned_at,omitempty"`
}

// ==================== Converters ====================

// ToContractResponse converts a domain contract to its response DTO
func ToContractResponse(c *contract.Contract) ContractResponse {
	items := make([]ItemResponse, 0, len(c.Items))
	for idx := range c.Items {
		item := &c.Items[idx]
		items = append(items, ItemResponse{
			ID:              item.ID,
			Role:            item.Role,
			Description:     item.Description,
			UnitID:          item.UnitID,
			SerialNumber:    item.SerialNumber,
			InitialReadings: item.InitialReadings,
			Rule:            item.Rule,
		})
	}

	return ContractResponse{
		ID:              c.ID,
		ContractNumber:  c.ContractNumber,
		BranchID:        c.BranchID,
		CustomerID:      c.CustomerID,
		CustomerName:    c.CustomerName,
		SaleType:        c.SaleType,
		LifecycleType:   c.LifecycleType,
		Status:          c.Status,
		PricingModel:    c.PricingModel,
		LeaseKind:       c.LeaseKind,
		MonthlyRent:     c.MonthlyRent,
		DiscountPercent: c.DiscountPercent,
		AdvanceAmount:   c.AdvanceAmount,
		AdvanceMode:     c.AdvanceMode,
		AdvanceBalance:  c.AdvanceBalance,
		EffectiveFrom:   c.EffectiveFrom,
		EffectiveTo:     c.EffectiveTo,
		BillingCycle:    c.BillingCycle,
		BillingDays:     c.BillingCycleDays,
		TenureMonths:    c.LeaseTenure,
		GrossTotal:      c.GrossTotal,
		NetTotal:        c.NetTotal,
		Items:           items,
		RejectedReason:  c.RejectedReason,
		CancelReason:    c.CancelReason,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Version:         c.GetVersion(),
	}
}

// ToListItemResponses converts a slice of contracts to compact views
func ToListItemResponses(contracts []contract.Contract) []ListItemResponse {
	responses := make([]ListItemResponse, 0, len(contracts))
	for idx := range contracts {
		c := &contracts[idx]
		responses = append(responses, ListItemResponse{
			ID:             c.ID,
			ContractNumber: c.ContractNumber,
			CustomerID:     c.CustomerID,
			CustomerName:   c.CustomerName,
			SaleType:       c.SaleType,
			LifecycleType:  c.LifecycleType,
			Status:         c.Status,
			MonthlyRent:    c.MonthlyRent,
			EffectiveFrom:  c.EffectiveFrom,
			EffectiveTo:    c.EffectiveTo,
			CreatedAt:      c.CreatedAt,
		})
	}
	return responses
}

// ToAllocationResponse converts a domain allocation to its response DTO
func ToAllocationResponse(a *allocation.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:              a.ID,
		ContractID:      a.ContractID,
		ContractItemID:  a.ContractItemID,
		UnitID:          a.UnitID,
		SerialNumber:    a.SerialNumber,
		InitialReadings: a.InitialReadings,
		CurrentReadings: a.CurrentReadings,
		Status:          string(a.Status),
		ReturnedAt:      a.ReturnedAt,
	}
}

// ToAllocationResponses converts a slice of allocations
func ToAllocationResponses(allocations []*allocation.Allocation) []AllocationResponse {
	responses := make([]AllocationResponse, 0, len(allocations))
	for _, a := range allocations {
		responses = append(responses, ToAllocationResponse(a))
	}
	return responses
}

// toSlabSet converts slab inputs to the domain slab set
func toSlabSet(inputs []SlabInput) contract.SlabSet {
	if len(inputs) == 0 {
		return nil
	}
	slabs := make(contract.SlabSet, 0, len(inputs))
	for _, in := range inputs {
		slabs = append(slabs, contract.Slab{From: in.From, To: in.To, Rate: in.Rate})
	}
	return slabs
}

// toPricingRule builds the domain rule from the request input, stamped
// with the contract's pricing model as its kind.
func toPricingRule(kind contract.PricingModel, in PricingRuleInput) contract.PricingRule {
	return contract.PricingRule{
		Kind:          kind,
		BWLimit:       in.BWLimit,
		ColorLimit:    in.ColorLimit,
		BWRate:        in.BWRate,
		ColorRate:     in.ColorRate,
		BWSlabs:       toSlabSet(in.BWSlabs),
		ColorSlabs:    toSlabSet(in.ColorSlabs),
		CombinedLimit: in.CombinedLimit,
		CombinedRate:  in.CombinedRate,
		CombinedSlabs: toSlabSet(in.CombinedSlabs),
	}
}
