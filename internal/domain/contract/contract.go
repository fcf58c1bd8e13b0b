package contract

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SaleType distinguishes how the equipment is handed to the customer
type SaleType string

const (
	SaleTypeSale  SaleType = "SALE"
	SaleTypeRent  SaleType = "RENT"
	SaleTypeLease SaleType = "LEASE"
)

// IsValid checks if the sale type is known
func (s SaleType) IsValid() bool {
	switch s {
	case SaleTypeSale, SaleTypeRent, SaleTypeLease:
		return true
	}
	return false
}

// LifecycleType tracks which billing document the contract currently is.
// A quotation, an active (proforma) contract and the final settled invoice
// are the same aggregate at different lifecycle stages.
type LifecycleType string

const (
	LifecycleQuotation LifecycleType = "QUOTATION"
	LifecycleProforma  LifecycleType = "PROFORMA"
	LifecycleFinal     LifecycleType = "FINAL"
)

// LeaseKind distinguishes the two lease sub-types: usage-sensitive (FSM)
// and fixed-installment, usage-insensitive (EMI).
type LeaseKind string

const (
	LeaseKindFSM LeaseKind = "FSM"
	LeaseKindEMI LeaseKind = "EMI"
)

// AdvanceMode is how the security deposit / advance was collected
type AdvanceMode string

const (
	AdvanceModeCash     AdvanceMode = "CASH"
	AdvanceModeCheque   AdvanceMode = "CHEQUE"
	AdvanceModeTransfer AdvanceMode = "TRANSFER"
)

// BillingCycle is the length of one billing period
type BillingCycle string

const (
	BillingCycleMonthly    BillingCycle = "MONTHLY"
	BillingCycleQuarterly  BillingCycle = "QUARTERLY"
	BillingCycleHalfYearly BillingCycle = "HALF_YEARLY"
	BillingCycleYearly     BillingCycle = "YEARLY"
	BillingCycleCustomDays BillingCycle = "CUSTOM_DAYS"
)

// Advance adds one billing period to the given date.
// customDays is only consulted for BillingCycleCustomDays; any
// unrecognized cycle falls back to monthly.
func (c BillingCycle) Advance(from time.Time, customDays int) time.Time {
	switch c {
	case BillingCycleQuarterly:
		return from.AddDate(0, 3, 0)
	case BillingCycleHalfYearly:
		return from.AddDate(0, 6, 0)
	case BillingCycleYearly:
		return from.AddDate(1, 0, 0)
	case BillingCycleCustomDays:
		if customDays > 0 {
			return from.AddDate(0, 0, customDays)
		}
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Status represents the lifecycle state of a contract
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusSent             Status = "SENT"
	StatusEmployeeApproved Status = "EMPLOYEE_APPROVED"
	StatusApproved         Status = "APPROVED"
	StatusIssued           Status = "ISSUED"
	StatusActive           Status = "ACTIVE"
	StatusRejected         Status = "REJECTED"
	StatusCancelled        Status = "CANCELLED"
	StatusCompleted        Status = "COMPLETED"
)

// IsValid checks if the status is a known contract status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusEmployeeApproved, StatusApproved,
		StatusIssued, StatusActive, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for states no contract ever leaves
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// CanTransitionTo checks whether the status may move to the target status.
// The lifecycle only ever moves forward; completed, rejected and cancelled
// contracts cannot be resurrected.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusSent || target == StatusEmployeeApproved ||
			target == StatusApproved || target == StatusCancelled
	case StatusSent:
		return target == StatusEmployeeApproved || target == StatusApproved ||
			target == StatusCancelled
	case StatusEmployeeApproved:
		return target == StatusIssued || target == StatusActive || target == StatusRejected
	case StatusApproved:
		return target == StatusActive || target == StatusCompleted
	case StatusIssued, StatusActive:
		return target == StatusCompleted
	}
	return false
}

// ItemRole distinguishes the two kinds of contract line items
type ItemRole string

const (
	// ItemRoleProduct is a sellable line backed by a physical unit
	ItemRoleProduct ItemRole = "PRODUCT"
	// ItemRolePricing is a pricing-policy line carrying limits/rates/slabs
	ItemRolePricing ItemRole = "PRICING"
)

// Item is a contract line item. It is exclusively owned by its contract
// and cascade-deleted with it.
type Item struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	Role        ItemRole
	Description string

	// Product-role fields
	UnitID          *uuid.UUID
	SerialNumber    string
	InitialReadings valueobject.MeterReading

	// Pricing-role fields
	Rule *PricingRule

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RequiresUnit reports whether finance approval must allocate a physical
// unit for this line.
func (i *Item) RequiresUnit() bool {
	return i.Role == ItemRoleProduct
}

// Contract is the central aggregate: a customer agreement for sale, rent
// or lease of metered equipment, modeled as the same aggregate as its
// invoice across the whole lifecycle.
type Contract struct {
	shared.TenantAggregateRoot
	ContractNumber string
	BranchID       uuid.UUID
	CustomerID     uuid.UUID
	CustomerName   string

	SaleType      SaleType
	LifecycleType LifecycleType
	Status        Status
	PricingModel  PricingModel
	LeaseKind     LeaseKind

	MonthlyRent     decimal.Decimal
	DiscountPercent decimal.Decimal
	AdvanceAmount   decimal.Decimal
	AdvanceMode     AdvanceMode
	AdvanceBalance  decimal.Decimal

	EffectiveFrom    *time.Time
	EffectiveTo      *time.Time
	BillingCycle     BillingCycle
	BillingCycleDays int
	LeaseTenure      int // tenure in months; 0 = sale or indefinite rent

	// Settlement totals, populated when the contract completes
	GrossTotal decimal.Decimal
	NetTotal   decimal.Decimal

	Items []Item

	EmployeeApprovedBy *uuid.UUID
	EmployeeApprovedAt *time.Time
	FinanceApprovedBy  *uuid.UUID
	FinanceApprovedAt  *time.Time
	RejectedReason     string
	RejectedAt         *time.Time
	CancelReason       string
	CancelledAt        *time.Time
	CompletedAt        *time.Time
}

// NewQuotation creates a new contract in the quotation stage
func NewQuotation(tenantID uuid.UUID, contractNumber string, branchID, customerID uuid.UUID, customerName string, saleType SaleType, model PricingModel) (*Contract, error) {
	if contractNumber == "" {
		return nil, shared.NewDomainError("INVALID_CONTRACT_NUMBER", "Contract number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !saleType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SALE_TYPE", fmt.Sprintf("Unknown sale type %q", saleType))
	}
	if !model.IsValid() {
		return nil, shared.NewDomainError("INVALID_PRICING_MODEL", fmt.Sprintf("Unknown pricing model %q", model))
	}

	c := &Contract{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ContractNumber:      contractNumber,
		BranchID:            branchID,
		CustomerID:          customerID,
		CustomerName:        customerName,
		SaleType:            saleType,
		LifecycleType:       LifecycleQuotation,
		Status:              StatusDraft,
		PricingModel:        model,
		BillingCycle:        BillingCycleMonthly,
		MonthlyRent:         decimal.Zero,
		DiscountPercent:     decimal.Zero,
		AdvanceAmount:       decimal.Zero,
		AdvanceBalance:      decimal.Zero,
		GrossTotal:          decimal.Zero,
		NetTotal:            decimal.Zero,
		Items:               make([]Item, 0),
	}

	c.AddDomainEvent(NewContractCreatedEvent(c))

	return c, nil
}

// SetMonetaryTerms sets rent, discount and advance terms.
// Only allowed while the contract is still a quotation.
func (c *Contract) SetMonetaryTerms(monthlyRent, discountPercent, advanceAmount decimal.Decimal, advanceMode AdvanceMode) error {
	if c.LifecycleType != LifecycleQuotation {
		return shared.NewDomainError("STATE_CONFLICT", "Monetary terms can only change on a quotation")
	}
	if monthlyRent.IsNegative() {
		return shared.NewDomainError("INVALID_RENT", "Monthly rent cannot be negative")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount percent must be between 0 and 100")
	}
	if advanceAmount.IsNegative() {
		return shared.NewDomainError("INVALID_ADVANCE", "Advance amount cannot be negative")
	}
	if c.PricingModel.IsCPC() && monthlyRent.IsPositive() {
		return shared.NewDomainError("INVALID_RENT", "Cost-per-copy pricing must not declare a monthly rent")
	}

	c.MonthlyRent = monthlyRent
	c.DiscountPercent = discountPercent
	c.AdvanceAmount = advanceAmount
	c.AdvanceBalance = advanceAmount
	c.AdvanceMode = advanceMode
	c.UpdatedAt = time.Now()

	return nil
}

// SetSchedule sets the effective dates, billing cycle and lease tenure.
// effectiveTo is immutable once a RENT/LEASE contract has left the
// quotation stage.
func (c *Contract) SetSchedule(effectiveFrom, effectiveTo *time.Time, cycle BillingCycle, cycleDays, tenureMonths int) error {
	if c.LifecycleType != LifecycleQuotation && effectiveTo != nil &&
		(c.SaleType == SaleTypeRent || c.SaleType == SaleTypeLease) {
		return shared.NewDomainError("STATE_CONFLICT", "Effective-to date is immutable on an active contract")
	}
	if effectiveFrom != nil && effectiveTo != nil && effectiveTo.Before(*effectiveFrom) {
		return shared.NewDomainError("INVALID_PERIOD", "Effective-to cannot precede effective-from")
	}
	if cycle == BillingCycleCustomDays && cycleDays <= 0 {
		return shared.NewDomainError("INVALID_BILLING_CYCLE", "Custom billing cycle requires a positive day count")
	}
	if tenureMonths < 0 {
		return shared.NewDomainError("INVALID_TENURE", "Lease tenure cannot be negative")
	}

	c.EffectiveFrom = effectiveFrom
	c.EffectiveTo = effectiveTo
	c.BillingCycle = cycle
	c.BillingCycleDays = cycleDays
	c.LeaseTenure = tenureMonths
	c.UpdatedAt = time.Now()

	return nil
}

// SetLeaseKind selects the lease sub-type (FSM or EMI)
func (c *Contract) SetLeaseKind(kind LeaseKind) error {
	if c.SaleType != SaleTypeLease {
		return shared.NewDomainError("INVALID_SALE_TYPE", "Lease kind only applies to lease contracts")
	}
	c.LeaseKind = kind
	c.UpdatedAt = time.Now()
	return nil
}

// IsUsageInsensitive reports whether this contract is the simplified
// fixed-installment lease sub-type for which meter rollbacks are clamped
// instead of rejected.
func (c *Contract) IsUsageInsensitive() bool {
	return c.SaleType == SaleTypeLease && c.LeaseKind == LeaseKindEMI
}

// AddProductItem adds a sellable line backed by a physical unit.
// Only allowed on a quotation.
func (c *Contract) AddProductItem(description string, unitID *uuid.UUID, serialNumber string, initial valueobject.MeterReading) (*Item, error) {
	if c.LifecycleType != LifecycleQuotation {
		return nil, shared.NewDomainError("STATE_CONFLICT", "Cannot add items to a non-quotation contract")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item description cannot be empty")
	}

	now := time.Now()
	item := Item{
		ID:              uuid.New(),
		ContractID:      c.ID,
		Role:            ItemRoleProduct,
		Description:     description,
		UnitID:          unitID,
		SerialNumber:    serialNumber,
		InitialReadings: initial,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	c.Items = append(c.Items, item)
	c.UpdatedAt = now

	return &c.Items[len(c.Items)-1], nil
}

// AddPricingItem adds a pricing-policy line carrying the rule for this
// contract's pricing model. The rule is validated against the model.
func (c *Contract) AddPricingItem(description string, rule PricingRule) (*Item, error) {
	if c.LifecycleType != LifecycleQuotation {
		return nil, shared.NewDomainError("STATE_CONFLICT", "Cannot add items to a non-quotation contract")
	}
	if rule.Kind != c.PricingModel {
		return nil, shared.NewDomainError("INVALID_PRICING_MODEL",
			fmt.Sprintf("Pricing rule kind %s does not match contract model %s", rule.Kind, c.PricingModel))
	}
	if err := rule.Validate(c.MonthlyRent); err != nil {
		return nil, err
	}

	now := time.Now()
	item := Item{
		ID:          uuid.New(),
		ContractID:  c.ID,
		Role:        ItemRolePricing,
		Description: description,
		Rule:        &rule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.Items = append(c.Items, item)
	c.UpdatedAt = now

	return &c.Items[len(c.Items)-1], nil
}

// PricingRule returns the contract's pricing-policy rule, or nil if no
// pricing line exists (flat contracts may omit it).
func (c *Contract) PricingRule() *PricingRule {
	for idx := range c.Items {
		if c.Items[idx].Role == ItemRolePricing && c.Items[idx].Rule != nil {
			return c.Items[idx].Rule
		}
	}
	return nil
}

// ProductItems returns the sellable lines requiring a physical unit
func (c *Contract) ProductItems() []*Item {
	items := make([]*Item, 0, len(c.Items))
	for idx := range c.Items {
		if c.Items[idx].RequiresUnit() {
			items = append(items, &c.Items[idx])
		}
	}
	return items
}

// ItemByID returns the item with the given ID, or nil
func (c *Contract) ItemByID(itemID uuid.UUID) *Item {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			return &c.Items[idx]
		}
	}
	return nil
}

// MarkSent marks the quotation as sent to the customer
func (c *Contract) MarkSent() error {
	if !c.Status.CanTransitionTo(StatusSent) {
		return shared.NewDomainError("STATE_CONFLICT", fmt.Sprintf("Cannot send contract in %s status", c.Status))
	}
	c.Status = StatusSent
	c.UpdatedAt = time.Now()
	return nil
}

// SubmitForApproval records the employee approval, moving the quotation
// to EMPLOYEE_APPROVED. Allowed only from DRAFT or SENT.
func (c *Contract) SubmitForApproval(approvedBy uuid.UUID) error {
	if !c.Status.CanTransitionTo(StatusEmployeeApproved) {
		return shared.NewDomainError("STATE_CONFLICT", fmt.Sprintf("Cannot submit contract in %s status for approval", c.Status))
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver cannot be empty")
	}

	now := time.Now()
	c.Status = StatusEmployeeApproved
	c.EmployeeApprovedBy = &approvedBy
	c.EmployeeApprovedAt = &now
	c.UpdatedAt = now

	c.AddDomainEvent(NewContractSubmittedEvent(c))

	return nil
}

// Approve is the legacy simple approval path used for flows that do not
// track deposits or allocations: DRAFT/SENT straight to APPROVED with
// lifecycle type PROFORMA.
func (c *Contract) Approve(approvedBy uuid.UUID) error {
	if !c.Status.CanTransitionTo(StatusApproved) {
		return shared.NewDomainError("STATE_CONFLICT", fmt.Sprintf("Cannot approve contract in %s status", c.Status))
	}

	now := time.Now()
	c.Status = StatusApproved
	c.LifecycleType = LifecycleProforma
	c.EmployeeApprovedBy = &approvedBy
	c.EmployeeApprovedAt = &now
	c.UpdatedAt = now

	return nil
}

// FinanceApprove applies the finance-approval branch for the contract's
// sale type: SALE becomes a FINAL issued invoice; RENT and LEASE become
// ACTIVE proforma contracts with a derived effective-to date. The caller
// (application service) is responsible for running this inside the same
// transaction that creates the allocations.
func (c *Contract) FinanceApprove(approvedBy uuid.UUID) error {
	if !c.Status.CanTransitionTo(StatusIssued) && !c.Status.CanTransitionTo(StatusActive) {
		return shared.NewDomainError("STATE_CONFLICT", fmt.Sprintf("Cannot finance-approve contract in %s status", c.Status))
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver cannot be empty")
	}
	if (c.SaleType == SaleTypeSale || c.SaleType == SaleTypeRent) && !c.AdvanceAmount.IsPositive() {
		return shared.NewDomainError("INVALID_ADVANCE", "A non-zero deposit is required for sale and rent contracts")
	}

	now := time.Now()

	switch c.SaleType {
	case SaleTypeSale:
		c.LifecycleType = LifecycleFinal
		c.Status = StatusIssued
	case SaleTypeRent:
		c.LifecycleType = LifecycleProforma
		c.Status = StatusActive
		if c.EffectiveTo == nil && c.EffectiveFrom != nil {
			to := c.BillingCycle.Advance(*c.EffectiveFrom, c.BillingCycleDays)
			c.EffectiveTo = &to
		}
	case SaleTypeLease:
		c.LifecycleType = LifecycleProforma
		c.Status = StatusActive
		if c.EffectiveTo == nil && c.EffectiveFrom != nil && c.LeaseTenure > 0 {
			to := c.EffectiveFrom.AddDate(0, c.LeaseTenure, 0)
			c.EffectiveTo = &to
		}
	}

	c.FinanceApprovedBy = &approvedBy
	c.FinanceApprovedAt = &now
	c.UpdatedAt = now

	c.AddDomainEvent(NewContractFinanceApprovedEvent(c))

	return nil
}

// FinanceReject rejects an employee-approved contract with a mandatory reason
func (c *Contract) FinanceReject(rejectedBy uuid.UUID, reason string) error {
	if !c.Status.CanTransitionTo(StatusRejected) {
		return shared.NewDomainError("STATE_CONFLICT", fmt.Sprintf("Cannot reject contract in %s status", c.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}

	now := time.Now()
	c.Status = StatusRejected
	c.RejectedReason = reason
	c.RejectedAt = &now
	c.UpdatedAt = now

	c.AddDomainEvent(NewContractRejectedEvent(c, rejectedBy))

	return nil
}

// Cancel cancels a quotation that has not entered the approval pipeline
func (c *Contract) Cancel(reason string) error {
	if !c.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("STATE_CONFLICT", fmt.Sprintf("Cannot cancel contract in %s status", c.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	c.Status = StatusCancelled
	c.CancelReason = reason
	c.CancelledAt = &now
	c.UpdatedAt = now

	return nil
}

// ConsumeAdvance decrements the running advance balance. The balance may
// go negative when the final period rent exceeds the remaining deposit;
// the shortfall becomes part of the net payable.
func (c *Contract) ConsumeAdvance(amount decimal.Decimal) {
	c.AdvanceBalance = c.AdvanceBalance.Sub(amount)
	c.UpdatedAt = time.Now()
}

// CompleteSettlement closes the contract with its consolidated totals
func (c *Contract) CompleteSettlement(gross, net decimal.Decimal) error {
	if !c.Status.CanTransitionTo(StatusCompleted) {
		return shared.NewDomainError("STATE_CONFLICT", fmt.Sprintf("Cannot complete contract in %s status", c.Status))
	}

	now := time.Now()
	c.Status = StatusCompleted
	c.LifecycleType = LifecycleFinal
	c.GrossTotal = gross
	c.NetTotal = net
	c.CompletedAt = &now
	c.UpdatedAt = now

	c.AddDomainEvent(NewContractCompletedEvent(c))

	return nil
}

// IsActive reports whether usage may be recorded against the contract
func (c *Contract) IsActive() bool {
	return c.Status == StatusActive || c.Status == StatusApproved
}

// ExpectedTenurePeriods returns the number of billing periods the
// contract is expected to run: the lease tenure when set, otherwise the
// month span of the effective date range, defaulting to 12.
func (c *Contract) ExpectedTenurePeriods() int {
	if c.LeaseTenure > 0 {
		return c.LeaseTenure
	}
	if c.EffectiveFrom != nil && c.EffectiveTo != nil {
		months := (c.EffectiveTo.Year()-c.EffectiveFrom.Year())*12 +
			int(c.EffectiveTo.Month()) - int(c.EffectiveFrom.Month())
		if months > 0 {
			return months
		}
	}
	return 12
}
