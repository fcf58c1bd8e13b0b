package metering

import (
	"time"

	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Settlement is the consolidated outcome of closing out a contract's
// full usage history into one final invoice.
type Settlement struct {
	ContractID     string          `json:"contract_id"`
	ContractNumber string          `json:"contract_number"`
	Periods        int             `json:"periods"`
	GrossTotal     decimal.Decimal `json:"gross_total"`
	AdvanceApplied decimal.Decimal `json:"advance_applied"`
	NetTotal       decimal.Decimal `json:"net_total"`
	SettledAt      time.Time       `json:"settled_at"`
}

// SettlementService detects when a contract's metered tenure is complete
// and consolidates its usage history. It is a pure domain service; the
// application layer supplies persistence and transactions.
type SettlementService struct{}

// NewSettlementService creates a new SettlementService
func NewSettlementService() *SettlementService {
	return &SettlementService{}
}

// IsFinalPeriod reports whether a usage record ending on periodEnd closes
// the contract: the period end must equal the contract's effective-to
// date by strict calendar-date comparison, time of day ignored.
func (s *SettlementService) IsFinalPeriod(c *contract.Contract, periodEnd time.Time) bool {
	if c.EffectiveTo == nil {
		return false
	}
	return SameCalendarDay(periodEnd, *c.EffectiveTo)
}

// Consolidate sums rent and excess charge across the full usage history.
// Gross is the sum of every period's rent plus excess; net is gross minus
// the total deposit applied over the contract's life.
func (s *SettlementService) Consolidate(c *contract.Contract, history []MeterUsage) Settlement {
	gross := decimal.Zero
	advance := decimal.Zero
	for idx := range history {
		gross = gross.Add(history[idx].GrossCharge())
		advance = advance.Add(history[idx].AdvanceAdjusted)
	}

	return Settlement{
		ContractID:     c.ID.String(),
		ContractNumber: c.ContractNumber,
		Periods:        len(history),
		GrossTotal:     gross,
		AdvanceApplied: advance,
		NetTotal:       gross.Sub(advance),
		SettledAt:      time.Now(),
	}
}

// ValidateManualConsolidation guards the manual consolidation path, used
// when no single usage record's period end coincides with effective-to:
// the recorded period count must have reached the contract's expected
// tenure.
func (s *SettlementService) ValidateManualConsolidation(c *contract.Contract, recordedPeriods int) error {
	expected := c.ExpectedTenurePeriods()
	if recordedPeriods < expected {
		return shared.NewDomainError("TENURE_INCOMPLETE",
			"Contract tenure is not complete: recorded periods have not reached the expected tenure")
	}
	return nil
}
