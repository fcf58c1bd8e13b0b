package metering

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MeterUsage is the immutable record of one billing period's consumption
// on a contract: the four raw absolute counters, the deltas against the
// previous record (or the allocation baseline for the first period), and
// the money computed from them. Corrections are made with new records,
// never by editing an existing one.
type MeterUsage struct {
	shared.BaseEntity
	TenantID   uuid.UUID
	ContractID uuid.UUID

	PeriodStart time.Time
	PeriodEnd   time.Time

	Readings valueobject.MeterReading // absolute counters at period end
	Deltas   valueobject.MeterReading // consumption within the period

	ExcessUsage     int64           // excess quantity in A4-equivalent pages
	ExcessCharge    decimal.Decimal // money for the excess (or all usage, for CPC)
	PeriodRent      decimal.Decimal // rent charged for the period
	AdvanceAdjusted decimal.Decimal // deposit consumed in the period
	PayableTotal    decimal.Decimal // net payable after discount

	PhotoURL   string // object-storage reference for meter photo evidence
	Final      bool   // true for the record that settled the contract
	RecordedBy *uuid.UUID
}

// ComputeDeltas converts an absolute reading into per-period consumption
// against the given baseline. A negative channel delta is a meter
// rollback and is rejected, and an all-zero period is rejected as "no
// usage detected" - except for usage-insensitive (EMI) contracts, where
// rollbacks are clamped to zero and zero periods are admitted.
func ComputeDeltas(current, baseline valueobject.MeterReading, usageInsensitive bool) (valueobject.MeterReading, error) {
	deltas := current.Subtract(baseline)

	if deltas.HasNegative() {
		if !usageInsensitive {
			return valueobject.MeterReading{}, shared.ErrMeterRollback
		}
		deltas = deltas.ClampNegativeToZero()
	}

	if deltas.IsZero() && !usageInsensitive {
		return valueobject.MeterReading{}, shared.ErrNoUsageDetected
	}

	return deltas, nil
}

// NewMeterUsage records one billing period against an active contract.
// baseline is the previous record's raw counters, or the allocation's
// initial readings for the contract's first period.
func NewMeterUsage(c *contract.Contract, baseline, current valueobject.MeterReading, periodStart, periodEnd time.Time, recordedBy *uuid.UUID) (*MeterUsage, error) {
	if !c.IsActive() {
		return nil, shared.NewDomainError("STATE_CONFLICT", "Usage can only be recorded on an active contract")
	}
	if periodEnd.Before(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end cannot be before period start")
	}
	if c.EffectiveTo != nil && periodEnd.After(endOfDay(*c.EffectiveTo)) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end cannot exceed the contract's effective-to date")
	}

	deltas, err := ComputeDeltas(current, baseline, c.IsUsageInsensitive())
	if err != nil {
		return nil, err
	}

	rent := c.MonthlyRent
	charge := contract.UsageCharge{}
	if rule := c.PricingRule(); rule != nil {
		charge = rule.EvaluateExcess(deltas.NormalizedBW(), deltas.NormalizedColor())
	}

	return &MeterUsage{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        c.TenantID,
		ContractID:      c.ID,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		Readings:        current,
		Deltas:          deltas,
		ExcessUsage:     charge.ExcessQuantity,
		ExcessCharge:    charge.Charge,
		PeriodRent:      rent,
		AdvanceAdjusted: decimal.Zero,
		PayableTotal:    contract.NetPayable(rent, charge.Charge, c.DiscountPercent),
		RecordedBy:      recordedBy,
	}, nil
}

// WithPhotoURL attaches the meter-photo evidence reference. The bytes
// live in object storage; only the URL string is kept here.
func (u *MeterUsage) WithPhotoURL(url string) *MeterUsage {
	u.PhotoURL = url
	return u
}

// GrossCharge returns rent plus excess for the period
func (u *MeterUsage) GrossCharge() decimal.Decimal {
	return u.PeriodRent.Add(u.ExcessCharge)
}

// MarkFinal flags this record as the one that settled the contract and
// books the period rent against the remaining deposit.
func (u *MeterUsage) MarkFinal() {
	u.Final = true
	u.AdvanceAdjusted = u.PeriodRent
	u.UpdatedAt = time.Now()
}

// endOfDay extends a date to the last instant of its calendar day, so
// that the effective-to bound ignores time of day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// SameCalendarDay reports whether two timestamps fall on the same
// calendar date, ignoring time of day.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
