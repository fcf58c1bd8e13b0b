package contract

import (
	"fmt"

	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PricingModel identifies how metered usage on a contract turns into
// money. The five models form a closed set; the evaluator switches
// exhaustively over them.
type PricingModel string

const (
	// PricingFixedLimit prices BW and Color excess independently against
	// per-channel included limits
	PricingFixedLimit PricingModel = "FIXED_LIMIT"
	// PricingFixedCombo prices the combined BW+Color excess against one limit
	PricingFixedCombo PricingModel = "FIXED_COMBO"
	// PricingFlat charges the monthly rent verbatim; usage is not priced
	PricingFlat PricingModel = "FLAT"
	// PricingCPC prices every copy, per channel, via slabs or a flat rate
	PricingCPC PricingModel = "CPC"
	// PricingCPCCombo prices every copy against one combined slab set
	PricingCPCCombo PricingModel = "CPC_COMBO"
)

// IsValid checks if the pricing model is known
func (m PricingModel) IsValid() bool {
	switch m {
	case PricingFixedLimit, PricingFixedCombo, PricingFlat, PricingCPC, PricingCPCCombo:
		return true
	}
	return false
}

// IsCPC reports whether the model is a cost-per-copy variant
func (m PricingModel) IsCPC() bool {
	return m == PricingCPC || m == PricingCPCCombo
}

// IsMetered reports whether the model bills from meter deltas. Only
// FLAT ignores the counters.
func (m PricingModel) IsMetered() bool {
	return m != PricingFlat
}

// Slab is a usage-quantity range with its own per-unit rate
type Slab struct {
	From int64           `json:"from"`
	To   int64           `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// Contains reports whether qty falls inside the slab's inclusive range
func (s Slab) Contains(qty int64) bool {
	return qty >= s.From && qty <= s.To
}

// SlabSet is an ordered list of non-overlapping slabs
type SlabSet []Slab

// Validate checks the slabs are well-formed and non-overlapping
func (s SlabSet) Validate() error {
	for i, slab := range s {
		if slab.From > slab.To {
			return shared.NewDomainError("INVALID_SLAB", fmt.Sprintf("Slab %d has from > to", i))
		}
		if slab.Rate.IsNegative() {
			return shared.NewDomainError("INVALID_SLAB", fmt.Sprintf("Slab %d has a negative rate", i))
		}
		for j := i + 1; j < len(s); j++ {
			if slab.From <= s[j].To && s[j].From <= slab.To {
				return shared.NewDomainError("INVALID_SLAB", fmt.Sprintf("Slabs %d and %d overlap", i, j))
			}
		}
	}
	return nil
}

// RateFor returns the per-unit rate of the unique slab containing qty.
// A quantity covered by no slab rates at zero: callers are expected to
// supply a catch-all top slab if that is not the intended policy.
func (s SlabSet) RateFor(qty int64) decimal.Decimal {
	for _, slab := range s {
		if slab.Contains(qty) {
			return slab.Rate
		}
	}
	return decimal.Zero
}

// Charge prices the whole quantity at the rate of the slab containing it.
// The lookup is non-progressive: one rate applies to the entire quantity,
// not bracketed portions of it.
func (s SlabSet) Charge(qty int64) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return s.RateFor(qty).Mul(decimal.NewFromInt(qty))
}

// PricingRule is a discriminated union over the pricing models. Only the
// fields relevant to its Kind are consulted; the rest stay zero.
type PricingRule struct {
	Kind PricingModel `json:"kind"`

	// Per-channel fields (FIXED_LIMIT, CPC)
	BWLimit    int64           `json:"bw_limit,omitempty"`
	ColorLimit int64           `json:"color_limit,omitempty"`
	BWRate     decimal.Decimal `json:"bw_rate,omitempty"`
	ColorRate  decimal.Decimal `json:"color_rate,omitempty"`
	BWSlabs    SlabSet         `json:"bw_slabs,omitempty"`
	ColorSlabs SlabSet         `json:"color_slabs,omitempty"`

	// Combined fields (FIXED_COMBO, CPC_COMBO)
	CombinedLimit int64           `json:"combined_limit,omitempty"`
	CombinedRate  decimal.Decimal `json:"combined_rate,omitempty"`
	CombinedSlabs SlabSet         `json:"combined_slabs,omitempty"`
}

// Validate checks the rule against its model's creation-time constraints:
// fixed models must not declare slabs, CPC models must not ride on a
// positive monthly rent, and any slab set must be well-formed.
func (r PricingRule) Validate(monthlyRent decimal.Decimal) error {
	if !r.Kind.IsValid() {
		return shared.NewDomainError("INVALID_PRICING_MODEL", fmt.Sprintf("Unknown pricing model %q", r.Kind))
	}

	for _, set := range []SlabSet{r.BWSlabs, r.ColorSlabs, r.CombinedSlabs} {
		if err := set.Validate(); err != nil {
			return err
		}
	}

	switch r.Kind {
	case PricingFixedLimit, PricingFixedCombo:
		if len(r.BWSlabs) > 0 || len(r.ColorSlabs) > 0 || len(r.CombinedSlabs) > 0 {
			return shared.NewDomainError("INVALID_PRICING_MODEL", "Fixed pricing must not declare slabs")
		}
		if r.BWLimit < 0 || r.ColorLimit < 0 || r.CombinedLimit < 0 {
			return shared.NewDomainError("INVALID_LIMIT", "Included limits cannot be negative")
		}
		if r.BWRate.IsNegative() || r.ColorRate.IsNegative() || r.CombinedRate.IsNegative() {
			return shared.NewDomainError("INVALID_RATE", "Excess rates cannot be negative")
		}
	case PricingFlat:
		// The rent is the whole charge; no usage fields apply.
	case PricingCPC, PricingCPCCombo:
		if monthlyRent.IsPositive() {
			return shared.NewDomainError("INVALID_RENT", "Cost-per-copy pricing must not declare a monthly rent")
		}
	}

	return nil
}

// UsageCharge is the outcome of evaluating one billing period's usage
type UsageCharge struct {
	ExcessQuantity int64
	Charge         decimal.Decimal
}

// EvaluateExcess maps the period's normalized BW and Color usage to the
// excess quantity and its monetary charge for this rule's model.
func (r PricingRule) EvaluateExcess(bwUsage, colorUsage int64) UsageCharge {
	switch r.Kind {
	case PricingFixedLimit:
		bwExcess := maxInt64(0, bwUsage-r.BWLimit)
		colorExcess := maxInt64(0, colorUsage-r.ColorLimit)
		charge := priceQuantity(bwExcess, r.BWSlabs, r.BWRate).
			Add(priceQuantity(colorExcess, r.ColorSlabs, r.ColorRate))
		return UsageCharge{ExcessQuantity: bwExcess + colorExcess, Charge: charge}

	case PricingFixedCombo:
		excess := maxInt64(0, bwUsage+colorUsage-r.CombinedLimit)
		return UsageCharge{
			ExcessQuantity: excess,
			Charge:         priceQuantity(excess, r.CombinedSlabs, r.CombinedRate),
		}

	case PricingFlat:
		// Flat contracts charge the rent verbatim; usage is never priced.
		return UsageCharge{ExcessQuantity: 0, Charge: decimal.Zero}

	case PricingCPC:
		// Every copy is priced, not just the excess over a limit.
		charge := priceQuantity(bwUsage, r.BWSlabs, r.BWRate).
			Add(priceQuantity(colorUsage, r.ColorSlabs, r.ColorRate))
		return UsageCharge{ExcessQuantity: bwUsage + colorUsage, Charge: charge}

	case PricingCPCCombo:
		total := bwUsage + colorUsage
		if len(r.CombinedSlabs) > 0 || !r.CombinedRate.IsZero() {
			return UsageCharge{
				ExcessQuantity: total,
				Charge:         priceQuantity(total, r.CombinedSlabs, r.CombinedRate),
			}
		}
		charge := r.BWSlabs.Charge(bwUsage).Add(r.ColorSlabs.Charge(colorUsage))
		return UsageCharge{ExcessQuantity: total, Charge: charge}
	}

	return UsageCharge{ExcessQuantity: 0, Charge: decimal.Zero}
}

// NetPayable applies the contract discount to the gross period charge and
// floors the result at zero.
func NetPayable(rent, excessCharge, discountPercent decimal.Decimal) decimal.Decimal {
	gross := rent.Add(excessCharge)
	net := gross.Sub(gross.Mul(discountPercent).Div(decimal.NewFromInt(100)))
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// priceQuantity prices a quantity by slab lookup when slabs are declared,
// falling back to a flat per-unit rate otherwise.
func priceQuantity(qty int64, slabs SlabSet, rate decimal.Decimal) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	if len(slabs) > 0 {
		return slabs.Charge(qty)
	}
	return rate.Mul(decimal.NewFromInt(qty))
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
