package metering

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/meterbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ==================== Request DTOs ====================

// RecordReadingRequest represents a meter reading submission for one
// billing period
type RecordReadingRequest struct {
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
	BWA4        int64     `json:"bw_a4"`
	BWA3        int64     `json:"bw_a3"`
	ColorA4     int64     `json:"color_a4"`
	ColorA3     int64     `json:"color_a3"`
	PhotoURL    string    `json:"photo_url"`
}

// Readings assembles the four counters into a meter reading
func (r RecordReadingRequest) Readings() valueobject.MeterReading {
	return valueobject.NewMeterReading(r.BWA4, r.BWA3, r.ColorA4, r.ColorA3)
}

// ListFilter filters the usage history endpoint
type ListFilter struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// ==================== Response DTOs ====================

// UsageResponse is one recorded billing period
type UsageResponse struct {
	ID              uuid.UUID                `json:"id"`
	ContractID      uuid.UUID                `json:"contract_id"`
	PeriodStart     time.Time                `json:"period_start"`
	PeriodEnd       time.Time                `json:"period_end"`
	Readings        valueobject.MeterReading `json:"readings"`
	Deltas          valueobject.MeterReading `json:"deltas"`
	ExcessUsage     int64                    `json:"excess_usage"`
	ExcessCharge    decimal.Decimal          `json:"excess_charge"`
	PeriodRent      decimal.Decimal          `json:"period_rent"`
	AdvanceAdjusted decimal.Decimal          `json:"advance_adjusted"`
	PayableTotal    decimal.Decimal          `json:"payable_total"`
	PhotoURL        string                   `json:"photo_url,omitempty"`
	Final           bool                     `json:"final"`
	CreatedAt       time.Time                `json:"created_at"`
}

// RecordReadingResponse is the outcome of recording one period. When the
// period closed the contract, Settlement carries the consolidated final
// invoice.
type RecordReadingResponse struct {
	Usage      UsageResponse        `json:"usage"`
	Settled    bool                 `json:"settled"`
	Settlement *metering.Settlement `json:"settlement,omitempty"`
}

// ==================== Converters ====================

// ToUsageResponse converts a usage record to its response DTO
func ToUsageResponse(u *metering.MeterUsage) UsageResponse {
	return UsageResponse{
		ID:              u.ID,
		ContractID:      u.ContractID,
		PeriodStart:     u.PeriodStart,
		PeriodEnd:       u.PeriodEnd,
		Readings:        u.Readings,
		Deltas:          u.Deltas,
		ExcessUsage:     u.ExcessUsage,
		ExcessCharge:    u.ExcessCharge,
		PeriodRent:      u.PeriodRent,
		AdvanceAdjusted: u.AdvanceAdjusted,
		PayableTotal:    u.PayableTotal,
		PhotoURL:        u.PhotoURL,
		Final:           u.Final,
		CreatedAt:       u.CreatedAt,
	}
}

// ToUsageResponses converts a usage history slice
func ToUsageResponses(history []metering.MeterUsage) []UsageResponse {
	responses := make([]UsageResponse, 0, len(history))
	for idx := range history {
		responses = append(responses, ToUsageResponse(&history[idx]))
	}
	return responses
}
