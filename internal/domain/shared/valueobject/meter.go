package valueobject

// A3EquivalentFactor is the number of A4-equivalent pages one A3 sheet
// counts as when normalizing usage across paper sizes.
const A3EquivalentFactor = 2

// MeterReading is a value object holding the four absolute counters of a
// page meter: black/white and color, each split by A4 and A3 paper size.
// It is immutable - arithmetic returns new readings.
type MeterReading struct {
	BWA4    int64 `json:"bw_a4"`
	BWA3    int64 `json:"bw_a3"`
	ColorA4 int64 `json:"color_a4"`
	ColorA3 int64 `json:"color_a3"`
}

// NewMeterReading creates a meter reading from the four raw counters
func NewMeterReading(bwA4, bwA3, colorA4, colorA3 int64) MeterReading {
	return MeterReading{BWA4: bwA4, BWA3: bwA3, ColorA4: colorA4, ColorA3: colorA3}
}

// ZeroMeterReading returns an all-zero reading
func ZeroMeterReading() MeterReading {
	return MeterReading{}
}

// Subtract returns the channel-wise difference current - other.
// Deltas may be negative; callers decide whether that is a rollback error.
func (r MeterReading) Subtract(other MeterReading) MeterReading {
	return MeterReading{
		BWA4:    r.BWA4 - other.BWA4,
		BWA3:    r.BWA3 - other.BWA3,
		ColorA4: r.ColorA4 - other.ColorA4,
		ColorA3: r.ColorA3 - other.ColorA3,
	}
}

// HasNegative returns true if any channel is negative
func (r MeterReading) HasNegative() bool {
	return r.BWA4 < 0 || r.BWA3 < 0 || r.ColorA4 < 0 || r.ColorA3 < 0
}

// IsZero returns true if all four channels are zero
func (r MeterReading) IsZero() bool {
	return r.BWA4 == 0 && r.BWA3 == 0 && r.ColorA4 == 0 && r.ColorA3 == 0
}

// ClampNegativeToZero returns a copy with negative channels set to zero
func (r MeterReading) ClampNegativeToZero() MeterReading {
	clamp := func(v int64) int64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return MeterReading{
		BWA4:    clamp(r.BWA4),
		BWA3:    clamp(r.BWA3),
		ColorA4: clamp(r.ColorA4),
		ColorA3: clamp(r.ColorA3),
	}
}

// NormalizedBW returns the black/white usage in A4-equivalent pages
func (r MeterReading) NormalizedBW() int64 {
	return r.BWA4 + r.BWA3*A3EquivalentFactor
}

// NormalizedColor returns the color usage in A4-equivalent pages
func (r MeterReading) NormalizedColor() int64 {
	return r.ColorA4 + r.ColorA3*A3EquivalentFactor
}

// NormalizedTotal returns the combined usage in A4-equivalent pages
func (r MeterReading) NormalizedTotal() int64 {
	return r.NormalizedBW() + r.NormalizedColor()
}

// UsesColor returns true if either color counter is non-zero
func (r MeterReading) UsesColor() bool {
	return r.ColorA4 != 0 || r.ColorA3 != 0
}
