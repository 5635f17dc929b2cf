package models

// ConfidenceBand exposes a continuous confidence value as one of five
// discrete levels. Banding is total and monotone: every value in [0,1]
// maps to exactly one band, and a higher value never maps to a lower band.
type ConfidenceBand string

const (
	BandVeryLow  ConfidenceBand = "VERY_LOW"
	BandLow      ConfidenceBand = "LOW"
	BandMedium   ConfidenceBand = "MEDIUM"
	BandHigh     ConfidenceBand = "HIGH"
	BandVeryHigh ConfidenceBand = "VERY_HIGH"
)

// Band boundaries: values below the boundary belong to the band, the
// boundary itself belongs to the next band up (0.3 is LOW, 0.9 is VERY_HIGH).
const (
	boundaryVeryLow = 0.3
	boundaryLow     = 0.5
	boundaryMedium  = 0.7
	boundaryHigh    = 0.9
)

// BandOf converts a continuous confidence value to its band.
// Values outside [0,1] are clamped first.
func BandOf(confidence float64) ConfidenceBand {
	c := ClampConfidence(confidence)
	switch {
	case c < boundaryVeryLow:
		return BandVeryLow
	case c < boundaryLow:
		return BandLow
	case c < boundaryMedium:
		return BandMedium
	case c < boundaryHigh:
		return BandHigh
	default:
		return BandVeryHigh
	}
}

// Value returns the representative continuous confidence for a band.
// Each representative value maps back to its own band, so conversion
// round-trips within a band (not across bands).
func (b ConfidenceBand) Value() float64 {
	switch b {
	case BandVeryLow:
		return 0.15
	case BandLow:
		return 0.40
	case BandMedium:
		return 0.60
	case BandHigh:
		return 0.80
	case BandVeryHigh:
		return 0.95
	default:
		return 0.5
	}
}

// ClampConfidence clamps a confidence value into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
