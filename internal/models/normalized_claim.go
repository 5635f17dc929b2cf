package models

import "time"

// Provenance records one raw claim that contributed to a normalized claim:
// where it came from, when, the original line, and the confidence before
// calibration. Merged claims carry one provenance entry per input, in
// stable input order.
type Provenance struct {
	Source             string    `json:"source"`
	Timestamp          time.Time `json:"timestamp"`
	RawData            string    `json:"rawData"`
	OriginalConfidence float64   `json:"originalConfidence"`
	OriginalMetadata   Metadata  `json:"originalMetadata"`
}

// ProvenanceOf builds a provenance record from a raw claim.
func ProvenanceOf(c *Claim) Provenance {
	return Provenance{
		Source:             c.Source,
		Timestamp:          c.Timestamp,
		RawData:            c.RawData,
		OriginalConfidence: c.Confidence,
		OriginalMetadata:   c.Metadata.Clone(),
	}
}

// NormalizedClaim wraps a canonicalized claim together with the provenance
// of every raw claim merged into it. Every normalized claim has at least
// one provenance entry.
type NormalizedClaim struct {
	Claim      *Claim       `json:"claim"`
	Provenance []Provenance `json:"provenance"`
}
