package models

import (
	"fmt"
	"time"
)

// Claim is a single dependency assertion "fromService depends on toService"
// extracted from one observational source. Claims are immutable once
// validated and persisted; the fluent With* setters are only used during
// construction inside adapters.
type Claim struct {
	FromService    string         `json:"fromService"`
	ToService      string         `json:"toService"`
	DependencyType DependencyType `json:"dependencyType"`
	Confidence     float64        `json:"confidence"`
	Source         string         `json:"source"`
	Timestamp      time.Time      `json:"timestamp"`
	RawData        string         `json:"rawData"`
	Metadata       Metadata       `json:"metadata"`
}

// NewClaim creates a claim with the dependency type's intrinsic default
// confidence and an empty metadata map. The timestamp defaults to now and
// is overwritten by adapters when the raw data carries one.
func NewClaim(from, to string, depType DependencyType, source string) *Claim {
	return &Claim{
		FromService:    from,
		ToService:      to,
		DependencyType: depType,
		Confidence:     depType.DefaultConfidence(),
		Source:         source,
		Timestamp:      time.Now(),
		Metadata:       NewMetadata(),
	}
}

// WithConfidence sets the confidence, clamped to [0,1].
func (c *Claim) WithConfidence(confidence float64) *Claim {
	c.Confidence = ClampConfidence(confidence)
	return c
}

// WithTimestamp sets the observation timestamp.
func (c *Claim) WithTimestamp(ts time.Time) *Claim {
	c.Timestamp = ts
	return c
}

// WithSource overrides the source tag, e.g. when the raw data itself
// declares where the claim came from.
func (c *Claim) WithSource(source string) *Claim {
	c.Source = source
	return c
}

// WithRawData attaches the originating line or record for audit.
func (c *Claim) WithRawData(raw string) *Claim {
	c.RawData = raw
	return c
}

// WithMeta adds a metadata key/value pair.
func (c *Claim) WithMeta(key, value string) *Claim {
	c.Metadata.Set(key, value)
	return c
}

// Band returns the claim's confidence band.
func (c *Claim) Band() ConfidenceBand {
	return BandOf(c.Confidence)
}

// EdgeKey returns the directed edge identity "from->to".
func (c *Claim) EdgeKey() string {
	return EdgeKey(c.FromService, c.ToService)
}

// Validate checks the claim's structural invariants.
func (c *Claim) Validate() error {
	if c.FromService == "" {
		return NewValidationError("claim is missing fromService")
	}
	if c.ToService == "" {
		return NewValidationError("claim is missing toService")
	}
	if c.FromService == c.ToService {
		return NewValidationError("self-loop claim %s -> %s rejected", c.FromService, c.ToService)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return NewValidationError("confidence %f outside [0,1]", c.Confidence)
	}
	if c.Source == "" {
		return NewValidationError("claim is missing source")
	}
	if !c.DependencyType.Valid() {
		return NewValidationError("unknown dependency type %q", c.DependencyType)
	}
	return nil
}

// Clone returns a deep copy of the claim.
func (c *Claim) Clone() *Claim {
	out := *c
	out.Metadata = c.Metadata.Clone()
	return &out
}

// EdgeKey builds the canonical string identity of a directed edge.
func EdgeKey(from, to string) string {
	return fmt.Sprintf("%s->%s", from, to)
}
