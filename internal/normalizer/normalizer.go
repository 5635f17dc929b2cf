package normalizer

import (
	"strconv"
	"strings"
	"time"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

// Standard metadata keys injected during normalization.
const (
	MetaSourceType   = "source_type"
	MetaNormalizedAt = "normalized_at"
	MetaMergedFrom   = "merged_from_sources"
	MetaAllSources   = "all_sources"
)

// defaultAliases maps alternate service names to their canonical form.
// Applied before suffix rules.
var defaultAliases = map[string]string{
	"mysql-primary":    "mysql-database",
	"mysql-db":         "mysql-database",
	"postgres-primary": "postgres-database",
	"auth-service":     "authentication-service",
	"users-service":    "user-service",
}

// defaultSourceWeights calibrates raw confidence per source type. Sources
// not listed use the fallback weight.
var defaultSourceWeights = map[string]float64{
	"configuration-file": 1.0,
	"router-log":         0.9,
	"network-discovery":  0.7,
}

const fallbackSourceWeight = 0.5

// canonicalSuffixes marks names that already carry a role suffix; suffix
// rules never touch these.
var canonicalSuffixes = []string{"-service", "-database", "-broker", "-kafka", "-db", "-cache"}

// suffixRules appends a role suffix based on substring cues, checked in
// order. First matching cue wins.
var suffixRules = []struct {
	cues   []string
	suffix string
}{
	{[]string{"sql", "db"}, "-database"},
	{[]string{"kafka", "queue", "broker"}, "-broker"},
	{[]string{"cache", "redis"}, "-service"},
}

// Normalizer canonicalizes service names, calibrates confidence per
// source, normalizes metadata, and merges duplicate edges within a batch.
// Its tables are fixed at construction; changing them at runtime would
// require re-normalizing everything already stored.
type Normalizer struct {
	aliases map[string]string
	weights map[string]float64
	logger  *logging.Logger
	now     func() time.Time
}

// Option customizes a Normalizer.
type Option func(*Normalizer)

// WithAliases adds alias entries on top of the built-in table. Entries
// with the same key replace the built-in ones.
func WithAliases(aliases map[string]string) Option {
	return func(n *Normalizer) {
		for k, v := range aliases {
			n.aliases[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
		}
	}
}

// WithSourceWeights overrides calibration weights per source type.
func WithSourceWeights(weights map[string]float64) Option {
	return func(n *Normalizer) {
		for k, v := range weights {
			n.weights[k] = v
		}
	}
}

// withClock overrides the normalized_at clock in tests.
func withClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// New creates a Normalizer with the built-in alias and weight tables.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		aliases: make(map[string]string, len(defaultAliases)),
		weights: make(map[string]float64, len(defaultSourceWeights)),
		logger:  logging.GetLogger("normalizer"),
		now:     time.Now,
	}
	for k, v := range defaultAliases {
		n.aliases[k] = v
	}
	for k, v := range defaultSourceWeights {
		n.weights[k] = v
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Canonicalize maps a service name to its canonical form: lowercase and
// trim, resolve aliases, then apply suffix rules. Idempotent.
func (n *Normalizer) Canonicalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := n.aliases[s]; ok {
		s = canonical
	}
	return applySuffix(s)
}

// applySuffix appends a role suffix when a cue is present and the name
// does not already end in a recognized suffix.
func applySuffix(name string) string {
	for _, suffix := range canonicalSuffixes {
		if strings.HasSuffix(name, suffix) {
			return name
		}
	}
	for _, rule := range suffixRules {
		for _, cue := range rule.cues {
			if strings.Contains(name, cue) {
				return name + rule.suffix
			}
		}
	}
	return name
}

// Normalize runs the full pipeline over one batch: canonicalize names,
// calibrate confidence, normalize metadata, build provenance, and merge
// duplicate edges. The input claims are not modified. A nil batch is
// treated as empty. The output contains exactly one NormalizedClaim per
// distinct canonical edge, ordered by first appearance in the batch.
func (n *Normalizer) Normalize(claims []*models.Claim) []*models.NormalizedClaim {
	groups := make(map[string][]*models.NormalizedClaim)
	var order []string

	for _, raw := range claims {
		if raw == nil {
			continue
		}
		nc := n.normalizeOne(raw)
		if nc == nil {
			continue
		}
		key := nc.Claim.EdgeKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], nc)
	}

	out := make([]*models.NormalizedClaim, 0, len(order))
	for _, key := range order {
		out = append(out, n.merge(groups[key]))
	}
	return out
}

// normalizeOne applies steps 1-4 of the pipeline to a single claim and
// returns it as a single-provenance NormalizedClaim. Claims whose
// endpoints collapse to the same canonical name are dropped.
func (n *Normalizer) normalizeOne(raw *models.Claim) *models.NormalizedClaim {
	provenance := models.ProvenanceOf(raw)

	from := n.Canonicalize(raw.FromService)
	to := n.Canonicalize(raw.ToService)
	if from == to {
		n.logger.Warn("dropping claim %s -> %s: endpoints canonicalize to the same service",
			raw.FromService, raw.ToService)
		return nil
	}

	claim := raw.Clone()
	claim.FromService = from
	claim.ToService = to
	claim.Confidence = n.calibrate(raw)
	claim.Metadata = n.normalizeMetadata(raw)

	return &models.NormalizedClaim{
		Claim:      claim,
		Provenance: []models.Provenance{provenance},
	}
}

// calibrate multiplies confidence by the source weight, then snaps the
// result to its band's representative value. Claims that already went
// through normalization (marked by the normalized_at key) keep their
// calibrated confidence, so normalization is idempotent.
func (n *Normalizer) calibrate(raw *models.Claim) float64 {
	conf := raw.Confidence
	if _, done := raw.Metadata.Get(MetaNormalizedAt); !done {
		conf = models.ClampConfidence(conf * n.sourceWeight(raw.Source))
	}
	return models.BandOf(conf).Value()
}

func (n *Normalizer) sourceWeight(source string) float64 {
	if w, ok := n.weights[source]; ok {
		return w
	}
	return fallbackSourceWeight
}

// normalizeMetadata rewrites metadata keys to lower_snake_case, replaces
// empty values with "unknown", and injects the standard source_type and
// normalized_at keys.
func (n *Normalizer) normalizeMetadata(raw *models.Claim) models.Metadata {
	md := models.NewMetadata()
	raw.Metadata.Range(func(k, v string) bool {
		if v == "" {
			v = "unknown"
		}
		md.Set(normalizeMetaKey(k), v)
		return true
	})
	md.Set(MetaSourceType, raw.Source)
	md.Set(MetaNormalizedAt, n.now().UTC().Format(time.RFC3339))
	return md
}

func normalizeMetaKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	return strings.ReplaceAll(key, "-", "_")
}

// merge collapses a group of normalized claims for the same canonical
// edge into one. The claim with the highest original confidence becomes
// the base; provenance is the union in input order; metadata keeps the
// base's values except where the base holds "unknown".
func (n *Normalizer) merge(group []*models.NormalizedClaim) *models.NormalizedClaim {
	if len(group) == 1 {
		return group[0]
	}

	base := group[0]
	for _, nc := range group[1:] {
		if nc.Provenance[0].OriginalConfidence > base.Provenance[0].OriginalConfidence {
			base = nc
		}
	}

	merged := &models.NormalizedClaim{
		Claim: base.Claim.Clone(),
	}

	var sources []string
	seenSources := make(map[string]bool)
	for _, nc := range group {
		merged.Provenance = append(merged.Provenance, nc.Provenance...)
		for _, p := range nc.Provenance {
			if !seenSources[p.Source] {
				seenSources[p.Source] = true
				sources = append(sources, p.Source)
			}
		}
		if nc == base {
			continue
		}
		nc.Claim.Metadata.Range(func(k, v string) bool {
			if existing, ok := merged.Claim.Metadata.Get(k); !ok || existing == "unknown" {
				merged.Claim.Metadata.Set(k, v)
			}
			return true
		})
	}

	merged.Claim.Metadata.Set(MetaMergedFrom, strconv.Itoa(len(group)))
	merged.Claim.Metadata.Set(MetaAllSources, strings.Join(sources, ","))
	return merged
}
