// Package adapters parses raw observational data into dependency claims.
//
// Each supported source format (router logs, configuration files, network
// scans, CI/CD pipelines, API gateway configs, observability data,
// Kubernetes manifests, and a free-text grammar) is handled by an Adapter
// implementation. Adapters are side-effect free and deterministic on
// identical input; timestamps default to ingestion time only when the raw
// data carries none.
//
// Malformed lines are skipped with a warning and counted; only structural
// failures (I/O, binary input) abort a batch via AdapterError.
package adapters

import (
	"context"
	"strings"

	"github.com/moolen/depscope/internal/models"
)

// Adapter parses one raw source format into dependency claims.
type Adapter interface {
	// Name returns the source tag this adapter stamps on its claims,
	// e.g. "router-log".
	Name() string

	// CanProcess probes whether the raw input looks like this adapter's
	// format. Used as the last detection stage after hints and filename
	// patterns.
	CanProcess(raw string) bool

	// DefaultConfidence returns the adapter's baseline confidence in [0,1].
	DefaultConfidence() float64

	// ProcessData parses the raw input into claims. Returned claims are
	// tagged with the adapter's source name. Per-line failures are
	// recovered into Result.Errors; only structural failures return a
	// non-nil error. The context is honored between per-line parses.
	ProcessData(ctx context.Context, raw string) (*Result, error)
}

// Result wraps the claims of one parse together with the per-line errors
// that were recovered locally.
type Result struct {
	Claims []*models.Claim
	Errors []*models.InputError
}

// addClaim appends a claim after validation; invalid claims (self-loops
// in particular) are silently dropped.
func (r *Result) addClaim(c *models.Claim) {
	if c == nil || c.Validate() != nil {
		return
	}
	r.Claims = append(r.Claims, c)
}

// addError records a recovered per-line failure.
func (r *Result) addError(line int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, models.NewInputError(line, format, args...))
}

// splitLines normalizes the raw input into lines: a UTF-8 BOM is
// tolerated, and both \n and \r\n line endings are accepted.
func splitLines(raw string) []string {
	raw = strings.TrimPrefix(raw, "\uFEFF")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(raw, "\n")
}

// checkContext returns the context error, if any. Adapters call this
// between per-line parses so cancellation is honored mid-batch.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// isBlank reports whether a line is empty or whitespace-only.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
