package adapters

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

const customTextConfidence = 0.8

// customTextLine matches the free-text grammar, one claim per line:
//
//	FROM -> TO [confidence] [source] [timestamp]
//
// e.g. "web-portal -> user-service 0.9 manual 2024-07-04T10:30:45Z"
var customTextLine = regexp.MustCompile(
	`^([\w-]+)\s*->\s*([\w-]+)(?:\s+(0(?:\.\d+)?|1(?:\.0+)?))?(?:\s+([\w-]+))?(?:\s+(\S+))?\s*$`)

// CustomTextAdapter parses the simple free-text dependency grammar.
// Confidence, source override, and timestamp are optional per line;
// comment lines start with #.
type CustomTextAdapter struct {
	logger *logging.Logger
}

// NewCustomTextAdapter creates the custom-text adapter.
func NewCustomTextAdapter() *CustomTextAdapter {
	return &CustomTextAdapter{logger: logging.GetLogger("adapters.customtext")}
}

// Name implements Adapter.
func (a *CustomTextAdapter) Name() string { return SourceCustomText }

// DefaultConfidence implements Adapter.
func (a *CustomTextAdapter) DefaultConfidence() float64 { return customTextConfidence }

// CanProcess implements Adapter.
func (a *CustomTextAdapter) CanProcess(raw string) bool {
	for _, line := range splitLines(raw) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if customTextLine.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// ProcessData implements Adapter.
func (a *CustomTextAdapter) ProcessData(ctx context.Context, raw string) (*Result, error) {
	result := &Result{}

	for i, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		m := customTextLine.FindStringSubmatch(trimmed)
		if m == nil {
			a.logger.Warn("skipping malformed custom text line %d", i+1)
			result.addError(i+1, "malformed custom text line")
			continue
		}

		claim := models.NewClaim(strings.ToLower(m[1]), strings.ToLower(m[2]),
			models.DependencyTypeRuntime, a.Name()).
			WithConfidence(customTextConfidence).
			WithRawData(trimmed)

		if m[3] != "" {
			conf, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				result.addError(i+1, "invalid confidence %q", m[3])
				continue
			}
			claim.WithConfidence(conf)
		}
		if m[4] != "" {
			// A declared source replaces the adapter tag so resolver
			// priorities and overrides can target it directly.
			claim.WithSource(strings.ToLower(m[4]))
		}
		if m[5] != "" {
			ts, err := time.Parse(time.RFC3339, m[5])
			if err != nil {
				result.addError(i+1, "invalid timestamp %q", m[5])
				continue
			}
			claim.WithTimestamp(ts)
		}

		result.addClaim(claim)
	}

	return result, nil
}
