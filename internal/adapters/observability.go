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

var (
	// promLine matches exposition-style lines carrying a service pair:
	//   http_requests_total{service="web-portal",target_service="user-service"} 1547
	promLine = regexp.MustCompile(
		`^([a-zA-Z_:][\w:]*)\{([^}]*)\}\s+([\d.eE+-]+)\s*$`)

	promLabel = regexp.MustCompile(`(\w+)="([^"]*)"`)

	// jaegerLine matches trace spans:
	//   1720088445 abc123def "web-portal" -> "user-service" 250ms
	jaegerLine = regexp.MustCompile(
		`^(\d{10,19})\s+(\w+)\s+"([\w-]+)"\s*->\s*"([\w-]+)"\s+(\d+)ms\s*$`)

	// otelLine matches span records:
	//   span_id:0af7651916cd43dd service:web-portal downstream:user-service duration:250ms status:OK
	otelLine = regexp.MustCompile(
		`^span_id:(\S+)\s+service:([\w-]+)\s+downstream:([\w-]+)\s+duration:(\d+)ms\s+status:(\w+)\s*$`)
)

// ObservabilityAdapter parses telemetry data in three line grammars:
// Prometheus metrics with service/target_service labels, Jaeger trace
// spans, and OpenTelemetry span records. Confidence is derived from the
// metric name, span duration, and span status; all cases land in
// [0.7, 0.99].
type ObservabilityAdapter struct {
	logger *logging.Logger
}

// NewObservabilityAdapter creates the observability adapter.
func NewObservabilityAdapter() *ObservabilityAdapter {
	return &ObservabilityAdapter{logger: logging.GetLogger("adapters.observability")}
}

// Name implements Adapter.
func (a *ObservabilityAdapter) Name() string { return SourceObservability }

// DefaultConfidence implements Adapter.
func (a *ObservabilityAdapter) DefaultConfidence() float64 { return 0.85 }

// CanProcess implements Adapter.
func (a *ObservabilityAdapter) CanProcess(raw string) bool {
	for _, line := range splitLines(raw) {
		trimmed := strings.TrimSpace(line)
		if jaegerLine.MatchString(trimmed) || otelLine.MatchString(trimmed) {
			return true
		}
		if m := promLine.FindStringSubmatch(trimmed); m != nil {
			labels := parseLabels(m[2])
			if labels["service"] != "" && labels["target_service"] != "" {
				return true
			}
		}
	}
	return false
}

// ProcessData implements Adapter.
func (a *ObservabilityAdapter) ProcessData(ctx context.Context, raw string) (*Result, error) {
	result := &Result{}

	for i, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		switch {
		case a.parsePrometheus(trimmed, result):
		case a.parseJaeger(trimmed, result):
		case a.parseOtel(trimmed, result):
		default:
			a.logger.Warn("skipping unrecognized telemetry line %d", i+1)
			result.addError(i+1, "unrecognized telemetry line")
		}
	}

	return result, nil
}

// parsePrometheus handles metric lines. Error/failure metrics still prove
// the dependency exists but carry the floor confidence; large sample
// counts are corroborating volume.
func (a *ObservabilityAdapter) parsePrometheus(line string, result *Result) bool {
	m := promLine.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	labels := parseLabels(m[2])
	from, to := labels["service"], labels["target_service"]
	if from == "" || to == "" {
		return false
	}

	metric := m[1]
	value, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return false
	}

	confidence := 0.85
	switch {
	case strings.Contains(metric, "error") || strings.Contains(metric, "failed"):
		confidence = 0.7
	case value >= 100:
		confidence = 0.95
	}

	claim := models.NewClaim(from, to, models.DependencyTypeAPICall, a.Name()).
		WithConfidence(confidence).
		WithRawData(line).
		WithMeta("metric_name", metric).
		WithMeta("metric_value", m[3])
	result.addClaim(claim)
	return true
}

// parseJaeger handles trace span lines. Short spans are direct synchronous
// calls; very slow spans may include queuing and are weaker evidence.
func (a *ObservabilityAdapter) parseJaeger(line string, result *Result) bool {
	m := jaegerLine.FindStringSubmatch(line)
	if m == nil {
		return false
	}

	epoch, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return false
	}
	durationMs, err := strconv.Atoi(m[5])
	if err != nil {
		return false
	}

	confidence := 0.8
	switch {
	case durationMs < 100:
		confidence = 0.95
	case durationMs < 1000:
		confidence = 0.9
	}

	claim := models.NewClaim(m[3], m[4], models.DependencyTypeAPICall, a.Name()).
		WithConfidence(confidence).
		WithTimestamp(epochToTime(epoch)).
		WithRawData(line).
		WithMeta("trace_id", m[2]).
		WithMeta("duration_ms", m[5])
	result.addClaim(claim)
	return true
}

// parseOtel handles span records. Status drives confidence: OK spans are
// near-certain, errored spans still witnessed an attempt.
func (a *ObservabilityAdapter) parseOtel(line string, result *Result) bool {
	m := otelLine.FindStringSubmatch(line)
	if m == nil {
		return false
	}

	confidence := 0.85
	switch strings.ToUpper(m[5]) {
	case "OK":
		confidence = 0.95
	case "ERROR":
		confidence = 0.7
	}

	claim := models.NewClaim(m[2], m[3], models.DependencyTypeAPICall, a.Name()).
		WithConfidence(confidence).
		WithRawData(line).
		WithMeta("span_id", m[1]).
		WithMeta("duration_ms", m[4]).
		WithMeta("span_status", strings.ToUpper(m[5]))
	result.addClaim(claim)
	return true
}

func parseLabels(s string) map[string]string {
	labels := make(map[string]string)
	for _, m := range promLabel.FindAllStringSubmatch(s, -1) {
		labels[m[1]] = m[2]
	}
	return labels
}

// epochToTime interprets an epoch value by magnitude: seconds, millis,
// micros, or nanos.
func epochToTime(epoch int64) time.Time {
	switch {
	case epoch < 1e12:
		return time.Unix(epoch, 0)
	case epoch < 1e15:
		return time.UnixMilli(epoch)
	case epoch < 1e18:
		return time.UnixMicro(epoch)
	default:
		return time.Unix(0, epoch)
	}
}
