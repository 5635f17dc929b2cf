package adapters

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

// routerLogLine matches access-log style lines:
//
//	2024-07-04 10:30:45 [INFO] 192.168.1.100 -> 192.168.1.200:8080 GET /api/users 200 125ms
var routerLogLine = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\s+\[\w+\]\s+` +
		`(\d{1,3}(?:\.\d{1,3}){3})\s*->\s*(\d{1,3}(?:\.\d{1,3}){3}):(\d+)\s+` +
		`(\w+)\s+(\S+)\s+(\d{3})\s+(\d+)ms\s*$`)

// compactRouterLine matches the compact form "ServiceA->ServiceB".
var compactRouterLine = regexp.MustCompile(`^([A-Za-z][\w-]*)\s*->\s*([A-Za-z][\w-]*)\s*$`)

const routerLogTimeLayout = "2006-01-02 15:04:05"

// RouterLogAdapter parses router/access logs into API-call claims.
// Source and target IPs are mapped to service names via a small table;
// unknown IPs become service-<ip-with-dashes>.
type RouterLogAdapter struct {
	ipServices map[string]string
	logger     *logging.Logger
}

// NewRouterLogAdapter creates the router-log adapter with the built-in
// IP-to-service table.
func NewRouterLogAdapter() *RouterLogAdapter {
	return &RouterLogAdapter{
		ipServices: map[string]string{
			"192.168.1.100": "web-portal",
			"192.168.1.101": "mobile-gateway",
			"192.168.1.200": "user-management-service",
			"192.168.1.201": "order-service",
			"192.168.1.202": "payment-service",
			"192.168.1.210": "inventory-service",
			"10.0.0.10":     "authentication-service",
			"10.0.0.20":     "notification-service",
		},
		logger: logging.GetLogger("adapters.routerlog"),
	}
}

// Name implements Adapter.
func (a *RouterLogAdapter) Name() string { return SourceRouterLog }

// DefaultConfidence implements Adapter.
func (a *RouterLogAdapter) DefaultConfidence() float64 { return 0.85 }

// CanProcess implements Adapter.
func (a *RouterLogAdapter) CanProcess(raw string) bool {
	for _, line := range splitLines(raw) {
		if isBlank(line) {
			continue
		}
		if routerLogLine.MatchString(line) || compactRouterLine.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// ProcessData implements Adapter.
func (a *RouterLogAdapter) ProcessData(ctx context.Context, raw string) (*Result, error) {
	result := &Result{}

	for i, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if isBlank(line) {
			continue
		}

		if m := routerLogLine.FindStringSubmatch(line); m != nil {
			claim, err := a.parseFullLine(m, line)
			if err != nil {
				a.logger.Warn("skipping malformed router log line %d: %v", i+1, err)
				result.addError(i+1, "%v", err)
				continue
			}
			result.addClaim(claim)
			continue
		}

		if m := compactRouterLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			claim := models.NewClaim(m[1], m[2], models.DependencyTypeAPICall, a.Name()).
				WithConfidence(models.BandHigh.Value()).
				WithRawData(line)
			result.addClaim(claim)
			continue
		}

		a.logger.Warn("skipping unrecognized router log line %d", i+1)
		result.addError(i+1, "unrecognized router log line")
	}

	return result, nil
}

// parseFullLine converts a matched full-format line into a claim.
func (a *RouterLogAdapter) parseFullLine(m []string, line string) (*models.Claim, error) {
	ts, err := time.Parse(routerLogTimeLayout, m[1])
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", m[1], err)
	}

	status, err := strconv.Atoi(m[7])
	if err != nil {
		return nil, fmt.Errorf("invalid http status %q: %w", m[7], err)
	}
	latency, err := strconv.Atoi(m[8])
	if err != nil {
		return nil, fmt.Errorf("invalid latency %q: %w", m[8], err)
	}

	from := a.serviceForIP(m[2])
	to := a.serviceForIP(m[3])

	claim := models.NewClaim(from, to, models.DependencyTypeAPICall, a.Name()).
		WithConfidence(confidenceForResponse(status, latency)).
		WithTimestamp(ts).
		WithRawData(line).
		WithMeta("target_port", m[4]).
		WithMeta("http_status", m[7]).
		WithMeta("response_time_ms", m[8])
	return claim, nil
}

// serviceForIP maps an IP to a service name, falling back to a
// synthesized service-<ip-with-dashes> name.
func (a *RouterLogAdapter) serviceForIP(ip string) string {
	if name, ok := a.ipServices[ip]; ok {
		return name
	}
	return "service-" + strings.ReplaceAll(ip, ".", "-")
}

// confidenceForResponse derives confidence from the HTTP outcome: a fast
// 2xx is near-certain evidence of a live dependency, a 4xx still proves
// the caller knows the target, anything else is weak.
func confidenceForResponse(status, latencyMs int) float64 {
	switch {
	case status >= 200 && status < 300 && latencyMs < 1000:
		return 1.0
	case status >= 200 && status < 300:
		return models.BandHigh.Value()
	case status >= 400 && status < 500:
		return models.BandMedium.Value()
	default:
		return models.BandLow.Value()
	}
}
