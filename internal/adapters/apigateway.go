package adapters

import (
	"context"
	"regexp"
	"strings"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

const gatewayConfidence = 0.95

var (
	// genericRoute matches the generic route grammar:
	//   route: web-portal -> user-service weight:80
	genericRoute = regexp.MustCompile(`(?i)^\s*route:\s*([\w-]+)\s*->\s*([\w-]+)(?:\s+weight:(\d+))?\s*$`)

	// kongService matches Kong declarative config service URLs:
	//   url: http://user-service:8000
	kongService = regexp.MustCompile(`(?i)^\s*url:\s*https?://([\w.-]+)(?::(\d+))?\S*\s*$`)

	// awsIntegration matches AWS API Gateway Lambda integration ARNs.
	awsIntegration = regexp.MustCompile(`arn:aws:lambda:[\w-]+:\d+:function:([\w-]+)`)

	// nginxUpstreamHeader matches an NGINX upstream block opener:
	//   upstream user_service {
	nginxUpstreamHeader = regexp.MustCompile(`(?i)^\s*upstream\s+([\w-]+)\s*\{`)

	// nginxServer matches a server directive inside an upstream block.
	nginxServer = regexp.MustCompile(`(?i)^\s*server\s+([\w.-]+)(?::(\d+))?\s*;`)

	// istioHost matches an Istio destination host:
	//   host: user-service
	istioHost = regexp.MustCompile(`(?i)^\s*host:\s*([\w.-]+)\s*$`)
)

// APIGatewayAdapter extracts routing dependencies from gateway
// configurations: Kong, AWS API Gateway, NGINX upstreams, Istio virtual
// services, and a generic route grammar. The gateway itself is the
// fromService except in the generic grammar, which names both sides.
// Confidence is fixed at 0.95: gateways route live traffic.
type APIGatewayAdapter struct {
	gatewayName string
	logger      *logging.Logger
}

// NewAPIGatewayAdapter creates the api-gateway adapter.
func NewAPIGatewayAdapter() *APIGatewayAdapter {
	return &APIGatewayAdapter{
		gatewayName: "api-gateway",
		logger:      logging.GetLogger("adapters.apigateway"),
	}
}

// Name implements Adapter.
func (a *APIGatewayAdapter) Name() string { return SourceAPIGateway }

// DefaultConfidence implements Adapter.
func (a *APIGatewayAdapter) DefaultConfidence() float64 { return gatewayConfidence }

// CanProcess implements Adapter.
func (a *APIGatewayAdapter) CanProcess(raw string) bool {
	// Kong/Istio markers need corroborating structure to avoid matching
	// arbitrary YAML.
	hasKongMarker := strings.Contains(raw, "services:")
	hasIstioMarker := strings.Contains(raw, "VirtualService")

	for _, line := range splitLines(raw) {
		if genericRoute.MatchString(line) || awsIntegration.MatchString(line) ||
			nginxUpstreamHeader.MatchString(line) {
			return true
		}
		if hasKongMarker && kongService.MatchString(line) {
			return true
		}
		if hasIstioMarker && istioHost.MatchString(line) {
			return true
		}
	}
	return false
}

// ProcessData implements Adapter.
func (a *APIGatewayAdapter) ProcessData(ctx context.Context, raw string) (*Result, error) {
	result := &Result{}
	isIstio := strings.Contains(raw, "VirtualService")
	inUpstream := false

	for _, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if isBlank(line) || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		if m := genericRoute.FindStringSubmatch(line); m != nil {
			claim := a.claim(m[1], m[2], line)
			if m[3] != "" {
				claim.WithMeta("weight", m[3])
			}
			result.addClaim(claim)
			continue
		}

		if m := awsIntegration.FindStringSubmatch(line); m != nil {
			result.addClaim(a.claim(a.gatewayName, m[1], line))
			continue
		}

		if nginxUpstreamHeader.MatchString(line) {
			inUpstream = true
			continue
		}
		if inUpstream {
			if m := nginxServer.FindStringSubmatch(line); m != nil {
				claim := a.claim(a.gatewayName, firstLabel(m[1]), line)
				if m[2] != "" {
					claim.WithMeta("target_port", m[2])
				}
				result.addClaim(claim)
				continue
			}
			if strings.Contains(line, "}") {
				inUpstream = false
			}
			continue
		}

		if m := kongService.FindStringSubmatch(line); m != nil {
			claim := a.claim(a.gatewayName, firstLabel(m[1]), line)
			if m[2] != "" {
				claim.WithMeta("target_port", m[2])
			}
			result.addClaim(claim)
			continue
		}

		if isIstio {
			if m := istioHost.FindStringSubmatch(line); m != nil {
				result.addClaim(a.claim(a.gatewayName, firstLabel(m[1]), line))
				continue
			}
		}
	}

	return result, nil
}

func (a *APIGatewayAdapter) claim(from, to, line string) *models.Claim {
	return models.NewClaim(strings.ToLower(from), strings.ToLower(to), models.DependencyTypeAPICall, a.Name()).
		WithConfidence(gatewayConfidence).
		WithRawData(strings.TrimSpace(line))
}

// firstLabel strips a DNS name down to its first label.
func firstLabel(host string) string {
	if idx := strings.IndexByte(host, '.'); idx > 0 {
		return host[:idx]
	}
	return host
}
