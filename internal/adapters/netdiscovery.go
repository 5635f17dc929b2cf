package adapters

import (
	"context"
	"regexp"
	"strings"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

var (
	// hostLine matches scan host blocks: HOST: 192.168.1.10 (web-frontend)
	hostLine = regexp.MustCompile(`(?i)^HOST:\s+(\d{1,3}(?:\.\d{1,3}){3})\s+\(([\w.-]+)\)\s*$`)

	// portLine matches open port findings: PORT: 3306/tcp open mysql MySQL 8.0
	portLine = regexp.MustCompile(`(?i)^PORT:\s+(\d+)/(\w+)\s+open\s+([\w-]+)(?:\s+(.*))?$`)
)

// discoveredHost is one HOST block with its open services.
type discoveredHost struct {
	ip       string
	name     string
	services []discoveredService
}

type discoveredService struct {
	port    string
	proto   string
	kind    string
	version string
}

// dependencyRules maps a source service type to the set of target service
// types it plausibly depends on. Derived from common deployment shapes:
// web tiers talk to data stores and caches, apps talk to brokers.
var dependencyRules = map[string][]string{
	"http":   {"mysql", "postgresql", "redis", "mongodb", "memcached"},
	"https":  {"mysql", "postgresql", "redis", "mongodb", "memcached"},
	"nginx":  {"http", "https"},
	"tomcat": {"mysql", "postgresql", "redis"},
	"node":   {"mongodb", "redis", "postgresql"},
	"kafka":  {"zookeeper"},
}

// webTiers and sqlStores identify the high-confidence pairing: a known
// web tier talking to a SQL database.
var (
	webTiers  = map[string]bool{"http": true, "https": true, "tomcat": true, "node": true}
	sqlStores = map[string]bool{"mysql": true, "postgresql": true}
)

// NetworkDiscoveryAdapter infers dependencies from network scan output in
// two phases: collect HOST/PORT blocks, then pair hosts via a static rule
// table keyed on service type.
type NetworkDiscoveryAdapter struct {
	logger *logging.Logger
}

// NewNetworkDiscoveryAdapter creates the network-discovery adapter.
func NewNetworkDiscoveryAdapter() *NetworkDiscoveryAdapter {
	return &NetworkDiscoveryAdapter{logger: logging.GetLogger("adapters.netdiscovery")}
}

// Name implements Adapter.
func (a *NetworkDiscoveryAdapter) Name() string { return SourceNetworkDiscovery }

// DefaultConfidence implements Adapter.
func (a *NetworkDiscoveryAdapter) DefaultConfidence() float64 { return 0.7 }

// CanProcess implements Adapter.
func (a *NetworkDiscoveryAdapter) CanProcess(raw string) bool {
	for _, line := range splitLines(raw) {
		if hostLine.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// ProcessData implements Adapter.
func (a *NetworkDiscoveryAdapter) ProcessData(ctx context.Context, raw string) (*Result, error) {
	result := &Result{}

	hosts, err := a.collectHosts(ctx, raw, result)
	if err != nil {
		return nil, err
	}

	// Second pass: infer cross-host dependencies from the rule table.
	for _, from := range hosts {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		for _, to := range hosts {
			if from.ip == to.ip {
				continue
			}
			a.inferClaims(from, to, result)
		}
	}

	return result, nil
}

// collectHosts runs the first pass over HOST/PORT blocks.
func (a *NetworkDiscoveryAdapter) collectHosts(ctx context.Context, raw string, result *Result) ([]*discoveredHost, error) {
	var hosts []*discoveredHost
	var current *discoveredHost

	for i, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := hostLine.FindStringSubmatch(trimmed); m != nil {
			current = &discoveredHost{ip: m[1], name: strings.ToLower(m[2])}
			hosts = append(hosts, current)
			continue
		}

		if m := portLine.FindStringSubmatch(trimmed); m != nil {
			if current == nil {
				a.logger.Warn("skipping PORT line %d before any HOST block", i+1)
				result.addError(i+1, "PORT line before any HOST block")
				continue
			}
			current.services = append(current.services, discoveredService{
				port:    m[1],
				proto:   m[2],
				kind:    strings.ToLower(m[3]),
				version: strings.TrimSpace(m[4]),
			})
			continue
		}

		a.logger.Warn("skipping unrecognized scan line %d", i+1)
		result.addError(i+1, "unrecognized scan line")
	}

	return hosts, nil
}

// inferClaims emits a claim for every (source service, target service)
// pairing allowed by the rule table.
func (a *NetworkDiscoveryAdapter) inferClaims(from, to *discoveredHost, result *Result) {
	for _, src := range from.services {
		allowed, ok := dependencyRules[src.kind]
		if !ok {
			continue
		}
		for _, dst := range to.services {
			if !contains(allowed, dst.kind) {
				continue
			}
			claim := models.NewClaim(from.name, to.name, models.DependencyTypeRuntime, a.Name()).
				WithConfidence(scanConfidence(src.kind, dst.kind)).
				WithRawData(from.ip + " -> " + to.ip + ":" + dst.port).
				WithMeta("target_port", dst.port).
				WithMeta("protocol", dst.proto).
				WithMeta("detected_service", dst.kind)
			if dst.version != "" {
				claim.WithMeta("service_version", dst.version)
			}
			result.addClaim(claim)
		}
	}
}

// scanConfidence: web tier paired with a SQL store is the strongest
// inference, other rule-table pairings are medium, anything else low.
func scanConfidence(srcKind, dstKind string) float64 {
	if webTiers[srcKind] && sqlStores[dstKind] {
		return models.BandHigh.Value()
	}
	if _, known := dependencyRules[srcKind]; known {
		return models.BandMedium.Value()
	}
	return models.BandLow.Value()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
