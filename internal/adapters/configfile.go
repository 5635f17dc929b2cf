package adapters

import (
	"context"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

var (
	// jdbcURL matches e.g. spring.datasource.url=jdbc:mysql://mysql-primary:3306/portal
	jdbcURL = regexp.MustCompile(`jdbc:(\w+)://([\w.-]+)(?::(\d+))?(?:/[\w-]*)?`)

	// httpEndpoint matches http(s) URLs in values, e.g. http://payment-service:8080/api
	httpEndpoint = regexp.MustCompile(`https?://([\w.-]+)(?::(\d+))?(?:/\S*)?`)

	// hostReference matches bare host assignments, e.g. db.host=postgres-db
	hostReference = regexp.MustCompile(`(?i)^\s*[\w.-]*(?:host|server|address)\s*[=:]\s*([\w.-]+)(?::(\d+))?\s*$`)

	// kafkaBrokers matches broker lists, e.g. kafka.brokers=kafka-service:9092,kafka-2:9092
	kafkaBrokers = regexp.MustCompile(`(?i)^\s*[\w.-]*(?:kafka[\w.-]*brokers?|bootstrap[\w.-]*servers?)\s*[=:]\s*(.+)$`)

	// appName matches the application's own name declaration, used as the
	// claims' fromService.
	appName = regexp.MustCompile(`(?i)^\s*(?:spring\.application\.name|app\.name|service\.name|application\.name)\s*[=:]\s*([\w.-]+)\s*$`)

	brokerEntry = regexp.MustCompile(`^([\w.-]+)(?::(\d+))?$`)
)

// Pattern role suffixes applied to the target name. Hosts that already
// carry a role cue keep their name so downstream aliasing (e.g.
// mysql-primary) still matches.
const (
	suffixDatabase = "-database"
	suffixService  = "-service"
	suffixKafka    = "-kafka"
)

var roleCues = []string{"sql", "db", "cache", "redis", "kafka", "queue", "broker", "service", "database"}

// ConfigurationFileAdapter parses line-oriented configuration files
// (properties, env files) into configuration claims. The owning service is
// taken from an application-name key when present, else a generic
// fallback.
type ConfigurationFileAdapter struct {
	fallbackFrom string
	logger       *logging.Logger
}

// NewConfigurationFileAdapter creates the configuration-file adapter.
func NewConfigurationFileAdapter() *ConfigurationFileAdapter {
	return &ConfigurationFileAdapter{
		fallbackFrom: "application-service",
		logger:       logging.GetLogger("adapters.configfile"),
	}
}

// Name implements Adapter.
func (a *ConfigurationFileAdapter) Name() string { return SourceConfigurationFile }

// DefaultConfidence implements Adapter.
func (a *ConfigurationFileAdapter) DefaultConfidence() float64 { return 0.9 }

// CanProcess implements Adapter.
func (a *ConfigurationFileAdapter) CanProcess(raw string) bool {
	for _, line := range splitLines(raw) {
		if isCommentOrBlank(line) {
			continue
		}
		if jdbcURL.MatchString(line) || kafkaBrokers.MatchString(line) ||
			hostReference.MatchString(line) || appName.MatchString(line) {
			return true
		}
		// Generic key=value with an embedded URL
		if strings.Contains(line, "=") && httpEndpoint.MatchString(line) {
			return true
		}
	}
	return false
}

// ProcessData implements Adapter.
func (a *ConfigurationFileAdapter) ProcessData(ctx context.Context, raw string) (*Result, error) {
	result := &Result{}
	lines := splitLines(raw)
	from := a.detectOwnName(lines)

	for i, line := range lines {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if isCommentOrBlank(line) || appName.MatchString(line) {
			continue
		}

		for _, target := range a.extractTargets(line) {
			claim := models.NewClaim(from, target.service, models.DependencyTypeConfiguration, a.Name()).
				WithConfidence(target.confidence).
				WithRawData(strings.TrimSpace(line))
			if target.port != "" {
				claim.WithMeta("target_port", target.port)
			}
			claim.WithMeta("config_line", strconv.Itoa(i+1))
			result.addClaim(claim)
		}
	}

	return result, nil
}

// detectOwnName scans for an application-name key to use as fromService.
func (a *ConfigurationFileAdapter) detectOwnName(lines []string) string {
	for _, line := range lines {
		if m := appName.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return a.fallbackFrom
}

type configTarget struct {
	service    string
	port       string
	confidence float64
}

// extractTargets applies the four dependency patterns to one line: JDBC
// URL, HTTP(S) endpoint, bare host reference, Kafka broker list. The
// host segment becomes the target service name, suffixed with the
// pattern's role when the name itself carries no cue. Localhost and
// bare IPv4 targets are ignored.
func (a *ConfigurationFileAdapter) extractTargets(line string) []configTarget {
	var targets []configTarget

	if m := jdbcURL.FindStringSubmatch(line); m != nil {
		if t, ok := a.target(m[2], m[3], suffixDatabase, models.BandVeryHigh.Value()); ok {
			targets = append(targets, t)
		}
		return targets
	}

	if m := kafkaBrokers.FindStringSubmatch(line); m != nil {
		for _, entry := range strings.Split(m[1], ",") {
			bm := brokerEntry.FindStringSubmatch(strings.TrimSpace(entry))
			if bm == nil {
				continue
			}
			if t, ok := a.target(bm[1], bm[2], suffixKafka, models.BandVeryHigh.Value()); ok {
				targets = append(targets, t)
			}
		}
		return targets
	}

	if m := httpEndpoint.FindStringSubmatch(line); m != nil {
		if t, ok := a.target(m[1], m[2], suffixService, models.BandVeryHigh.Value()); ok {
			targets = append(targets, t)
		}
		return targets
	}

	if m := hostReference.FindStringSubmatch(line); m != nil {
		if t, ok := a.target(m[1], m[2], "", models.BandHigh.Value()); ok {
			targets = append(targets, t)
		}
	}

	return targets
}

// target filters out localhost and bare IPv4 hosts, strips DNS domain
// suffixes down to the first label, and applies the pattern's role
// suffix to cue-less names.
func (a *ConfigurationFileAdapter) target(host, port, suffix string, confidence float64) (configTarget, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return configTarget{}, false
	}
	// kafka-service.infra.svc.cluster.local -> kafka-service
	if idx := strings.IndexByte(host, '.'); idx > 0 {
		host = host[:idx]
	}
	if suffix != "" && !hasRoleCue(host) {
		host += suffix
	}
	return configTarget{service: host, port: port, confidence: confidence}, true
}

func hasRoleCue(host string) bool {
	for _, cue := range roleCues {
		if strings.Contains(host, cue) {
			return true
		}
	}
	return false
}

// isCommentOrBlank skips blank lines and #, //, /* ... */, * comments.
func isCommentOrBlank(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	return strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}
