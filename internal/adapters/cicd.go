package adapters

import (
	"context"
	"regexp"
	"strings"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

const cicdConfidence = 0.8

var (
	// genericDepends matches the shared phrasing across Jenkins pipelines
	// and free-form build scripts:
	//   service payment-service depends on [user-service, mysql-database]
	//   service web depends on auth, db
	genericDepends = regexp.MustCompile(`(?i)service\s+([\w-]+)\s+depends\s+on:?\s+\[?([\w-]+(?:\s*,\s*[\w-]+)*)\]?`)

	// composeServiceHeader matches a docker-compose service definition at
	// two-space indent under the services: block.
	composeServiceHeader = regexp.MustCompile(`^  ([\w-]+):\s*$`)

	// composeListItem matches a depends_on list entry.
	composeListItem = regexp.MustCompile(`^\s+-\s+([\w-]+)\s*$`)

	// gitlabNeeds matches GitLab CI needs entries: needs: ["build-user-service"]
	gitlabNeeds = regexp.MustCompile(`needs:\s*\[([^\]]+)\]`)

	// helmDependencyName matches Helm chart dependency entries.
	helmDependencyName = regexp.MustCompile(`^\s*-\s*name:\s*([\w-]+)\s*$`)

	// helmChartName matches the chart's own name declaration.
	helmChartName = regexp.MustCompile(`^name:\s*([\w-]+)\s*$`)

	// gitlabJobHeader matches a top-level GitLab CI job definition.
	gitlabJobHeader = regexp.MustCompile(`^([\w-]+):\s*$`)
)

// CICDPipelineAdapter extracts build-time dependencies from CI/CD
// definitions across four dialects: Jenkins-style "depends on" phrasing,
// GitLab CI needs lists, docker-compose depends_on blocks, and Helm chart
// dependencies. Confidence is fixed at 0.8.
type CICDPipelineAdapter struct {
	logger *logging.Logger
}

// NewCICDPipelineAdapter creates the cicd-pipeline adapter.
func NewCICDPipelineAdapter() *CICDPipelineAdapter {
	return &CICDPipelineAdapter{logger: logging.GetLogger("adapters.cicd")}
}

// Name implements Adapter.
func (a *CICDPipelineAdapter) Name() string { return SourceCICDPipeline }

// DefaultConfidence implements Adapter.
func (a *CICDPipelineAdapter) DefaultConfidence() float64 { return cicdConfidence }

// CanProcess implements Adapter.
func (a *CICDPipelineAdapter) CanProcess(raw string) bool {
	if genericDepends.MatchString(raw) || gitlabNeeds.MatchString(raw) {
		return true
	}
	if strings.Contains(raw, "depends_on:") {
		return true
	}
	return strings.Contains(raw, "dependencies:") && helmDependencyName.MatchString(raw)
}

// ProcessData implements Adapter.
func (a *CICDPipelineAdapter) ProcessData(ctx context.Context, raw string) (*Result, error) {
	result := &Result{}

	if err := a.parseGenericDepends(ctx, raw, result); err != nil {
		return nil, err
	}
	if err := a.parseCompose(ctx, raw, result); err != nil {
		return nil, err
	}
	if err := a.parseGitlab(ctx, raw, result); err != nil {
		return nil, err
	}
	if err := a.parseHelm(ctx, raw, result); err != nil {
		return nil, err
	}

	return result, nil
}

// parseGenericDepends handles "service X depends on [a, b]" phrasing.
func (a *CICDPipelineAdapter) parseGenericDepends(ctx context.Context, raw string, result *Result) error {
	for _, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return err
		}
		m := genericDepends.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		from := strings.ToLower(m[1])
		for _, dep := range strings.Split(m[2], ",") {
			a.emit(result, from, strings.TrimSpace(dep), line)
		}
	}
	return nil
}

// parseCompose handles docker-compose depends_on blocks. Service headers
// are tracked at two-space indent; depends_on entries attach to the most
// recent header.
func (a *CICDPipelineAdapter) parseCompose(ctx context.Context, raw string, result *Result) error {
	if !strings.Contains(raw, "depends_on:") {
		return nil
	}

	current := ""
	inDependsOn := false
	for _, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return err
		}
		if m := composeServiceHeader.FindStringSubmatch(line); m != nil {
			current = strings.ToLower(m[1])
			inDependsOn = false
			continue
		}
		if strings.TrimSpace(line) == "depends_on:" {
			inDependsOn = current != ""
			continue
		}
		if inDependsOn {
			if m := composeListItem.FindStringSubmatch(line); m != nil {
				a.emit(result, current, m[1], line)
				continue
			}
			inDependsOn = false
		}
	}
	return nil
}

// parseGitlab handles needs: ["build-user-service"] entries. Job names
// attach to the most recent top-level job header; build-/deploy-/test-
// prefixes are stripped to recover the service name.
func (a *CICDPipelineAdapter) parseGitlab(ctx context.Context, raw string, result *Result) error {
	current := ""
	for _, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return err
		}
		if m := gitlabJobHeader.FindStringSubmatch(line); m != nil {
			header := strings.ToLower(m[1])
			if header != "stages" && header != "variables" && header != "workflow" {
				current = stripJobPrefix(header)
			}
			continue
		}
		m := gitlabNeeds.FindStringSubmatch(line)
		if m == nil || current == "" {
			continue
		}
		for _, item := range strings.Split(m[1], ",") {
			job := strings.Trim(strings.TrimSpace(item), `"'`)
			a.emit(result, current, stripJobPrefix(strings.ToLower(job)), line)
		}
	}
	return nil
}

// parseHelm handles Chart.yaml dependencies blocks.
func (a *CICDPipelineAdapter) parseHelm(ctx context.Context, raw string, result *Result) error {
	if !strings.Contains(raw, "dependencies:") {
		return nil
	}

	chart := ""
	for _, line := range splitLines(raw) {
		if m := helmChartName.FindStringSubmatch(line); m != nil {
			chart = strings.ToLower(m[1])
			break
		}
	}
	if chart == "" {
		return nil
	}

	inDependencies := false
	for _, line := range splitLines(raw) {
		if err := checkContext(ctx); err != nil {
			return err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "dependencies:" {
			inDependencies = true
			continue
		}
		if !inDependencies {
			continue
		}
		if m := helmDependencyName.FindStringSubmatch(line); m != nil {
			a.emit(result, chart, m[1], line)
			continue
		}
		// A non-indented, non-list line ends the dependencies block.
		if trimmed != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "-") {
			inDependencies = false
		}
	}
	return nil
}

func (a *CICDPipelineAdapter) emit(result *Result, from, to, line string) {
	if from == "" || to == "" {
		return
	}
	claim := models.NewClaim(from, strings.ToLower(to), models.DependencyTypeBuildTime, a.Name()).
		WithConfidence(cicdConfidence).
		WithRawData(strings.TrimSpace(line))
	result.addClaim(claim)
}

// stripJobPrefix recovers a service name from a CI job name.
func stripJobPrefix(job string) string {
	for _, prefix := range []string{"build-", "deploy-", "test-", "publish-"} {
		if strings.HasPrefix(job, prefix) {
			return strings.TrimPrefix(job, prefix)
		}
	}
	return job
}
