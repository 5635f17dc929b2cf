package adapters

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

// envHint matches environment variable names that reference another
// service: USER_SERVICE_URL, DATABASE_HOST, AUTH_ENDPOINT, ...
var envHint = regexp.MustCompile(`(?i)^([A-Z0-9_]+?)_(URL|HOST|SERVICE|ENDPOINT)$`)

// k8sManifest captures the manifest fields the adapter cares about.
// Decoding is lenient: unknown fields are ignored.
type k8sManifest struct {
	Kind     string `yaml:"kind"`
	Metadata struct {
		Name   string            `yaml:"name"`
		Labels map[string]string `yaml:"labels"`
	} `yaml:"metadata"`
	Spec struct {
		// Service
		Selector map[string]string `yaml:"selector"`
		// Deployment / StatefulSet
		Template struct {
			Spec struct {
				Containers []k8sContainer `yaml:"containers"`
			} `yaml:"spec"`
		} `yaml:"template"`
		// Ingress
		Rules []struct {
			Host string `yaml:"host"`
			HTTP struct {
				Paths []struct {
					Backend struct {
						Service struct {
							Name string `yaml:"name"`
						} `yaml:"service"`
						// legacy networking.k8s.io/v1beta1 shape
						ServiceName string `yaml:"serviceName"`
					} `yaml:"backend"`
				} `yaml:"paths"`
			} `yaml:"http"`
		} `yaml:"rules"`
	} `yaml:"spec"`
}

type k8sContainer struct {
	Name string `yaml:"name"`
	Env  []struct {
		Name  string `yaml:"name"`
		Value string `yaml:"value"`
	} `yaml:"env"`
	EnvFrom []struct {
		ConfigMapRef struct {
			Name string `yaml:"name"`
		} `yaml:"configMapRef"`
		SecretRef struct {
			Name string `yaml:"name"`
		} `yaml:"secretRef"`
	} `yaml:"envFrom"`
}

// KubernetesAdapter extracts dependencies from Kubernetes manifests:
// workload env-var service hints, configMap/secret references, Service
// selector labels, and Ingress backends. Documents are split on "---" and
// classified by kind.
type KubernetesAdapter struct {
	logger *logging.Logger
}

// NewKubernetesAdapter creates the kubernetes adapter.
func NewKubernetesAdapter() *KubernetesAdapter {
	return &KubernetesAdapter{logger: logging.GetLogger("adapters.kubernetes")}
}

// Name implements Adapter.
func (a *KubernetesAdapter) Name() string { return SourceKubernetes }

// DefaultConfidence implements Adapter.
func (a *KubernetesAdapter) DefaultConfidence() float64 { return 0.85 }

// CanProcess implements Adapter.
func (a *KubernetesAdapter) CanProcess(raw string) bool {
	if !strings.Contains(raw, "kind:") {
		return false
	}
	return strings.Contains(raw, "apiVersion:") || strings.Contains(raw, "metadata:")
}

// ProcessData implements Adapter.
func (a *KubernetesAdapter) ProcessData(ctx context.Context, raw string) (*Result, error) {
	result := &Result{}

	for docIdx, doc := range splitYAMLDocuments(raw) {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if isBlank(doc) {
			continue
		}

		var manifest k8sManifest
		if err := yaml.Unmarshal([]byte(doc), &manifest); err != nil {
			a.logger.Warn("skipping malformed YAML document %d: %v", docIdx+1, err)
			result.addError(docIdx+1, "malformed YAML document: %v", err)
			continue
		}
		if manifest.Metadata.Name == "" {
			continue
		}

		switch manifest.Kind {
		case "Deployment", "StatefulSet":
			a.processWorkload(&manifest, result)
		case "Service":
			a.processService(&manifest, result)
		case "Ingress":
			a.processIngress(&manifest, result)
		}
	}

	return result, nil
}

// processWorkload extracts env-var hints and configMap/secret refs from a
// Deployment or StatefulSet.
func (a *KubernetesAdapter) processWorkload(m *k8sManifest, result *Result) {
	from := strings.ToLower(m.Metadata.Name)

	for _, container := range m.Spec.Template.Spec.Containers {
		for _, env := range container.Env {
			target := targetFromEnv(env.Name, env.Value)
			if target == "" {
				continue
			}
			claim := models.NewClaim(from, target, models.DependencyTypeRuntime, a.Name()).
				WithConfidence(models.BandHigh.Value()).
				WithRawData(fmt.Sprintf("%s=%s", env.Name, env.Value)).
				WithMeta("env_var", env.Name).
				WithMeta("container", container.Name)
			result.addClaim(claim)
		}

		for _, ref := range container.EnvFrom {
			for _, name := range []string{ref.ConfigMapRef.Name, ref.SecretRef.Name} {
				if name == "" {
					continue
				}
				claim := models.NewClaim(from, strings.ToLower(name), models.DependencyTypeConfiguration, a.Name()).
					WithConfidence(models.BandMedium.Value()).
					WithRawData(fmt.Sprintf("envFrom %s", name)).
					WithMeta("ref_kind", "envFrom").
					WithMeta("container", container.Name)
				result.addClaim(claim)
			}
		}
	}
}

// processService links the Service to the workload selected by its app:
// label.
func (a *KubernetesAdapter) processService(m *k8sManifest, result *Result) {
	app := m.Spec.Selector["app"]
	if app == "" {
		return
	}
	claim := models.NewClaim(strings.ToLower(m.Metadata.Name), strings.ToLower(app),
		models.DependencyTypeRuntime, a.Name()).
		WithConfidence(models.BandHigh.Value()).
		WithRawData(fmt.Sprintf("selector app=%s", app)).
		WithMeta("selector", "app")
	result.addClaim(claim)
}

// processIngress links each rule host to its backend service.
func (a *KubernetesAdapter) processIngress(m *k8sManifest, result *Result) {
	from := strings.ToLower(m.Metadata.Name)

	for _, rule := range m.Spec.Rules {
		for _, path := range rule.HTTP.Paths {
			backend := path.Backend.Service.Name
			if backend == "" {
				backend = path.Backend.ServiceName
			}
			if backend == "" {
				continue
			}
			claim := models.NewClaim(from, strings.ToLower(backend), models.DependencyTypeRuntime, a.Name()).
				WithConfidence(models.BandVeryHigh.Value()).
				WithRawData(fmt.Sprintf("host %s -> %s", rule.Host, backend)).
				WithMeta("ingress_host", rule.Host)
			result.addClaim(claim)
		}
	}
}

// targetFromEnv derives a target service from a hint-shaped env var. URL
// values win over the variable name; localhost targets are dropped.
func targetFromEnv(name, value string) string {
	m := envHint.FindStringSubmatch(name)
	if m == nil {
		return ""
	}

	// Prefer the host from a URL-shaped value.
	if um := httpEndpoint.FindStringSubmatch(value); um != nil {
		host := firstLabel(strings.ToLower(um[1]))
		if host == "localhost" {
			return ""
		}
		return host
	}
	if value != "" && !strings.Contains(value, "/") && !strings.Contains(value, " ") {
		host, _, _ := strings.Cut(strings.ToLower(value), ":")
		host = firstLabel(host)
		if host != "localhost" {
			return host
		}
		return ""
	}

	// Fall back to the variable name: USER_SERVICE_URL -> user-service
	base := strings.ReplaceAll(strings.ToLower(m[1]), "_", "-")
	if strings.EqualFold(m[2], "SERVICE") {
		base += "-service"
	}
	return base
}

// splitYAMLDocuments splits a multi-document YAML stream on "---"
// separator lines.
func splitYAMLDocuments(raw string) []string {
	var docs []string
	var current []string
	for _, line := range splitLines(raw) {
		if strings.TrimSpace(line) == "---" {
			docs = append(docs, strings.Join(current, "\n"))
			current = current[:0]
			continue
		}
		current = append(current, line)
	}
	docs = append(docs, strings.Join(current, "\n"))
	return docs
}
