package adapters

import (
	"path/filepath"
	"strings"

	"github.com/moolen/depscope/internal/logging"
)

// Source tags for the built-in adapters.
const (
	SourceRouterLog         = "router-log"
	SourceConfigurationFile = "configuration-file"
	SourceNetworkDiscovery  = "network-discovery"
	SourceCICDPipeline      = "cicd-pipeline"
	SourceAPIGateway        = "api-gateway"
	SourceObservability     = "observability"
	SourceKubernetes        = "kubernetes"
	SourceCustomText        = "custom-text"
)

// Registry holds the set of initialized adapters and selects the right
// one for a piece of raw input.
type Registry struct {
	order  []Adapter
	byName map[string]Adapter
	logger *logging.Logger
}

// NewRegistry creates a registry with the given adapters. Probe order
// follows registration order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		byName: make(map[string]Adapter, len(adapters)),
		logger: logging.GetLogger("adapters.registry"),
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// NewDefaultRegistry creates a registry with all built-in adapters.
// Content probing is ordered from most to least distinctive format.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		NewKubernetesAdapter(),
		NewNetworkDiscoveryAdapter(),
		NewObservabilityAdapter(),
		NewAPIGatewayAdapter(),
		NewCICDPipelineAdapter(),
		NewConfigurationFileAdapter(),
		NewCustomTextAdapter(),
		NewRouterLogAdapter(),
	)
}

// Register adds an adapter. Re-registering a name replaces the previous
// adapter but keeps its probe position.
func (r *Registry) Register(a Adapter) {
	if _, exists := r.byName[a.Name()]; !exists {
		r.order = append(r.order, a)
	} else {
		for i, existing := range r.order {
			if existing.Name() == a.Name() {
				r.order[i] = a
				break
			}
		}
	}
	r.byName[a.Name()] = a
}

// Get returns the adapter registered under the given source tag.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names returns the registered source tags in probe order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, a := range r.order {
		names = append(names, a.Name())
	}
	return names
}

// Detect selects the adapter for a piece of raw input using, in order:
// the explicit caller hint, filename patterns, and content probing.
// When nothing matches it falls back to router-log and logs a warning.
// Returns nil when the registry holds no adapters at all.
func (r *Registry) Detect(hint, filename, raw string) Adapter {
	if len(r.order) == 0 {
		r.logger.Warn("no adapters registered, cannot detect source type")
		return nil
	}

	if hint != "" {
		if a, ok := r.byName[hint]; ok {
			return a
		}
		r.logger.Warn("unknown source type hint %q, continuing with detection", hint)
	}

	if filename != "" {
		if a := r.detectByFilename(filename, raw); a != nil {
			return a
		}
	}

	for _, a := range r.order {
		if a.CanProcess(raw) {
			return a
		}
	}

	if a, ok := r.byName[SourceRouterLog]; ok {
		r.logger.Warn("no adapter matched input, falling back to %s", SourceRouterLog)
		return a
	}
	// Restricted registry without router-log: fall back to the last
	// probe, which is the most permissive one registered.
	last := r.order[len(r.order)-1]
	r.logger.Warn("no adapter matched input, falling back to %s", last.Name())
	return last
}

// detectByFilename maps well-known filename patterns to adapters.
func (r *Registry) detectByFilename(filename, raw string) Adapter {
	base := strings.ToLower(filepath.Base(filename))
	ext := filepath.Ext(base)

	switch {
	case base == "jenkinsfile" || base == "docker-compose.yml" || base == "docker-compose.yaml" ||
		base == "compose.yml" || base == "compose.yaml" || base == ".gitlab-ci.yml":
		return r.byName[SourceCICDPipeline]
	case ext == ".yaml" || ext == ".yml":
		// Kubernetes manifests are YAML documents with a kind field.
		if strings.Contains(raw, "kind:") {
			return r.byName[SourceKubernetes]
		}
		return nil
	case ext == ".properties" || ext == ".conf" || ext == ".ini" || ext == ".env":
		return r.byName[SourceConfigurationFile]
	case ext == ".log":
		return r.byName[SourceRouterLog]
	}
	return nil
}
