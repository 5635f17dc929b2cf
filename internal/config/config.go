package config

import (
	"fmt"
	"strings"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFalkorDB = "falkordb"
)

// Config holds all configuration for the application.
type Config struct {
	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	Store     StoreConfig     `yaml:"store"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Normalize NormalizeConfig `yaml:"normalizer"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// StoreConfig selects and configures the evidence store backend.
type StoreConfig struct {
	// Backend is "memory" or "falkordb"
	Backend string `yaml:"backend"`

	// Host/Port/Graph/Password configure the FalkorDB connection
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Graph    string `yaml:"graph"`
	Password string `yaml:"password"`
}

// IngestionConfig configures the ingestion worker pool.
type IngestionConfig struct {
	// Workers is the number of concurrent ingestion workers
	Workers int `yaml:"workers"`

	// QueueSize is the depth of the pending-request queue
	QueueSize int `yaml:"queue_size"`

	// Adapters restricts source type detection to the named adapters.
	// Empty means all built-in adapters are available.
	Adapters []string `yaml:"adapters"`
}

// NormalizeConfig tunes service name canonicalization and confidence
// calibration.
type NormalizeConfig struct {
	// Aliases maps raw service names to canonical ones, merged over the
	// built-in alias table
	Aliases map[string]string `yaml:"aliases"`

	// SourceWeights maps source types to calibration weights in (0, 1]
	SourceWeights map[string]float64 `yaml:"source_weights"`
}

// ResolverConfig holds the conflict resolution knobs. These are
// hot-reloadable via the config watcher.
type ResolverConfig struct {
	// Priorities maps source types to priority multipliers
	Priorities map[string]float64 `yaml:"priorities"`

	// Overrides pins an edge ("from->to") to a winning source type
	Overrides map[string]string `yaml:"overrides"`
}

// SnapshotConfig configures graph exports.
type SnapshotConfig struct {
	// Dir is the directory GraphML snapshots are written to
	Dir string `yaml:"dir"`
}

// TracingConfig configures OpenTelemetry trace export.
type TracingConfig struct {
	// Enabled turns OTLP trace export on
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC endpoint
	Endpoint string `yaml:"endpoint"`

	// TLSCAPath is the path to the CA certificate for TLS verification;
	// empty means an insecure connection
	TLSCAPath string `yaml:"tls_ca_path"`
}

// Default returns the built-in configuration, used when no config file
// is given and as the base that file values are merged over.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Store: StoreConfig{
			Backend: BackendMemory,
			Host:    "localhost",
			Port:    6379,
			Graph:   "depscope",
		},
		Ingestion: IngestionConfig{
			Workers:   4,
			QueueSize: 16,
		},
		Snapshot: SnapshotConfig{
			Dir: "./snapshots",
		},
		Tracing: TracingConfig{
			Endpoint: "localhost:4317",
		},
	}
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !logLevels[strings.ToLower(c.LogLevel)] {
		return NewConfigError(fmt.Sprintf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFalkorDB:
		if c.Store.Host == "" {
			return NewConfigError("store.host must not be empty for the falkordb backend")
		}
		if c.Store.Port < 1 || c.Store.Port > 65535 {
			return NewConfigError("store.port must be between 1 and 65535")
		}
		if c.Store.Graph == "" {
			return NewConfigError("store.graph must not be empty for the falkordb backend")
		}
	default:
		return NewConfigError(fmt.Sprintf("store.backend must be %q or %q; got %q",
			BackendMemory, BackendFalkorDB, c.Store.Backend))
	}

	if c.Ingestion.Workers < 1 {
		return NewConfigError("ingestion.workers must be at least 1")
	}
	if c.Ingestion.QueueSize < 1 {
		return NewConfigError("ingestion.queue_size must be at least 1")
	}

	for source, weight := range c.Normalize.SourceWeights {
		if weight <= 0 || weight > 1 {
			return NewConfigError(fmt.Sprintf(
				"normalizer.source_weights[%s] must be in (0, 1]; got %v", source, weight))
		}
	}

	for source, priority := range c.Resolver.Priorities {
		if priority <= 0 {
			return NewConfigError(fmt.Sprintf(
				"resolver.priorities[%s] must be positive; got %v", source, priority))
		}
	}
	for edge, source := range c.Resolver.Overrides {
		if !strings.Contains(edge, "->") {
			return NewConfigError(fmt.Sprintf(
				"resolver.overrides key %q must have the form \"from->to\"", edge))
		}
		if strings.TrimSpace(source) == "" {
			return NewConfigError(fmt.Sprintf("resolver.overrides[%s] must name a source type", edge))
		}
	}

	if c.Snapshot.Dir == "" {
		return NewConfigError("snapshot.dir must not be empty")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must be set when tracing is enabled")
	}

	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return e.message
}
