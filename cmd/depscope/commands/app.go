package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moolen/depscope/internal/adapters"
	"github.com/moolen/depscope/internal/config"
	"github.com/moolen/depscope/internal/graph"
	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/normalizer"
	"github.com/moolen/depscope/internal/reliability"
	"github.com/moolen/depscope/internal/resolver"
	"github.com/moolen/depscope/internal/store"
)

const reliabilityFile = "reliability.json"

// app bundles the wired pipeline pieces shared by the subcommands.
type app struct {
	cfg        *config.Config
	evidence   store.EvidenceStore
	graphStore *store.GraphStore // nil with the memory backend
	tracker    *reliability.Tracker
	logger     *logging.Logger
}

// newApp loads configuration, initializes logging, connects the
// evidence store, and restores persisted reliability feedback.
func newApp(ctx context.Context) (*app, error) {
	if err := setupLog(logLevelFlags); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	a := &app{
		cfg:     cfg,
		tracker: reliability.NewTracker(),
		logger:  logging.GetLogger("cli"),
	}

	switch cfg.Store.Backend {
	case config.BackendFalkorDB:
		client := store.NewClient(clientConfig(cfg))
		gs, err := store.NewGraphStore(client)
		if err != nil {
			return nil, err
		}
		if err := gs.Connect(ctx); err != nil {
			return nil, err
		}
		a.graphStore = gs
		a.evidence = gs
	default:
		a.evidence = store.NewMemoryStore()
	}

	a.restoreTracker()
	return a, nil
}

// Close releases the store connection.
func (a *app) Close() {
	if a.graphStore != nil {
		if err := a.graphStore.Close(); err != nil {
			a.logger.Warn("error closing graph store: %v", err)
		}
	}
}

func clientConfig(cfg *config.Config) store.ClientConfig {
	cc := store.DefaultClientConfig()
	cc.Host = cfg.Store.Host
	cc.Port = cfg.Store.Port
	cc.GraphName = cfg.Store.Graph
	cc.Password = cfg.Store.Password
	return cc
}

// registry builds the adapter registry, restricted to the configured
// allowlist when one is set.
func (a *app) registry() *adapters.Registry {
	full := adapters.NewDefaultRegistry()
	if len(a.cfg.Ingestion.Adapters) == 0 {
		return full
	}

	allowed := make(map[string]bool, len(a.cfg.Ingestion.Adapters))
	for _, name := range a.cfg.Ingestion.Adapters {
		allowed[name] = true
	}

	var subset []adapters.Adapter
	for _, name := range full.Names() {
		if !allowed[name] {
			continue
		}
		if adapter, ok := full.Get(name); ok {
			subset = append(subset, adapter)
		}
	}
	if len(subset) == 0 {
		a.logger.Warn("adapter allowlist matched nothing, using all built-in adapters")
		return full
	}
	return adapters.NewRegistry(subset...)
}

func (a *app) normalizer() *normalizer.Normalizer {
	var opts []normalizer.Option
	if len(a.cfg.Normalize.Aliases) > 0 {
		opts = append(opts, normalizer.WithAliases(a.cfg.Normalize.Aliases))
	}
	if len(a.cfg.Normalize.SourceWeights) > 0 {
		opts = append(opts, normalizer.WithSourceWeights(a.cfg.Normalize.SourceWeights))
	}
	return normalizer.New(opts...)
}

func (a *app) resolver() *resolver.Resolver {
	return resolver.New(a.evidence, a.tracker, resolver.Config{
		Priorities: a.cfg.Resolver.Priorities,
		Overrides:  a.cfg.Resolver.Overrides,
	})
}

// resolveGraph runs conflict resolution over the full evidence store.
func (a *app) resolveGraph(ctx context.Context) (*graph.ResolvedGraph, error) {
	return a.resolver().Resolve(ctx)
}

func (a *app) reliabilityPath() string {
	return filepath.Join(a.cfg.Snapshot.Dir, reliabilityFile)
}

// restoreTracker reloads persisted feedback counters. A missing file is
// a fresh start, not an error.
func (a *app) restoreTracker() {
	data, err := os.ReadFile(a.reliabilityPath())
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Warn("could not read reliability state: %v", err)
		}
		return
	}

	var stats []reliability.SourceStats
	if err := json.Unmarshal(data, &stats); err != nil {
		a.logger.Warn("ignoring corrupt reliability state %s: %v", a.reliabilityPath(), err)
		return
	}
	for _, s := range stats {
		a.tracker.Restore(s.Source, s.ClaimCount, s.CorrectCount)
	}
}

// persistTracker writes the feedback counters next to the snapshots so
// reliability survives process restarts.
func (a *app) persistTracker() error {
	if err := os.MkdirAll(a.cfg.Snapshot.Dir, 0o750); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	data, err := json.MarshalIndent(a.tracker.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.reliabilityPath(), data, 0o600)
}
