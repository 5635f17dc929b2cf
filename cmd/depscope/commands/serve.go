package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/moolen/depscope/internal/config"
	"github.com/moolen/depscope/internal/export"
	"github.com/moolen/depscope/internal/ingest"
	"github.com/moolen/depscope/internal/lifecycle"
	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/resolver"
	"github.com/moolen/depscope/internal/tracing"
)

var (
	serveListen   string
	serveSpoolDir string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run depscope as a long-lived service",
	Long: `Serve runs the full pipeline continuously: evidence files dropped into
the spool directory are ingested by the worker pool, the graph is
re-resolved and exported on an interval, resolver settings hot-reload
from the config file, and Prometheus metrics are served over HTTP.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", ":9090",
		"Address for the metrics/health HTTP listener")
	serveCmd.Flags().StringVar(&serveSpoolDir, "spool-dir", "./spool",
		"Directory watched for evidence files to ingest")
	serveCmd.Flags().DurationVar(&serveInterval, "snapshot-interval", time.Minute,
		"How often the graph is re-resolved and exported")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := logging.GetLogger("serve")

	tracer, err := tracing.NewProvider(a.cfg.Tracing)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := ingest.NewMetrics(registry)

	orchestrator := ingest.NewOrchestrator(a.registry(), a.normalizer(), a.evidence, metrics)
	pool := ingest.NewPool(orchestrator, a.cfg.Ingestion.Workers, a.cfg.Ingestion.QueueSize)
	spool := ingest.NewSpoolWatcher(serveSpoolDir, pool)

	res := a.resolver()
	exporter := export.NewExporter(a.cfg.Snapshot.Dir)

	manager := lifecycle.NewManager()
	for _, c := range []lifecycle.Component{
		tracer,
		pool,
		spool,
		newMetricsServer(serveListen, registry),
		newSnapshotLoop(res, exporter, serveInterval),
	} {
		if err := manager.Register(c); err != nil {
			return err
		}
	}

	// Hot-reload of resolver priorities and overrides; other settings
	// need a restart.
	if configPath != "" {
		watcher, err := config.NewWatcher(config.WatcherOptions{FilePath: configPath},
			func(cfg *config.Config) error {
				res.UpdateConfig(resolver.Config{
					Priorities: cfg.Resolver.Priorities,
					Overrides:  cfg.Resolver.Overrides,
				})
				return nil
			})
		if err != nil {
			return err
		}
		if err := manager.Register(watcher); err != nil {
			return err
		}
	}

	if err := manager.Start(ctx); err != nil {
		return err
	}
	logger.Info("depscope serving (spool: %s, listen: %s)", serveSpoolDir, serveListen)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-signals:
		logger.Info("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return manager.Stop(stopCtx)
}

// metricsServer exposes /metrics and /healthz.
type metricsServer struct {
	server *http.Server
	logger *logging.Logger
}

func newMetricsServer(listen string, registry *prometheus.Registry) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &metricsServer{
		server: &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logging.GetLogger("serve.metrics"),
	}
}

func (m *metricsServer) Name() string { return "metrics-server" }

func (m *metricsServer) Start(ctx context.Context) error {
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.ErrorWithErr("metrics server failed", err)
		}
	}()
	return nil
}

func (m *metricsServer) Stop(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}

// snapshotLoop periodically re-resolves the graph and exports it.
type snapshotLoop struct {
	resolver *resolver.Resolver
	exporter *export.Exporter
	interval time.Duration
	logger   *logging.Logger
	cancel   context.CancelFunc
	stopped  chan struct{}
}

func newSnapshotLoop(res *resolver.Resolver, exporter *export.Exporter, interval time.Duration) *snapshotLoop {
	return &snapshotLoop{
		resolver: res,
		exporter: exporter,
		interval: interval,
		logger:   logging.GetLogger("serve.snapshot"),
	}
}

func (s *snapshotLoop) Name() string { return "snapshot-loop" }

func (s *snapshotLoop) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopped = make(chan struct{})

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.snapshot(loopCtx)
			}
		}
	}()
	return nil
}

func (s *snapshotLoop) snapshot(ctx context.Context) {
	g, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.logger.ErrorWithErr("periodic resolve failed", err)
		return
	}
	if g.EdgeCount() == 0 {
		s.logger.Debug("no edges resolved, skipping snapshot")
		return
	}
	if _, err := s.exporter.Snapshot(g, export.FormatGraphML); err != nil {
		s.logger.ErrorWithErr("periodic snapshot failed", err)
	}
}

func (s *snapshotLoop) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for snapshot loop to stop: %w", ctx.Err())
	}
}
