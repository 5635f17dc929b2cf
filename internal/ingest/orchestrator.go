package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/depscope/internal/adapters"
	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
	"github.com/moolen/depscope/internal/normalizer"
	"github.com/moolen/depscope/internal/store"
)

// Request describes one ingestion: raw bytes or a file path, plus
// optional source type hint and caller-chosen source id.
type Request struct {
	Raw            []byte
	FilePath       string
	SourceTypeHint string
	SourceID       string
}

// Orchestrator runs the ingestion pipeline: detect source type, parse,
// normalize, persist, and report an IngestionResult. Per-line and
// per-claim failures are counted and skipped; a structural parser
// failure aborts the batch with an AdapterError.
type Orchestrator struct {
	registry   *adapters.Registry
	normalizer *normalizer.Normalizer
	store      store.EvidenceStore
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *logging.Logger
}

// NewOrchestrator wires the pipeline stages together. metrics may be
// nil when observability is disabled.
func NewOrchestrator(registry *adapters.Registry, norm *normalizer.Normalizer,
	evidence store.EvidenceStore, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		normalizer: norm,
		store:      evidence,
		metrics:    metrics,
		tracer:     otel.Tracer("depscope/ingest"),
		logger:     logging.GetLogger("ingest"),
	}
}

// Ingest executes one ingestion request. When FilePath is set the file
// is read first; a missing or unreadable file aborts with an
// AdapterError. Context cancellation is honored at the I/O boundary and
// between line parses; cancellation errors are returned unwrapped.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (*models.IngestionResult, error) {
	start := time.Now()

	sourceID := req.SourceID
	if sourceID == "" {
		sourceID = uuid.NewString()
	}

	ctx, span := o.tracer.Start(ctx, "ingest",
		trace.WithAttributes(attribute.String("source_id", sourceID)))
	defer span.End()

	raw := req.Raw
	filename := req.FilePath
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, models.NewAdapterError(req.SourceTypeHint,
				fmt.Errorf("reading %s: %w", filename, err))
		}
		raw = data
	}

	result := &models.IngestionResult{
		SourceID:  sourceID,
		StartTime: start,
	}

	input := string(raw)
	if strings.TrimSpace(input) == "" {
		result.SourceType = req.SourceTypeHint
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		o.logger.Debug("ingestion %s: empty input, nothing to do", sourceID)
		return result, nil
	}

	basename := ""
	if filename != "" {
		basename = filepath.Base(filename)
	}
	adapter := o.registry.Detect(req.SourceTypeHint, basename, input)
	if adapter == nil {
		return nil, models.NewAdapterError(req.SourceTypeHint,
			fmt.Errorf("no adapters registered"))
	}
	result.SourceType = adapter.Name()
	span.SetAttributes(attribute.String("source_type", adapter.Name()))

	parsed, err := adapter.ProcessData(ctx, input)
	if err != nil {
		if isCancellation(err) {
			return nil, err
		}
		o.observe(result, start, "parse_error")
		return nil, models.NewAdapterError(adapter.Name(),
			fmt.Errorf("batch %s: %w", sourceID, err))
	}

	result.RawClaimsExtracted = len(parsed.Claims) + len(parsed.Errors)
	result.ErrorCount = len(parsed.Errors)
	for _, lineErr := range parsed.Errors {
		o.logger.Warn("ingestion %s: %v", sourceID, lineErr)
	}

	normalized := o.normalizer.Normalize(parsed.Claims)
	result.ClaimsAfterNormalization = len(normalized)

	for _, nc := range normalized {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := o.store.Save(ctx, nc.Claim); err != nil {
			if isCancellation(err) {
				return nil, err
			}
			result.ErrorCount++
			o.logger.ErrorWithErr(fmt.Sprintf("ingestion %s: dropping claim %s", sourceID, nc.Claim.EdgeKey()), err)
			continue
		}
		result.ClaimsSaved++
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	o.observe(result, start, "ok")

	o.logger.InfoWithFields("ingestion complete",
		logging.Field("source_id", sourceID),
		logging.Field("source_type", result.SourceType),
		logging.Field("extracted", result.RawClaimsExtracted),
		logging.Field("normalized", result.ClaimsAfterNormalization),
		logging.Field("saved", result.ClaimsSaved),
		logging.Field("errors", result.ErrorCount),
	)
	return result, nil
}

func (o *Orchestrator) observe(result *models.IngestionResult, start time.Time, outcome string) {
	if o.metrics == nil {
		return
	}
	o.metrics.IngestsTotal.WithLabelValues(result.SourceType, outcome).Inc()
	o.metrics.ClaimsExtracted.Add(float64(result.RawClaimsExtracted))
	o.metrics.ClaimsSaved.Add(float64(result.ClaimsSaved))
	o.metrics.InputErrors.Add(float64(result.ErrorCount))
	o.metrics.IngestDuration.Observe(time.Since(start).Seconds())
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
