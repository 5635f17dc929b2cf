package ingest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

// Outcome is the result of one pooled ingestion.
type Outcome struct {
	Result *models.IngestionResult
	Err    error
}

// Pool runs ingestions concurrently, one request per worker. Within a
// request the pipeline stays sequential; the pool only fans out across
// requests. It implements the lifecycle Component contract.
type Pool struct {
	orchestrator *Orchestrator
	workers      int
	queueSize    int
	metrics      *Metrics
	logger       *logging.Logger

	mu         sync.Mutex
	queue      chan poolJob
	group      *errgroup.Group
	stopping   chan struct{}
	submitters sync.WaitGroup
	started    bool
}

type poolJob struct {
	ctx  context.Context
	req  Request
	done chan Outcome
}

// NewPool creates a pool with the given worker count and queue depth.
func NewPool(orchestrator *Orchestrator, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers
	}
	return &Pool{
		orchestrator: orchestrator,
		workers:      workers,
		queueSize:    queueSize,
		metrics:      orchestrator.metrics,
		logger:       logging.GetLogger("ingest.pool"),
	}
}

// Name implements lifecycle.Component.
func (p *Pool) Name() string { return "ingest-pool" }

// Start launches the workers. Idempotent.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	p.queue = make(chan poolJob, p.queueSize)
	p.stopping = make(chan struct{})
	p.group = &errgroup.Group{}
	for i := 0; i < p.workers; i++ {
		p.group.Go(p.worker)
	}
	p.started = true

	p.logger.Info("ingestion pool started with %d workers", p.workers)
	return nil
}

func (p *Pool) worker() error {
	for job := range p.queue {
		if p.metrics != nil {
			p.metrics.QueueDepth.Dec()
		}
		result, err := p.orchestrator.Ingest(job.ctx, job.req)
		job.done <- Outcome{Result: result, Err: err}
	}
	return nil
}

// Stop rejects new submissions, unblocks senders waiting on a full
// queue, then closes the queue and waits for in-flight ingestions to
// finish. The queue is only closed once every live Submit has returned.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	queue := p.queue
	group := p.group
	close(p.stopping)
	p.mu.Unlock()

	finished := make(chan error, 1)
	go func() {
		p.submitters.Wait()
		close(queue)
		finished <- group.Wait()
	}()

	select {
	case err := <-finished:
		p.logger.Info("ingestion pool drained")
		return err
	case <-ctx.Done():
		return fmt.Errorf("ingestion pool shutdown: %w", ctx.Err())
	}
}

// Submit enqueues a request and returns a channel that receives the
// outcome. The channel is buffered; the caller may abandon it.
func (p *Pool) Submit(ctx context.Context, req Request) (<-chan Outcome, error) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil, fmt.Errorf("ingestion pool is not running")
	}
	queue := p.queue
	stopping := p.stopping
	// Registered under the mutex so Stop cannot close the queue while
	// this Submit still holds a reference to it.
	p.submitters.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	done := make(chan Outcome, 1)
	select {
	case queue <- poolJob{ctx: ctx, req: req, done: done}:
		if p.metrics != nil {
			p.metrics.QueueDepth.Inc()
		}
		return done, nil
	case <-stopping:
		return nil, fmt.Errorf("ingestion pool is shutting down")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IngestAll runs a batch of requests through the pool and collects the
// outcomes in request order.
func (p *Pool) IngestAll(ctx context.Context, reqs []Request) ([]Outcome, error) {
	pending := make([]<-chan Outcome, len(reqs))
	for i, req := range reqs {
		done, err := p.Submit(ctx, req)
		if err != nil {
			return nil, err
		}
		pending[i] = done
	}

	outcomes := make([]Outcome, len(reqs))
	for i, done := range pending {
		select {
		case outcomes[i] = <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return outcomes, nil
}
