package lifecycle

import "context"

// Component is the lifecycle contract for long-running parts of the
// application (ingestion pool, config watcher, tracing provider, graph
// store connection).
type Component interface {
	// Start initializes the component. Must be idempotent.
	Start(ctx context.Context) error

	// Stop shuts the component down, letting in-flight work finish
	// within the context deadline.
	Stop(ctx context.Context) error

	// Name returns the component name used in logs.
	Name() string
}
